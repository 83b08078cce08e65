package server

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/generation"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

func TestStreamWriter_WriteUpdate(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newStreamWriter(w)
	require.NoError(t, err)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	require.NoError(t, sse.WriteUpdate(generation.Update{Event: pipeline.Event{
		Unit:     "job_and_company",
		Stages:   []string{"input_analyzer", "research_agent"},
		Status:   pipeline.StatusCompleted,
		Messages: []string{"analyzed job"},
	}}))
	require.NoError(t, sse.WriteUpdate(generation.Update{Event: pipeline.Event{
		Unit:   "quality_check",
		Status: pipeline.StatusFailed,
		Errors: []state.StageError{{Stage: "quality_check", Message: "unparseable"}},
	}}))
	require.NoError(t, sse.WriteUpdate(generation.Update{
		Event:  pipeline.Event{Unit: pipeline.TerminalUnit, Status: pipeline.StatusFinished},
		Result: &generation.Result{RunID: "run-1", Content: "Dear Sam", GenerationID: "gen-1"},
	}))

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 4)
	assert.Equal(t, []string{"progress", "progress", "result", "complete"},
		[]string{events[0].Name, events[1].Name, events[2].Name, events[3].Name})

	var second ProgressEvent
	require.NoError(t, json.Unmarshal([]byte(events[1].Data), &second))
	assert.Equal(t, 2, second.Step)
	assert.Equal(t, "quality_check", second.Agent)
	assert.Len(t, second.Errors, 1)

	var done CompleteEvent
	require.NoError(t, json.Unmarshal([]byte(events[3].Data), &done))
	assert.Equal(t, CompleteEvent{RunID: "run-1", Status: "finished", GenerationID: "gen-1"}, done)
}

func TestStreamWriter_OmitsMissingGenerationID(t *testing.T) {
	w := httptest.NewRecorder()
	sse, err := newStreamWriter(w)
	require.NoError(t, err)

	require.NoError(t, sse.WriteUpdate(generation.Update{
		Event:  pipeline.Event{Unit: pipeline.TerminalUnit, Status: pipeline.StatusHalted},
		Result: &generation.Result{RunID: "run-2"},
	}))

	events := parseSSE(t, w.Body.String())
	require.Len(t, events, 2)
	assert.JSONEq(t, `{"run_id": "run-2", "status": "halted"}`, events[1].Data)
}
