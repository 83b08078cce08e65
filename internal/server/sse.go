package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/application-agent/internal/generation"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// ProgressEvent is the payload of one "progress" SSE event.
type ProgressEvent struct {
	Agent    string               `json:"agent"`
	Stages   []string             `json:"stages,omitempty"`
	Status   pipeline.EventStatus `json:"status"`
	Step     int                  `json:"step"`
	Messages []string             `json:"messages"`
	Errors   []state.StageError   `json:"errors,omitempty"`
	State    map[string]bool      `json:"state,omitempty"`
}

// newProgressEvent describes one completed unit; step counts from 1.
func newProgressEvent(ev pipeline.Event, step int) ProgressEvent {
	return ProgressEvent{
		Agent:    ev.Unit,
		Stages:   ev.Stages,
		Status:   ev.Status,
		Step:     step,
		Messages: ev.Messages,
		Errors:   ev.Errors,
		State:    ev.Flags,
	}
}

// CompleteEvent is the payload of the final "complete" SSE event.
type CompleteEvent struct {
	RunID        string `json:"run_id"`
	Status       string `json:"status"`
	GenerationID string `json:"generation_id,omitempty"`
}

// streamWriter writes a generation run as Server-Sent Events: "progress"
// per unit, then "result" and "complete".
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	step    int
}

// canStream reports whether w can flush events as they are written.
func canStream(w http.ResponseWriter) bool {
	_, ok := w.(http.Flusher)
	return ok
}

// newStreamWriter sets the SSE headers. Call it only once the run has been
// accepted so rejections keep plain JSON headers.
func newStreamWriter(w http.ResponseWriter) (*streamWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	return &streamWriter{w: w, flusher: flusher}, nil
}

// WriteUpdate sends u as progress, or as result plus complete when it is the
// terminal update.
func (s *streamWriter) WriteUpdate(u generation.Update) error {
	if u.Result != nil {
		if err := s.writeEvent("result", u.Result); err != nil {
			return err
		}
		return s.writeEvent("complete", CompleteEvent{
			RunID:        u.Result.RunID,
			Status:       string(u.Status),
			GenerationID: u.Result.GenerationID,
		})
	}
	s.step++
	return s.writeEvent("progress", newProgressEvent(u.Event, s.step))
}

func (s *streamWriter) writeEvent(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
