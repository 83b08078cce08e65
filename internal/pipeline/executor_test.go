package pipeline

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/state"
)

func TestFanOut_MatchesSequential(t *testing.T) {
	a := writer("input_analyzer", state.SlotJobAnalysis, state.Document{"job_title": "Senior Backend Engineer"})
	b := writer("research_agent", state.SlotCompanyResearch, state.Document{"company_overview": "Acme builds rockets"})

	runner := NewRunner(Options{MaxConcurrency: 4})
	parallel := runner.Run(context.Background(), Plan{Name: "parallel", Units: []Unit{Parallel("phase1", a, b)}}, newState())
	sequential := runner.Run(context.Background(), Plan{Name: "sequential", Units: []Unit{Single(a), Single(b)}}, newState())

	for _, slot := range state.AllSlots {
		assert.Equal(t, sequential.Has(slot), parallel.Has(slot), slot)
	}
	assert.Equal(t, sequential.JobAnalysis, parallel.JobAnalysis)
	assert.Equal(t, sequential.CompanyResearch, parallel.CompanyResearch)
	assert.ElementsMatch(t, sequential.Progress, parallel.Progress)
	assert.Empty(t, parallel.Errors)
}

func TestFanOut_FailureDoesNotCancelSiblings(t *testing.T) {
	exec := NewExecutor(4, nil, nil)
	st := newState()
	st.Record("setup", "already here")

	out := exec.FanOut(context.Background(), "test", []Stage{
		failing("research_agent", state.SlotCompanyResearch),
		slowWriter("input_analyzer", state.SlotJobAnalysis, state.Document{"job_title": "x"}, 30*time.Millisecond),
	}, st)

	assert.Nil(t, out.CompanyResearch)
	require.NotNil(t, out.JobAnalysis)
	assert.Equal(t, "x", out.JobAnalysis.String("job_title"))

	require.Len(t, out.Errors, 1)
	assert.Equal(t, "research_agent", out.Errors[0].Stage)
	// declared order: failing stage first, then the slow one
	assert.Equal(t, []string{"already here", "research_agent failed: upstream unavailable", "input_analyzer done"}, out.Progress)
	assert.Equal(t, "input_analyzer", out.CurrentStage)
}

func TestFanOut_OnlyOwnedSlotsMerge(t *testing.T) {
	rogue := NewStage("rogue", nil, []state.Slot{state.SlotJobAnalysis}, func(ctx context.Context, st state.State) state.State {
		st.JobAnalysis = state.Document{"mine": true}
		st.CompanyResearch = state.Document{"not": "mine"}
		st.Record("rogue", "rogue done")
		return st
	})

	out := NewExecutor(2, nil, nil).FanOut(context.Background(), "test", []Stage{rogue}, newState())
	assert.NotNil(t, out.JobAnalysis)
	assert.Nil(t, out.CompanyResearch)
}

func TestFanOut_BranchesDoNotAlias(t *testing.T) {
	st := newState()
	st.JobAnalysis = state.Document{"skills": []any{"Go"}}

	mutate := NewStage("mutate", []state.Slot{state.SlotJobAnalysis}, []state.Slot{state.SlotCompanyResearch},
		func(ctx context.Context, st state.State) state.State {
			st.JobAnalysis["skills"].([]any)[0] = "Rust"
			st.CompanyResearch = state.Document{}
			return st
		})

	out := NewExecutor(2, nil, nil).FanOut(context.Background(), "test", []Stage{mutate}, st)
	assert.Equal(t, []string{"Go"}, out.JobAnalysis.Strings("skills"))
	assert.Equal(t, []string{"Go"}, st.JobAnalysis.Strings("skills"))
}

func TestExecutor_ConcurrencyCap(t *testing.T) {
	var active, peak atomic.Int32
	track := func(name string, slot state.Slot) Stage {
		return NewStage(name, nil, []state.Slot{slot}, func(ctx context.Context, st state.State) state.State {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
			st.Record(name, name+" done")
			return st
		})
	}

	stages := []Stage{
		track("a", state.SlotJobAnalysis),
		track("b", state.SlotCompanyResearch),
		track("c", state.SlotDBProfile),
		track("d", state.SlotResumeAnalysis),
		track("e", state.SlotWritingStyle),
		track("f", state.SlotParsedResume),
	}
	out := NewExecutor(2, nil, nil).FanOut(context.Background(), "test", stages, newState())

	assert.Len(t, out.Progress, 6)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestExecutor_CancelledContextFailsEachStage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	out := NewExecutor(1, nil, nil).FanOut(ctx, "test", []Stage{
		counting("a", state.SlotJobAnalysis, &calls),
		counting("b", state.SlotCompanyResearch, &calls),
	}, newState())

	assert.Equal(t, int32(0), calls.Load())
	require.Len(t, out.Errors, 2)
	assert.Contains(t, out.Errors[0].Message, "not scheduled")
	assert.Len(t, out.Progress, 2)
}

func TestExecutor_RecoversPanic(t *testing.T) {
	boom := NewStage("boom", nil, []state.Slot{state.SlotJobAnalysis}, func(ctx context.Context, st state.State) state.State {
		st.Record("boom", "half done")
		panic("nil map somewhere")
	})

	st := newState()
	out := NewExecutor(1, nil, nil).Run(context.Background(), "test", boom, st)

	require.Len(t, out.Errors, 1)
	assert.Equal(t, "boom", out.Errors[0].Stage)
	assert.Contains(t, out.Errors[0].Message, "panicked")
	// the half-finished copy is discarded
	assert.Len(t, out.Progress, 1)
	assert.Nil(t, out.JobAnalysis)
}
