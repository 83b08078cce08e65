package pipeline

import (
	"context"
	"fmt"
	"slices"

	"github.com/jonathan/application-agent/internal/state"
)

// Decision is the outcome of one threshold evaluation.
type Decision string

const (
	DecisionPassed       Decision = "passed"
	DecisionRetryPending Decision = "retry_pending"
	DecisionExhausted    Decision = "exhausted"
)

// GateStatusError is written to State.GateStatus when scoring itself failed.
const GateStatusError = "error"

// Threshold is a bounded-retry pass bar on a 0-100 score.
type Threshold struct {
	Pass       float64
	MaxRetries int
}

// Evaluate returns the decision for score given the retries already spent.
func (t Threshold) Evaluate(score float64, retryCount int) Decision {
	switch {
	case score >= t.Pass:
		return DecisionPassed
	case retryCount < t.MaxRetries:
		return DecisionRetryPending
	default:
		return DecisionExhausted
	}
}

// Apply evaluates score and records the outcome on st. A pending retry bumps
// RetryCount and attaches fb for the stages that run again.
func (t Threshold) Apply(st *state.State, score float64, fb *state.RetryFeedback) Decision {
	d := t.Evaluate(score, st.RetryCount)
	st.ValidationPassed = state.Ptr(d == DecisionPassed)
	st.GateStatus = string(d)
	st.RetryPending = d == DecisionRetryPending

	if d == DecisionRetryPending {
		st.RetryCount++
		next := state.RetryFeedback{}
		if fb != nil {
			next = *fb
			next.MissingKeywords = slices.Clone(fb.MissingKeywords)
			next.Recommendations = slices.Clone(fb.Recommendations)
		}
		next.Attempt = st.RetryCount
		next.Score = score
		st.Feedback = &next
	}
	return d
}

// Score is what a gate's scoring function reports.
type Score struct {
	Value    float64
	Feedback *state.RetryFeedback
	// Summary leads the progress message, e.g. "ATS score: 82/100".
	Summary string
}

// ScoreFunc computes a score and writes the gate's own output slots on st.
type ScoreFunc func(ctx context.Context, st *state.State) (Score, error)

// GateStage is a Stage that scores the state and applies a Threshold.
type GateStage struct {
	name      string
	reads     []state.Slot
	writes    []state.Slot
	threshold Threshold
	score     ScoreFunc
}

// NewGateStage builds a gate stage. SlotValidationPassed is always among its
// writes.
func NewGateStage(name string, reads, writes []state.Slot, t Threshold, fn ScoreFunc) *GateStage {
	if !slices.Contains(writes, state.SlotValidationPassed) {
		writes = append(slices.Clone(writes), state.SlotValidationPassed)
	}
	return &GateStage{name: name, reads: reads, writes: writes, threshold: t, score: fn}
}

func (g *GateStage) Name() string { return g.name }

func (g *GateStage) Reads() []state.Slot { return g.reads }

func (g *GateStage) Writes() []state.Slot { return g.writes }

// Threshold returns the gate's pass bar.
func (g *GateStage) Threshold() Threshold { return g.threshold }

// Execute scores the state. A scoring failure fails closed: validation is
// marked not passed and no retry is requested.
func (g *GateStage) Execute(ctx context.Context, st state.State) state.State {
	sc, err := g.score(ctx, &st)
	if err != nil {
		st.ValidationPassed = state.Ptr(false)
		st.GateStatus = GateStatusError
		st.RetryPending = false
		st.Fail(g.name, err)
		return st
	}

	d := g.threshold.Apply(&st, sc.Value, sc.Feedback)
	summary := sc.Summary
	if summary == "" {
		summary = fmt.Sprintf("Score: %.1f/100", sc.Value)
	}

	var msg string
	switch d {
	case DecisionPassed:
		msg = fmt.Sprintf("%s (passed, threshold %.0f)", summary, g.threshold.Pass)
	case DecisionRetryPending:
		msg = fmt.Sprintf("%s below threshold %.0f, retry %d/%d", summary, g.threshold.Pass, st.RetryCount, g.threshold.MaxRetries)
	default:
		msg = fmt.Sprintf("%s below threshold %.0f, needs review", summary, g.threshold.Pass)
	}
	st.Record(g.name, msg)
	return st
}
