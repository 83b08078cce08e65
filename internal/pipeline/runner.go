package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/state"
)

// DefaultMaxReentries bounds gate re-entries per run.
const DefaultMaxReentries = 10

// TerminalUnit is the unit name carried by the last event of a stream.
const TerminalUnit = "complete"

// EventStatus describes how a unit ended.
type EventStatus string

const (
	StatusCompleted EventStatus = "completed"
	// StatusFailed means the unit added at least one error entry.
	StatusFailed   EventStatus = "failed"
	StatusRetrying EventStatus = "retrying"
	StatusFinished EventStatus = "finished"
	StatusHalted   EventStatus = "halted"
	StatusInvalid  EventStatus = "invalid_plan"
)

// Event is emitted after every completed unit, in plan order, and once more
// when the run ends with Unit == TerminalUnit and Final set.
type Event struct {
	Unit   string      `json:"agent"`
	Stages []string    `json:"stages,omitempty"`
	Status EventStatus `json:"status"`
	// Messages is the accumulated progress so far.
	Messages []string `json:"messages"`
	// Errors are the entries added by this unit only.
	Errors []state.StageError `json:"errors,omitempty"`
	Flags  map[string]bool    `json:"state,omitempty"`
	Final  *state.State       `json:"final_state,omitempty"`
}

// Options configure a Runner.
type Options struct {
	MaxConcurrency int64
	MaxReentries   int
	Logger         *zap.Logger
	Metrics        *observability.Metrics
}

// Runner drives plans to completion. It is safe for concurrent use; all runs
// share its executor's concurrency cap.
type Runner struct {
	exec         *Executor
	logger       *zap.Logger
	metrics      *observability.Metrics
	maxReentries int
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxReentries := opts.MaxReentries
	if maxReentries <= 0 {
		maxReentries = DefaultMaxReentries
	}
	return &Runner{
		exec:         NewExecutor(opts.MaxConcurrency, logger, opts.Metrics),
		logger:       logger,
		metrics:      opts.Metrics,
		maxReentries: maxReentries,
	}
}

// Run executes plan and returns the final state. It never fails: problems
// are reported in the state's error list.
func (r *Runner) Run(ctx context.Context, plan Plan, st state.State) state.State {
	return r.execute(ctx, plan, st, nil)
}

// RunWithProgress is Run with a callback invoked synchronously per event.
func (r *Runner) RunWithProgress(ctx context.Context, plan Plan, st state.State, onEvent func(Event)) state.State {
	return r.execute(ctx, plan, st, onEvent)
}

// Stream executes plan in the background and delivers events on the returned
// channel, which is closed after the terminal event. Once ctx is cancelled,
// events that do not fit the buffer are dropped; the run itself still
// completes.
func (r *Runner) Stream(ctx context.Context, plan Plan, st state.State) <-chan Event {
	events := make(chan Event, len(plan.Units)+1)
	go func() {
		defer close(events)
		r.execute(ctx, plan, st, func(ev Event) {
			// buffered room wins over cancellation
			select {
			case events <- ev:
				return
			default:
			}
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return events
}

func (r *Runner) execute(ctx context.Context, plan Plan, st state.State, emit func(Event)) state.State {
	start := time.Now()
	log := r.logger.With(zap.String("plan", plan.Name), zap.String("run_id", st.RunID))
	if emit == nil {
		emit = func(Event) {}
	}
	if st.Progress == nil {
		st.Progress = []string{}
	}
	if st.Errors == nil {
		st.Errors = []state.StageError{}
	}

	if err := plan.Validate(); err != nil {
		log.Error("refusing to run invalid plan", zap.Error(err))
		st.Fail("pipeline", err)
		st.Halted = true
		return r.finish(plan, st, start, StatusInvalid, emit)
	}

	log.Info("pipeline started", zap.Int("units", len(plan.Units)), zap.Int("stages", plan.StageCount()))

	reentries := 0
	for i := 0; i < len(plan.Units); {
		u := plan.Units[i]
		errsBefore := len(st.Errors)
		retriesBefore := st.RetryCount

		if u.Kind == UnitParallel {
			st = r.exec.FanOut(ctx, plan.Name, u.Stages, st)
		} else {
			st = r.exec.Run(ctx, plan.Name, u.Stages[0], st)
		}

		status := StatusCompleted
		if len(st.Errors) > errsBefore {
			status = StatusFailed
		}

		next := i + 1
		if u.Kind == UnitGate {
			r.metrics.ObserveGate(plan.Name, u.Name, st.GateStatus)
			if st.RetryPending {
				st.RetryPending = false
				// Re-enter only if the gate actually spent a retry
				if st.RetryCount > retriesBefore && reentries < r.maxReentries {
					reentries++
					next = plan.UnitIndex(u.ReEnter)
					status = StatusRetrying
					log.Info("gate requested retry",
						zap.String("gate", u.Name),
						zap.String("reenter", u.ReEnter),
						zap.Int("retry_count", st.RetryCount))
				}
			}
		}

		emit(Event{
			Unit:     u.Name,
			Stages:   u.StageNames(),
			Status:   status,
			Messages: append([]string(nil), st.Progress...),
			Errors:   append([]state.StageError(nil), st.Errors[errsBefore:]...),
			Flags:    st.Flags(),
		})

		if plan.Halt == HaltOnErrors && len(st.Errors) > errsBefore {
			st.Halted = true
			st.HaltedAt = u.Name
			log.Warn("halting after unit errors", zap.String("unit", u.Name), zap.Int("errors", len(st.Errors)-errsBefore))
			return r.finish(plan, st, start, StatusHalted, emit)
		}
		i = next
	}

	return r.finish(plan, st, start, StatusFinished, emit)
}

func (r *Runner) finish(plan Plan, st state.State, start time.Time, status EventStatus, emit func(Event)) state.State {
	elapsed := time.Since(start)
	st.Elapsed = &elapsed
	r.metrics.ObserveRun(plan.Name, string(status), elapsed)
	r.logger.Info("pipeline finished",
		zap.String("plan", plan.Name),
		zap.String("run_id", st.RunID),
		zap.String("status", string(status)),
		zap.Duration("duration", elapsed),
		zap.Int("errors", len(st.Errors)))

	final := st.Clone()
	emit(Event{
		Unit:     TerminalUnit,
		Status:   status,
		Messages: append([]string(nil), st.Progress...),
		Flags:    st.Flags(),
		Final:    &final,
	})
	return st
}
