package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/state"
)

// DefaultMaxConcurrency bounds concurrent stage executions per runner.
const DefaultMaxConcurrency = 4

// Executor runs stages on a bounded pool. One executor is owned by a runner
// for its whole lifetime, so its cap applies across every fan-out group and
// every run the runner drives.
type Executor struct {
	sem     *semaphore.Weighted
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewExecutor creates an executor allowing maxConcurrency stage executions at
// once. Non-positive values use DefaultMaxConcurrency.
func NewExecutor(maxConcurrency int64, logger *zap.Logger, metrics *observability.Metrics) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		sem:     semaphore.NewWeighted(maxConcurrency),
		logger:  logger,
		metrics: metrics,
	}
}

// Run executes a single stage against st.
func (e *Executor) Run(ctx context.Context, plan string, s Stage, st state.State) state.State {
	return e.run(ctx, plan, s, st)
}

// FanOut runs stages concurrently, each against its own copy of st, waits
// for all of them and merges their owned slots back in declared order.
// A failing or slow stage never cancels its siblings.
func (e *Executor) FanOut(ctx context.Context, plan string, stages []Stage, st state.State) state.State {
	snapshot := st.Clone()
	results := make([]state.State, len(stages))

	var g errgroup.Group
	for i, s := range stages {
		branch := snapshot.Clone()
		g.Go(func() error {
			results[i] = e.run(ctx, plan, s, branch)
			return nil
		})
	}
	_ = g.Wait()

	return merge(st, len(snapshot.Progress), len(snapshot.Errors), stages, results)
}

// merge copies each stage's declared writes from its branch and appends the
// progress and errors it added after the snapshot.
func merge(canonical state.State, baseProgress, baseErrors int, stages []Stage, results []state.State) state.State {
	out := canonical
	for i, s := range stages {
		res := results[i]
		for _, slot := range s.Writes() {
			state.CopySlot(&out, res, slot)
		}
		if len(res.Progress) > baseProgress {
			out.Progress = append(out.Progress, res.Progress[baseProgress:]...)
		}
		if len(res.Errors) > baseErrors {
			out.Errors = append(out.Errors, res.Errors[baseErrors:]...)
		}
		out.CurrentStage = s.Name()
	}
	return out
}

func (e *Executor) run(ctx context.Context, plan string, s Stage, st state.State) state.State {
	log := e.logger.With(zap.String("plan", plan), zap.String("stage", s.Name()), zap.String("run_id", st.RunID))

	if err := e.sem.Acquire(ctx, 1); err != nil {
		st.Fail(s.Name(), fmt.Errorf("not scheduled: %w", err))
		log.Warn("stage not scheduled", zap.Error(err))
		e.metrics.ObserveStage(plan, s.Name(), 0, 1)
		return st
	}
	defer e.sem.Release(1)

	errsBefore := len(st.Errors)
	start := time.Now()
	log.Debug("stage started")

	out, panicked := safeExecute(ctx, s, st)
	elapsed := time.Since(start)

	added := len(out.Errors) - errsBefore
	if added < 0 {
		added = 0
	}
	e.metrics.ObserveStage(plan, s.Name(), elapsed, added)

	switch {
	case panicked != nil:
		log.Error("stage panicked", zap.Any("panic", panicked.Value), zap.ByteString("stack", panicked.Stack))
	case added > 0:
		log.Warn("stage recorded errors",
			zap.Duration("duration", elapsed),
			zap.Int("errors", added),
			zap.String("last_error", out.Errors[len(out.Errors)-1].Message))
	default:
		log.Info("stage completed", zap.Duration("duration", elapsed))
	}
	return out
}
