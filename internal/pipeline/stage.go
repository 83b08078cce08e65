// Package pipeline runs declared plans of stages over a shared state: single
// stages in order, fan-out groups on a bounded pool, and threshold gates that
// can send the run back to an earlier unit.
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/jonathan/application-agent/internal/state"
)

// Stage is one unit of work. Execute receives its own copy of the state and
// returns the updated copy. Failures are recorded on the returned state with
// Fail, never returned or panicked.
type Stage interface {
	Name() string
	// Reads lists the slots the stage consumes. Each must be written by an
	// earlier unit of any plan containing the stage.
	Reads() []state.Slot
	// Writes lists the slots the stage owns. Only these are merged back from
	// a fan-out branch.
	Writes() []state.Slot
	Execute(ctx context.Context, st state.State) state.State
}

// Func adapts a function to Stage.
type Func struct {
	StageName  string
	ReadSlots  []state.Slot
	WriteSlots []state.Slot
	Fn         func(ctx context.Context, st state.State) state.State
}

// NewStage builds a Stage from a function.
func NewStage(name string, reads, writes []state.Slot, fn func(ctx context.Context, st state.State) state.State) *Func {
	return &Func{StageName: name, ReadSlots: reads, WriteSlots: writes, Fn: fn}
}

func (f *Func) Name() string { return f.StageName }

func (f *Func) Reads() []state.Slot { return f.ReadSlots }

func (f *Func) Writes() []state.Slot { return f.WriteSlots }

func (f *Func) Execute(ctx context.Context, st state.State) state.State {
	return f.Fn(ctx, st)
}

// PanicError is recorded when a stage panics.
type PanicError struct {
	Stage string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("stage %s panicked: %v", e.Stage, e.Value)
}

// safeExecute hands s a private copy of st. If the stage panics, the result
// is st plus one error entry for the stage.
func safeExecute(ctx context.Context, s Stage, st state.State) (out state.State, panicked *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			panicked = &PanicError{Stage: s.Name(), Value: r, Stack: debug.Stack()}
			out = st
			out.Fail(s.Name(), panicked)
		}
	}()
	return s.Execute(ctx, st.Clone()), nil
}
