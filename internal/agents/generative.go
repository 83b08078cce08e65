package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/schemas"
	"github.com/jonathan/application-agent/internal/state"
)

// Call describes one completion made by a stage. System and User name prompt
// keys in File; Data fills both templates.
type Call struct {
	Tier        llm.ModelTier
	Temperature float64
	File        string
	System      string
	User        string
	Data        map[string]string
	// Schema, when set, asks for a JSON reply validated against the named
	// schema. An empty Schema means a plain-text reply.
	Schema string
	// Meta is handed to Apply untouched.
	Meta map[string]any
}

// Reply is a completion as seen by Apply. Doc is set for JSON calls.
type Reply struct {
	Text string
	Doc  state.Document
	Meta map[string]any
}

// Generative is a stage backed by a single LLM call. Execution order:
// Require, Skip, Build, the call itself, Apply. Any failure after Require
// records exactly one error and then runs Fallback so downstream stages see
// a degraded value instead of nothing.
type Generative struct {
	Deps       *Deps
	StageName  string
	ReadSlots  []state.Slot
	WriteSlots []state.Slot

	// Require rejects the run before any LLM call.
	Require func(st state.State) error
	// Skip short-circuits without an LLM call and without an error. It
	// writes its own slots and returns the progress message.
	Skip func(st *state.State) (string, bool)
	// Build may call fetch collaborators; its error triggers Fallback.
	Build func(ctx context.Context, st state.State) (Call, error)
	// Apply writes the reply into the state and returns the progress message.
	Apply func(st *state.State, r Reply) (string, error)
	// Fallback writes the degraded default. It must not record progress.
	Fallback func(st *state.State, err error)
}

func (g *Generative) Name() string { return g.StageName }

func (g *Generative) Reads() []state.Slot { return g.ReadSlots }

func (g *Generative) Writes() []state.Slot { return g.WriteSlots }

// Execute runs the call and applies its reply.
func (g *Generative) Execute(ctx context.Context, st state.State) state.State {
	if g.Require != nil {
		if err := g.Require(st); err != nil {
			st.Fail(g.StageName, err)
			return st
		}
	}
	if g.Skip != nil {
		if msg, ok := g.Skip(&st); ok {
			st.Record(g.StageName, msg)
			return st
		}
	}

	msg, err := g.run(ctx, &st)
	if err != nil {
		g.Deps.Log().Warn("stage degraded",
			zap.String("stage", g.StageName),
			zap.String("run_id", st.RunID),
			zap.Error(err))
		st.Fail(g.StageName, err)
		if g.Fallback != nil {
			g.Fallback(&st, err)
		}
		return st
	}
	st.Record(g.StageName, msg)
	return st
}

func (g *Generative) run(ctx context.Context, st *state.State) (string, error) {
	call, err := g.Build(ctx, *st)
	if err != nil {
		return "", err
	}
	reply := Reply{Meta: call.Meta}
	if call.Schema != "" {
		reply.Doc, err = g.Deps.CompleteJSON(ctx, g.StageName, call)
	} else {
		reply.Text, err = g.Deps.Complete(ctx, g.StageName, call)
	}
	if err != nil {
		return "", err
	}
	return g.Apply(st, reply)
}

// Complete renders call and returns the model's text. The call is bounded by
// CallTimeout and counted in the LLM metrics under stage.
func (d *Deps) Complete(ctx context.Context, stage string, call Call) (string, error) {
	if d.LLM == nil {
		return "", errors.New("no language model configured")
	}
	req, err := call.request()
	if err != nil {
		return "", err
	}

	timeout := d.CallTimeout
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	resp, err := d.LLM.Complete(callCtx, req)
	d.Metrics.ObserveLLMCall(stage, err != nil)
	if err != nil {
		return "", fmt.Errorf("llm call: %w", err)
	}
	d.Log().Debug("llm call",
		zap.String("stage", stage),
		zap.String("model", resp.Model),
		zap.Int64("input_tokens", resp.InputTokens),
		zap.Int64("output_tokens", resp.OutputTokens),
		zap.Duration("duration", time.Since(start)))
	return resp.Content, nil
}

// CompleteJSON is Complete followed by structured extraction and schema
// validation. Unparseable or invalid replies are errors.
func (d *Deps) CompleteJSON(ctx context.Context, stage string, call Call) (state.Document, error) {
	text, err := d.Complete(ctx, stage, call)
	if err != nil {
		return nil, err
	}
	doc, err := llm.ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	if call.Schema != "" {
		if err := schemas.Validate(call.Schema, doc); err != nil {
			return nil, &llm.ParseError{Message: "reply does not match " + call.Schema, Excerpt: excerpt(text, 200), Cause: err}
		}
	}
	return state.Document(doc), nil
}

func (c Call) request() (llm.Request, error) {
	var system string
	if c.System != "" {
		s, err := prompts.Render(c.File, c.System, c.Data)
		if err != nil {
			return llm.Request{}, err
		}
		system = s
	}
	user, err := prompts.Render(c.File, c.User, c.Data)
	if err != nil {
		return llm.Request{}, err
	}
	return llm.Request{
		Tier:        c.Tier,
		Temperature: c.Temperature,
		System:      system,
		Prompt:      user,
		JSON:        c.Schema != "",
	}, nil
}
