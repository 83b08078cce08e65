package agents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/llm/llmtest"
	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/state"
)

func humanizerCall(_ context.Context, st state.State) (Call, error) {
	return Call{
		Tier:        llm.TierAdvanced,
		Temperature: 0.6,
		File:        prompts.CoverLetterFile,
		System:      "humanizer-system",
		User:        "humanizer-user",
		Data:        map[string]string{"Content": *st.GeneratedContent},
	}, nil
}

func textStage(d *Deps) *Generative {
	return &Generative{
		Deps:       d,
		StageName:  "humanizer",
		ReadSlots:  []state.Slot{state.SlotGeneratedContent},
		WriteSlots: []state.Slot{state.SlotHumanizedContent},
		Require: func(st state.State) error {
			if st.GeneratedContent == nil {
				return errors.New("no content to humanize")
			}
			return nil
		},
		Build: humanizerCall,
		Apply: func(st *state.State, r Reply) (string, error) {
			st.HumanizedContent = state.Ptr(r.Text)
			return "Humanized", nil
		},
		Fallback: func(st *state.State, _ error) {
			st.HumanizedContent = state.Ptr(*st.GeneratedContent)
		},
	}
}

func TestGenerative_RequireSkipsLLM(t *testing.T) {
	stub := llmtest.Fixed("unused")
	d := &Deps{LLM: stub}

	out := textStage(d).Execute(context.Background(), state.New("run", state.Inputs{}))

	assert.Equal(t, 0, stub.Calls())
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "no content to humanize", out.Errors[0].Message)
	assert.Len(t, out.Progress, 1)
	assert.Nil(t, out.HumanizedContent, "require failures do not run the fallback")
}

func TestGenerative_Success(t *testing.T) {
	stub := llmtest.Fixed("Hello there")
	metrics := observability.NewMetrics()
	d := &Deps{LLM: stub, Metrics: metrics}

	st := state.New("run", state.Inputs{})
	st.GeneratedContent = state.Ptr("I am writing to express my interest")
	out := textStage(d).Execute(context.Background(), st)

	assert.Empty(t, out.Errors)
	assert.Equal(t, []string{"Humanized"}, out.Progress)
	assert.Equal(t, "Hello there", *out.HumanizedContent)

	reqs := stub.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, llm.TierAdvanced, reqs[0].Tier)
	assert.Equal(t, 0.6, reqs[0].Temperature)
	assert.False(t, reqs[0].JSON)
	assert.Contains(t, reqs[0].Prompt, "I am writing to express my interest")
	assert.NotEmpty(t, reqs[0].System)
}

func TestGenerative_FailureRunsFallback(t *testing.T) {
	d := &Deps{LLM: llmtest.Failing(errors.New("quota exceeded"))}

	st := state.New("run", state.Inputs{})
	st.GeneratedContent = state.Ptr("draft")
	out := textStage(d).Execute(context.Background(), st)

	require.Len(t, out.Errors, 1)
	assert.Contains(t, out.Errors[0].Message, "quota exceeded")
	assert.Len(t, out.Progress, 1)
	assert.Equal(t, "draft", *out.HumanizedContent)
}

func TestGenerative_Skip(t *testing.T) {
	stub := llmtest.Fixed("unused")
	g := textStage(&Deps{LLM: stub})
	g.Skip = func(st *state.State) (string, bool) {
		st.HumanizedContent = state.Ptr("")
		return "nothing to do", true
	}

	st := state.New("run", state.Inputs{})
	st.GeneratedContent = state.Ptr("draft")
	out := g.Execute(context.Background(), st)

	assert.Equal(t, 0, stub.Calls())
	assert.Empty(t, out.Errors)
	assert.Equal(t, []string{"nothing to do"}, out.Progress)
}

func TestCompleteJSON(t *testing.T) {
	call := Call{
		Tier:   llm.TierStandard,
		File:   prompts.CoverLetterFile,
		System: "quality-check-system",
		User:   "quality-check-user",
		Data: map[string]string{
			"DocumentType": "cover letter",
			"Content":      "Dear team",
			"ResumeData":   NoneText,
			"CompanyData":  NoneText,
		},
		Schema: "quality_feedback",
	}

	tests := []struct {
		name    string
		reply   string
		wantErr bool
	}{
		{"fenced", "```json\n{\"overall_score\": 88}\n```", false},
		{"wrapped in prose", "Here you go: {\"overall_score\": 91, \"issues\": []} thanks", false},
		{"schema violation", `{"score": 88}`, true},
		{"not json", "looks great to me", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := llmtest.Fixed(tt.reply)
			d := &Deps{LLM: stub}
			doc, err := d.CompleteJSON(context.Background(), "quality_check", call)
			if tt.wantErr {
				require.Error(t, err)
				var parseErr *llm.ParseError
				assert.ErrorAs(t, err, &parseErr)
				return
			}
			require.NoError(t, err)
			_, ok := doc.Float("overall_score")
			assert.True(t, ok)
			assert.True(t, stub.Requests()[0].JSON)
		})
	}
}

type blockingClient struct{}

func (blockingClient) Complete(ctx context.Context, _ llm.Request) (*llm.Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingClient) Close() error { return nil }

func TestComplete_AppliesTimeout(t *testing.T) {
	d := &Deps{LLM: blockingClient{}, CallTimeout: 10 * time.Millisecond}
	call, _ := humanizerCall(context.Background(), state.State{GeneratedContent: state.Ptr("x")})

	_, err := d.Complete(context.Background(), "humanizer", call)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestComplete_MissingPromptData(t *testing.T) {
	stub := llmtest.Fixed("x")
	d := &Deps{LLM: stub}
	_, err := d.Complete(context.Background(), "humanizer", Call{
		File: prompts.CoverLetterFile,
		User: "humanizer-user",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Content")
	assert.Equal(t, 0, stub.Calls())
}

func TestComplete_NoClient(t *testing.T) {
	_, err := (&Deps{}).Complete(context.Background(), "x", Call{})
	require.Error(t, err)
}
