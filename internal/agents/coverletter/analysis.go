package coverletter

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/search"
	"github.com/jonathan/application-agent/internal/state"
)

const (
	styleExampleCount = 3
	styleExampleChars = 400
	noExamples        = "No examples found"
)

// NewInputAnalyzer extracts the job requirements from the description.
func NewInputAnalyzer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageInputAnalyzer,
		WriteSlots: []state.Slot{state.SlotJobAnalysis, state.SlotJobTitle},
		Require:    requireJobDescription,
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.2,
				File:        prompts.CoverLetterFile,
				System:      "input-analyzer-system",
				User:        "input-analyzer-user",
				Data: map[string]string{
					"CompanyName":    st.Inputs.CompanyName,
					"JobDescription": st.Inputs.JobDescription,
				},
				Schema: "job_analysis",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			title := agents.TextOr(r.Doc.String("job_title"), agents.TextOr(st.Inputs.JobTitle, DefaultJobTitle))
			st.JobAnalysis = r.Doc
			st.JobTitle = state.Ptr(title)
			return "Analyzed job: " + title, nil
		},
		Fallback: func(st *state.State, _ error) {
			st.JobTitle = state.Ptr(agents.TextOr(st.Inputs.JobTitle, DefaultJobTitle))
		},
	}
}

// NewResumeAnalyzer merges the resume, repositories and stored profile into
// one qualification summary.
func NewResumeAnalyzer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageResumeAnalyzer,
		ReadSlots:  []state.Slot{state.SlotJobAnalysis, state.SlotGitHub, state.SlotDBProfile},
		WriteSlots: []state.Slot{state.SlotResumeAnalysis},
		Require: func(st state.State) error {
			if strings.TrimSpace(st.Inputs.ResumeText) == "" {
				return ErrNoResume
			}
			return nil
		},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.2,
				File:        prompts.CoverLetterFile,
				System:      "resume-analyzer-system",
				User:        "resume-analyzer-user",
				Data: map[string]string{
					"Resume":          st.Inputs.ResumeText,
					"GitHubData":      agents.JSONText(githubSummary(st.GitHub)),
					"Profile":         agents.JSONText(st.DBProfile),
					"JobRequirements": agents.JSONText(st.JobAnalysis),
				},
				Schema: "resume_analysis",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			st.ResumeAnalysis = r.Doc
			return fmt.Sprintf("Analyzed resume: %d core skills identified", len(r.Doc.Strings("core_skills"))), nil
		},
	}
}

// NewStyleAnalyzer builds a writing style guide, grounded on example
// documents when a searcher is available. Search trouble only costs the
// examples; a failed model call falls back to a stock guide.
func NewStyleAnalyzer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageStyleAnalyzer,
		ReadSlots:  []state.Slot{state.SlotJobAnalysis},
		WriteSlots: []state.Slot{state.SlotWritingStyle},
		Build: func(ctx context.Context, st state.State) (agents.Call, error) {
			label := documentLabel(st.Inputs.DocumentType)
			seniority := agents.TextOr(st.JobAnalysis.String("seniority_level"), "mid")
			examples, source := styleExamples(ctx, d, label, seniority, st.RunID)
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.3,
				File:        prompts.CoverLetterFile,
				System:      "style-analyzer-system",
				User:        "style-analyzer-user",
				Data: map[string]string{
					"DocumentType": label,
					"Seniority":    seniority,
					"Examples":     examples,
				},
				Schema: "writing_style",
				Meta:   map[string]any{"source": source},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			r.Doc["source"] = r.Meta["source"]
			st.WritingStyle = r.Doc
			return fmt.Sprintf("Style guide ready: %s tone", agents.TextOr(r.Doc.String("tone"), "professional")), nil
		},
		Fallback: func(st *state.State, _ error) {
			st.WritingStyle = DefaultStyleGuide()
		},
	}
}

func styleExamples(ctx context.Context, d *agents.Deps, label, seniority, runID string) (string, string) {
	if d.Search == nil {
		return noExamples, "default"
	}
	results, err := d.Search.Search(ctx, search.Query{
		Text:  fmt.Sprintf("professional %s examples %s level best practices", label, seniority),
		Count: styleExampleCount,
	})
	if err != nil {
		d.Log().Warn("style example search failed", zap.String("stage", StageStyleAnalyzer), zap.String("run_id", runID), zap.Error(err))
		return noExamples, "default"
	}
	if len(results) == 0 {
		return noExamples, "default"
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s\n", r.Title, agents.Truncate(r.Snippet, styleExampleChars))
	}
	return b.String(), "search"
}

// DefaultStyleGuide is the guide used when none could be generated.
func DefaultStyleGuide() state.Document {
	return state.Document{
		"tone": "professional",
		"structure": map[string]any{
			"opening": "Specific hook about the company",
			"body":    "Two or three concrete achievements tied to the role",
			"closing": "Clear call to action",
		},
		"dos":              []any{"Be specific", "Use numbers", "Show enthusiasm"},
		"donts":            []any{"Use generic phrases", "Repeat the resume"},
		"key_phrases":      []any{},
		"length_guideline": "250-400 words",
		"source":           "fallback",
	}
}
