package resumetailor

import (
	"context"
	"fmt"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/ats"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/state"
)

// NewATSAnalyzer scores the resume as submitted. Unlike the validator it
// never sends the run back.
func NewATSAnalyzer(d *agents.Deps) pipeline.Stage {
	pass := d.Gates.ATSPass
	if pass <= 0 {
		pass = ats.DefaultThreshold
	}
	scorer := ats.NewScorer(pass)

	return pipeline.NewStage(StageATSAnalyzer,
		[]state.Slot{state.SlotJobAnalysis},
		[]state.Slot{state.SlotATSScore, state.SlotATSFeedback},
		func(_ context.Context, st state.State) state.State {
			if err := requireResume(st); err != nil {
				st.Fail(StageATSAnalyzer, err)
				return st
			}
			report := scorer.Score(st.Inputs.ResumeText, ats.JobKeywords(st.JobAnalysis))
			st.ATSScore = state.Ptr(report.OverallScore)
			st.ATSFeedback = report.Document()
			st.Record(StageATSAnalyzer, fmt.Sprintf("ATS analysis: %.1f/100 (%d/%d keywords matched)",
				report.OverallScore, report.Keywords.MatchCount, report.Keywords.TotalKeywords))
			return st
		})
}

// NewSuggestionGenerator produces advice the candidate applies by hand.
func NewSuggestionGenerator(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:      d,
		StageName: StageSuggestionGenerator,
		ReadSlots: []state.Slot{
			state.SlotJobAnalysis, state.SlotJobTitle, state.SlotParsedResume, state.SlotGitHub, state.SlotATSFeedback,
		},
		WriteSlots: []state.Slot{state.SlotSuggestions},
		Require:    requireResume,
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			var projects any
			if st.GitHub != nil {
				projects = st.GitHub.Projects
			}
			title := defaultJobTitle
			if st.JobTitle != nil {
				title = *st.JobTitle
			}
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.3,
				File:        prompts.ResumeFile,
				System:      "suggestions-system",
				User:        "suggestions-user",
				Data: map[string]string{
					"JobTitle":        title,
					"CompanyName":     st.Inputs.CompanyName,
					"JobRequirements": agents.JSONText(st.JobAnalysis),
					"Resume":          st.Inputs.ResumeText,
					"GitHubProjects":  agents.JSONText(projects),
					"ATSAnalysis":     agents.JSONText(st.ATSFeedback),
				},
				Schema: "suggestions",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			st.Suggestions = r.Doc
			return fmt.Sprintf("Generated %d priority suggestions", len(r.Doc.List("priority_changes"))), nil
		},
	}
}
