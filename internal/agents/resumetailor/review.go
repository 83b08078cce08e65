package resumetailor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/ats"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/state"
)

// changelogExcerptChars is how much of each resume version the changelog
// prompt sees.
const changelogExcerptChars = 1000

// NewATSValidator scores the customized resume and, below the pass bar, sends
// the run back to the experience optimizer with the missing keywords.
func NewATSValidator(d *agents.Deps) *pipeline.GateStage {
	threshold := pipeline.Threshold{Pass: d.Gates.ATSPass, MaxRetries: d.Gates.ATSMaxRetries}
	if threshold.Pass <= 0 {
		threshold.Pass = ats.DefaultThreshold
	}
	scorer := ats.NewScorer(threshold.Pass)

	return pipeline.NewGateStage(StageATSValidator,
		[]state.Slot{state.SlotCustomizedResume, state.SlotJobAnalysis},
		[]state.Slot{state.SlotATSScore, state.SlotATSFeedback},
		threshold,
		func(_ context.Context, st *state.State) (pipeline.Score, error) {
			resume := customized(*st)
			if strings.TrimSpace(resume) == "" {
				st.ATSScore = state.Ptr(0.0)
				st.ATSFeedback = state.Document{"error": ErrNoCustomizedResume.Error()}
				return pipeline.Score{}, ErrNoCustomizedResume
			}

			report := scorer.Score(resume, ats.JobKeywords(st.JobAnalysis))
			st.ATSScore = state.Ptr(report.OverallScore)
			st.ATSFeedback = report.Document()
			return pipeline.Score{
				Value: report.OverallScore,
				Feedback: &state.RetryFeedback{
					MissingKeywords: report.RetryKeywords(),
					Recommendations: report.Recommendations,
				},
				Summary: fmt.Sprintf("ATS score: %.1f/100 (%d/%d keywords)",
					report.OverallScore, report.Keywords.MatchCount, report.Keywords.TotalKeywords),
			}, nil
		})
}

// NewQAAgent checks the customized resume against the original for invented
// content. A failed check is reported as an error but the resume is still
// delivered.
func NewQAAgent(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageQA,
		ReadSlots:  []state.Slot{state.SlotCustomizedResume, state.SlotMatchedProjects, state.SlotOptimizedExperience},
		WriteSlots: []state.Slot{state.SlotQAResults, state.SlotHallucinationCheck},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			if customized(st) == "" {
				return agents.Call{}, ErrNoCustomizedResume
			}
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.1,
				File:        prompts.ResumeFile,
				System:      "qa-system",
				User:        "qa-user",
				Data: map[string]string{
					"OriginalResume":      st.Inputs.ResumeText,
					"CustomizedResume":    customized(st),
					"MatchedProjects":     agents.JSONText(projectsForPrompt(st.MatchedProjects)),
					"OptimizedExperience": agents.JSONText(st.OptimizedExperience),
				},
				Schema: "qa_results",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			passed, _ := r.Doc.Bool("hallucination_check_passed")
			st.QAResults = r.Doc
			st.HallucinationCheck = state.Ptr(passed)
			if !passed {
				return "", ErrHallucination
			}
			return fmt.Sprintf("QA complete: no hallucinations, %d warnings", len(r.Doc.Strings("warnings"))), nil
		},
		Fallback: func(st *state.State, err error) {
			if errors.Is(err, ErrHallucination) {
				return
			}
			st.QAResults = state.Document{"error": err.Error()}
			st.HallucinationCheck = state.Ptr(false)
		},
	}
}

// NewDiffGenerator reports what changed between the original and the
// customized resume: line statistics, a capped unified diff and a model
// written changelog. The statistics survive a failed changelog call.
func NewDiffGenerator(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:      d,
		StageName: StageDiffGenerator,
		ReadSlots: []state.Slot{
			state.SlotCustomizedResume, state.SlotParsedResume, state.SlotMatchedProjects,
			state.SlotOptimizedExperience, state.SlotATSScore,
		},
		WriteSlots: []state.Slot{state.SlotDiffReport},
		Skip: func(st *state.State) (string, bool) {
			if customized(*st) != "" {
				return "", false
			}
			st.DiffReport = state.Document{"error": "No resume to compare"}
			return "Diff skipped: no customized resume to compare", true
		},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			stats, raw := LineDiff(st.Inputs.ResumeText, customized(st))
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.2,
				File:        prompts.ResumeFile,
				System:      "changelog-system",
				User:        "changelog-user",
				Data: map[string]string{
					"OriginalExcerpt":     agents.TextOr(agents.Truncate(st.Inputs.ResumeText, changelogExcerptChars), agents.NoneText),
					"CustomizedExcerpt":   agents.Truncate(customized(st), changelogExcerptChars),
					"OriginalProjects":    agents.JSONText(st.ParsedResume["projects"]),
					"MatchedProjects":     agents.JSONText(projectsForPrompt(st.MatchedProjects)),
					"OptimizedExperience": agents.JSONText(st.OptimizedExperience),
					"ATSScore":            atsScoreText(st.ATSScore),
				},
				Schema: "changelog",
				Meta:   map[string]any{"stats": stats, "raw": raw},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			stats := r.Meta["stats"].(DiffStats)
			st.DiffReport = diffReport(map[string]any(r.Doc), stats, r.Meta["raw"].(string), st.ATSScore)
			return fmt.Sprintf("Diff report generated: %d additions, %d deletions", stats.LinesAdded, stats.LinesRemoved), nil
		},
		Fallback: func(st *state.State, err error) {
			stats, raw := LineDiff(st.Inputs.ResumeText, customized(*st))
			report := diffReport(map[string]any{"summary": "Error generating diff"}, stats, raw, st.ATSScore)
			report["error"] = err.Error()
			st.DiffReport = report
		},
	}
}

func diffReport(changelog map[string]any, stats DiffStats, raw string, score *float64) state.Document {
	report := state.Document{
		"changelog":  changelog,
		"statistics": stats.Document(),
		"raw_diff":   raw,
	}
	if score != nil {
		report["ats_score"] = *score
	}
	return report
}

func atsScoreText(score *float64) string {
	if score == nil {
		return "Not scored"
	}
	return fmt.Sprintf("%.1f/100", *score)
}
