package coverletter

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/state"
)

var errEmptyReply = errors.New("model returned empty content")

// NewContentGenerator drafts the cover letter or cold email.
func NewContentGenerator(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:      d,
		StageName: StageContentGenerator,
		ReadSlots: []state.Slot{
			state.SlotJobAnalysis, state.SlotJobTitle, state.SlotCompanyResearch,
			state.SlotGitHub, state.SlotDBProfile, state.SlotResumeAnalysis, state.SlotWritingStyle,
		},
		WriteSlots: []state.Slot{state.SlotGeneratedContent},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			system := "cover-letter-system"
			if st.Inputs.DocumentType == state.ColdEmail {
				system = "cold-email-system"
			}
			var projects any
			if st.GitHub != nil {
				projects = st.GitHub.Projects
			}
			return agents.Call{
				Tier:        llm.TierAdvanced,
				Temperature: 0.7,
				File:        prompts.CoverLetterFile,
				System:      system,
				User:        "content-user",
				Data: map[string]string{
					"JobTitle":           jobTitle(st),
					"CompanyName":        st.Inputs.CompanyName,
					"HRName":             agents.TextOr(st.Inputs.HRName, "Hiring Manager"),
					"CandidateName":      candidateName(st),
					"CompanyResearch":    agents.JSONText(st.CompanyResearch),
					"JobRequirements":    agents.JSONText(st.JobAnalysis),
					"Qualifications":     agents.JSONText(st.ResumeAnalysis),
					"GitHubProjects":     agents.JSONText(projects),
					"StyleGuide":         agents.JSONText(st.WritingStyle),
					"CustomInstructions": agents.TextOr(st.Inputs.CustomInstructions, "None"),
				},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			text := agents.StripFence(r.Text)
			if text == "" {
				return "", errEmptyReply
			}
			st.GeneratedContent = state.Ptr(text)
			return fmt.Sprintf("Generated %s: %d words", documentLabel(st.Inputs.DocumentType), agents.WordCount(text)), nil
		},
	}
}

// NewHumanizer rewrites the draft to read naturally. On failure the draft
// passes through unchanged.
func NewHumanizer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageHumanizer,
		ReadSlots:  []state.Slot{state.SlotGeneratedContent},
		WriteSlots: []state.Slot{state.SlotHumanizedContent},
		Require: func(st state.State) error {
			if st.GeneratedContent == nil || *st.GeneratedContent == "" {
				return ErrNoContent
			}
			return nil
		},
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierAdvanced,
				Temperature: 0.6,
				File:        prompts.CoverLetterFile,
				System:      "humanizer-system",
				User:        "humanizer-user",
				Data:        map[string]string{"Content": *st.GeneratedContent},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			text := agents.StripFence(r.Text)
			if text == "" {
				return "", errEmptyReply
			}
			st.HumanizedContent = state.Ptr(text)
			return fmt.Sprintf("Humanized content: %d words", agents.WordCount(text)), nil
		},
		Fallback: func(st *state.State, _ error) {
			st.HumanizedContent = state.Ptr(*st.GeneratedContent)
		},
	}
}

// NewQualityCheck scores the final draft. It never retries; a score below
// the bar or an unreadable review marks the document for manual review.
func NewQualityCheck(d *agents.Deps) *pipeline.GateStage {
	threshold := pipeline.Threshold{Pass: d.Gates.QualityPass, MaxRetries: 0}
	if threshold.Pass <= 0 {
		threshold.Pass = agents.DefaultPassScore
	}
	return pipeline.NewGateStage(StageQualityCheck,
		[]state.Slot{state.SlotHumanizedContent, state.SlotGeneratedContent, state.SlotResumeAnalysis, state.SlotCompanyResearch},
		[]state.Slot{state.SlotQualityScore, state.SlotQualityFeedback},
		threshold,
		func(ctx context.Context, st *state.State) (pipeline.Score, error) {
			content := st.PrimaryContent()
			if content == "" {
				return pipeline.Score{}, ErrNoContent
			}
			label := documentLabel(st.Inputs.DocumentType)
			doc, err := d.CompleteJSON(ctx, StageQualityCheck, agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.1,
				File:        prompts.CoverLetterFile,
				System:      "quality-check-system",
				User:        "quality-check-user",
				Data: map[string]string{
					"DocumentType": label,
					"Content":      content,
					"ResumeData":   agents.JSONText(st.ResumeAnalysis),
					"CompanyData":  agents.JSONText(st.CompanyResearch),
				},
				Schema: "quality_feedback",
			})
			if err != nil {
				return pipeline.Score{}, err
			}
			score, _ := doc.Float("overall_score")
			st.QualityFeedback = doc
			st.QualityScore = state.Ptr(score)
			return pipeline.Score{Value: score, Summary: fmt.Sprintf("Quality score: %.0f/100", score)}, nil
		})
}
