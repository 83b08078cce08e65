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

const defaultJobTitle = "Position"

// NewJDAnalyzer extracts technical requirements and ATS keywords from the
// job description.
func NewJDAnalyzer(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageJDAnalyzer,
		WriteSlots: []state.Slot{state.SlotJobAnalysis, state.SlotJobTitle},
		Require:    requireJobDescription,
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.2,
				File:        prompts.ResumeFile,
				System:      "jd-analyzer-system",
				User:        "jd-analyzer-user",
				Data: map[string]string{
					"CompanyName":    st.Inputs.CompanyName,
					"JobDescription": st.Inputs.JobDescription,
				},
				Schema: "jd_analysis",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			r.Doc["company_name"] = st.Inputs.CompanyName
			r.Doc["analysis_method"] = "llm"
			st.JobAnalysis = r.Doc
			st.JobTitle = state.Ptr(agents.TextOr(r.Doc.String("job_title"), agents.TextOr(st.Inputs.JobTitle, defaultJobTitle)))
			return fmt.Sprintf("JD analysis complete: %d ATS keywords extracted", len(ats.JobKeywords(r.Doc))), nil
		},
		Fallback: func(st *state.State, err error) {
			st.JobAnalysis = state.Document{
				"error":        err.Error(),
				"company_name": st.Inputs.CompanyName,
				"tech_stack":   map[string]any{},
				"ats_keywords": []any{},
			}
			st.JobTitle = state.Ptr(agents.TextOr(st.Inputs.JobTitle, defaultJobTitle))
		},
	}
}

// NewResumeParser splits the resume into sections without rewording them.
func NewResumeParser(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageResumeParser,
		WriteSlots: []state.Slot{state.SlotParsedResume},
		Require:    requireResume,
		Build: func(_ context.Context, st state.State) (agents.Call, error) {
			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.1,
				File:        prompts.ResumeFile,
				System:      "resume-parser-system",
				User:        "resume-parser-user",
				Data:        map[string]string{"Resume": st.Inputs.ResumeText},
				Schema:      "parsed_resume",
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			experience := len(r.Doc.List("experience"))
			projects := countItems(r.Doc["projects"])
			r.Doc["total_experience_items"] = experience
			r.Doc["total_projects"] = projects
			st.ParsedResume = r.Doc
			return fmt.Sprintf("Resume parsed: %d experience entries, %d projects", experience, projects), nil
		},
		Fallback: func(st *state.State, err error) {
			st.ParsedResume = state.Document{
				"error":      err.Error(),
				"experience": []any{},
				"projects":   []any{},
				"skills":     map[string]any{},
			}
		},
	}
}

func countItems(v any) int {
	if list, ok := v.([]any); ok {
		return len(list)
	}
	return 0
}
