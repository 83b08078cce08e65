// Package resumetailor contains the stages that customize a resume for a job
// posting, validate the result and report what changed, plus the lighter
// suggestions pipeline that only advises.
package resumetailor

import (
	"errors"
	"strings"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// Stage names.
const (
	StageJDAnalyzer          = "jd_analyzer"
	StageResumeParser        = "resume_parser"
	StageGitHubFetcher       = "github_fetcher"
	StageProjectMatcher      = "project_matcher"
	StageExperienceOptimizer = "experience_optimizer"
	StageResumeRebuilder     = "resume_rebuilder"
	StageATSValidator        = "ats_validator"
	StageQA                  = "qa_agent"
	StageDiffGenerator       = "diff_generator"
	StageATSAnalyzer         = "ats_analyzer"
	StageSuggestionGenerator = "suggestion_generator"
)

var (
	ErrNoJobDescription   = errors.New("no job description provided")
	ErrNoResume           = errors.New("no resume provided")
	ErrNoCustomizedResume = errors.New("no customized resume to check")
	ErrHallucination      = errors.New("QA: potential hallucinations detected")
)

// NewGitHubFetcher returns the source-control stage of these pipelines.
func NewGitHubFetcher(d *agents.Deps) pipeline.Stage {
	return agents.NewRepositoryStage(d, StageGitHubFetcher)
}

func requireJobDescription(st state.State) error {
	if strings.TrimSpace(st.Inputs.JobDescription) == "" {
		return ErrNoJobDescription
	}
	return nil
}

func requireResume(st state.State) error {
	if strings.TrimSpace(st.Inputs.ResumeText) == "" {
		return ErrNoResume
	}
	return nil
}

func customized(st state.State) string {
	if st.CustomizedResume == nil {
		return ""
	}
	return *st.CustomizedResume
}
