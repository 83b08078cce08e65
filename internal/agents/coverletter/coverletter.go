// Package coverletter contains the stages of the cover letter and cold email
// pipelines: job and company analysis, candidate profile assembly, drafting,
// humanizing and the final quality review.
package coverletter

import (
	"errors"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/state"
)

// Stage names, also used as progress and error attribution.
const (
	StageInputAnalyzer    = "input_analyzer"
	StageResearch         = "research_agent"
	StageGitHub           = "github_agent"
	StageUserInfo         = "userinfo_agent"
	StageResumeAnalyzer   = "resume_analyzer"
	StageStyleAnalyzer    = "style_analyzer"
	StageContentGenerator = "content_generator"
	StageHumanizer        = "humanizer"
	StageQualityCheck     = "quality_check"
)

// DefaultJobTitle is used when neither the request nor the analysis names one.
const DefaultJobTitle = "Position"

var (
	ErrNoJobDescription = errors.New("no job description provided")
	ErrNoCompany        = errors.New("no company name provided")
	ErrNoResume         = errors.New("no resume provided")
	ErrNoUserID         = errors.New("no user ID provided")
	ErrUserNotFound     = errors.New("user not found")
	ErrNoContent        = errors.New("no content to process")
)

// NewGitHubAgent returns the source-control stage of these pipelines.
func NewGitHubAgent(d *agents.Deps) pipeline.Stage {
	return agents.NewRepositoryStage(d, StageGitHub)
}

func requireJobDescription(st state.State) error {
	if st.Inputs.JobDescription == "" {
		return ErrNoJobDescription
	}
	return nil
}

func jobTitle(st state.State) string {
	if st.JobTitle != nil && *st.JobTitle != "" {
		return *st.JobTitle
	}
	return agents.TextOr(st.Inputs.JobTitle, DefaultJobTitle)
}

// documentLabel is the human form of the document type used in prompts.
func documentLabel(t state.DocumentType) string {
	if t == state.ColdEmail {
		return "cold email"
	}
	return "cover letter"
}

// githubSummary is the slice of repository data worth putting in a prompt.
func githubSummary(gh *state.GitHubData) any {
	if gh == nil || (len(gh.Projects) == 0 && len(gh.Languages) == 0) {
		return nil
	}
	return map[string]any{
		"languages":   gh.Languages,
		"projects":    gh.Projects,
		"total_repos": gh.TotalRepos,
	}
}
