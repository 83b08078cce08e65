package agents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/application-agent/internal/sourcecontrol"
	"github.com/jonathan/application-agent/internal/state"
)

type fakeRepos struct {
	repos []sourcecontrol.Repository
	err   error
	calls int
	last  sourcecontrol.FetchOptions
}

func (f *fakeRepos) FetchRepositories(_ context.Context, opts sourcecontrol.FetchOptions) ([]sourcecontrol.Repository, error) {
	f.calls++
	f.last = opts
	return f.repos, f.err
}

func withToken() state.State {
	return state.New("run", state.Inputs{Profile: state.Profile{GitHubToken: "tok", GitHubUsername: "octo"}})
}

func TestRepositoryStage_NoAccount(t *testing.T) {
	repos := &fakeRepos{}
	stage := NewRepositoryStage(&Deps{Repos: repos}, "github_agent")

	out := stage.Execute(context.Background(), state.New("run", state.Inputs{}))

	assert.Equal(t, 0, repos.calls)
	require.NotNil(t, out.GitHub)
	assert.Equal(t, SourceNone, out.GitHub.Source)
	assert.Empty(t, out.Errors)
	assert.Len(t, out.Progress, 1)
	assert.Contains(t, out.Progress[0], "skipped")
}

func TestRepositoryStage_DefaultTokenAndCaps(t *testing.T) {
	repos := &fakeRepos{}
	d := (&Deps{Repos: repos, DefaultGitHubToken: "env-token", DefaultGitHubUsername: "bot"}).WithDefaults()
	d.Limits.MaxRepos, d.Limits.MaxEnrich = 7, 3

	out := NewRepositoryStage(&d, "github_fetcher").Execute(context.Background(), state.New("run", state.Inputs{}))

	assert.Equal(t, 1, repos.calls)
	assert.Equal(t, sourcecontrol.FetchOptions{Token: "env-token", Username: "bot", MaxRepos: 7, MaxEnrich: 3}, repos.last)
	assert.Equal(t, SourceEmpty, out.GitHub.Source)
	assert.Empty(t, out.Errors)
}

func TestRepositoryStage_FetchError(t *testing.T) {
	repos := &fakeRepos{err: &sourcecontrol.APIError{Op: "list repositories", Cause: errors.New("401")}}
	out := NewRepositoryStage(&Deps{Repos: repos}, "github_agent").Execute(context.Background(), withToken())

	assert.Equal(t, SourceError, out.GitHub.Source)
	require.Len(t, out.Errors, 1)
	assert.Equal(t, "github_agent", out.Errors[0].Stage)
	assert.Len(t, out.Progress, 1)
}

func TestRepositoryStage_Summarizes(t *testing.T) {
	repos := &fakeRepos{repos: []sourcecontrol.Repository{
		{Name: "api", Stars: 3, Language: "Go", TechStack: []string{"Go", "Docker"}, Readme: "# api", LiveLinks: []string{"https://api.example.com"}},
		{Name: "dotfiles", Language: "Shell"},
	}}
	out := NewRepositoryStage(&Deps{Repos: repos}, "github_fetcher").Execute(context.Background(), withToken())

	require.Empty(t, out.Errors)
	gh := out.GitHub
	assert.Equal(t, SourceGitHubAPI, gh.Source)
	assert.Equal(t, 2, gh.TotalRepos)
	assert.Equal(t, []string{"Go", "Docker", "Shell"}, gh.Languages)
	require.Len(t, gh.Projects, 1)
	assert.Equal(t, "https://api.example.com", gh.Projects[0].LiveLink)
	assert.Equal(t, []string{"Fetched 2 GitHub repos, 1 with READMEs, 1 with live links"}, out.Progress)
}

func TestSummarize_CapsAndOrdersProjects(t *testing.T) {
	var repos []sourcecontrol.Repository
	for i := 1; i <= 12; i++ {
		repos = append(repos, sourcecontrol.Repository{Name: fmt.Sprintf("r%d", i), Stars: i})
	}
	gh := Summarize(repos)

	require.Len(t, gh.Projects, MaxFeaturedProjects)
	assert.Equal(t, "r12", gh.Projects[0].Name)
	assert.Equal(t, "r5", gh.Projects[MaxFeaturedProjects-1].Name)
}
