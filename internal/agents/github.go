package agents

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/sourcecontrol"
	"github.com/jonathan/application-agent/internal/state"
)

// Source tags written to GitHubData.Source.
const (
	SourceGitHubAPI = "github_api"
	SourceNone      = "none"
	SourceEmpty     = "empty"
	SourceError     = "error"
)

// NewRepositoryStage returns the stage that fills the GitHub slot. It never
// leaves the slot unset: a missing account, an empty account and a failed
// fetch each produce empty data tagged with the reason.
func NewRepositoryStage(d *Deps, name string) pipeline.Stage {
	return pipeline.NewStage(name, nil, []state.Slot{state.SlotGitHub}, func(ctx context.Context, st state.State) state.State {
		token, username := d.gitHubCredentials(st.Inputs.Profile)
		if token == "" || d.Repos == nil {
			st.GitHub = emptyGitHub(SourceNone)
			st.Record(name, "GitHub integration skipped (no account linked)")
			return st
		}

		repos, err := d.Repos.FetchRepositories(ctx, sourcecontrol.FetchOptions{
			Token:     token,
			Username:  username,
			MaxRepos:  d.Limits.MaxRepos,
			MaxEnrich: d.Limits.MaxEnrich,
		})
		if err != nil {
			d.Log().Warn("repository fetch failed", zap.String("stage", name), zap.String("run_id", st.RunID), zap.Error(err))
			st.GitHub = emptyGitHub(SourceError)
			st.Fail(name, err)
			return st
		}
		if len(repos) == 0 {
			st.GitHub = emptyGitHub(SourceEmpty)
			st.Record(name, "No GitHub repositories found")
			return st
		}

		st.GitHub = Summarize(repos)
		readmes, links := 0, 0
		for _, r := range repos {
			if r.Readme != "" {
				readmes++
			}
			if len(r.LiveLinks) > 0 {
				links++
			}
		}
		st.Record(name, fmt.Sprintf("Fetched %d GitHub repos, %d with READMEs, %d with live links", len(repos), readmes, links))
		return st
	})
}

// Summarize condenses repositories into the GitHub slot value. Featured
// projects are repositories with stars or a README, best first.
func Summarize(repos []sourcecontrol.Repository) *state.GitHubData {
	out := &state.GitHubData{
		Repos:      repos,
		TotalRepos: len(repos),
		Languages:  []string{},
		Projects:   []state.Project{},
		Source:     SourceGitHubAPI,
	}

	seen := map[string]bool{}
	addLanguage := func(lang string) {
		if lang != "" && !seen[lang] {
			seen[lang] = true
			out.Languages = append(out.Languages, lang)
		}
	}
	for _, r := range repos {
		addLanguage(r.Language)
		for _, tech := range r.TechStack {
			addLanguage(tech)
		}
		if r.Stars == 0 && r.Readme == "" {
			continue
		}
		p := state.Project{
			Name:        r.Name,
			Description: r.Description,
			TechStack:   firstN(r.TechStack, 5),
			Stars:       r.Stars,
			URL:         r.URL,
		}
		if len(r.LiveLinks) > 0 {
			p.LiveLink = r.LiveLinks[0]
		}
		out.Projects = append(out.Projects, p)
	}
	sort.SliceStable(out.Projects, func(i, j int) bool {
		return out.Projects[i].Stars > out.Projects[j].Stars
	})
	if len(out.Projects) > MaxFeaturedProjects {
		out.Projects = out.Projects[:MaxFeaturedProjects]
	}
	return out
}

func (d *Deps) gitHubCredentials(p state.Profile) (token, username string) {
	token, username = p.GitHubToken, p.GitHubUsername
	if token == "" {
		token = d.DefaultGitHubToken
		if username == "" {
			username = d.DefaultGitHubUsername
		}
	}
	return token, username
}

func emptyGitHub(source string) *state.GitHubData {
	return &state.GitHubData{
		Repos:     []sourcecontrol.Repository{},
		Languages: []string{},
		Projects:  []state.Project{},
		Source:    source,
	}
}

func firstN(in []string, n int) []string {
	if len(in) > n {
		in = in[:n]
	}
	return slices.Clone(in)
}
