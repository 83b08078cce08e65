package sourcecontrol

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v66/github"

	"github.com/jonathan/application-agent/internal/fetch"
)

// GitHubFetcher implements Fetcher against the GitHub REST API.
type GitHubFetcher struct {
	httpClient *http.Client
	baseURL    *url.URL
}

// Option configures a GitHubFetcher.
type Option func(*GitHubFetcher)

// WithHTTPClient sets the transport used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(f *GitHubFetcher) { f.httpClient = c }
}

// WithBaseURL points the fetcher at a GitHub Enterprise or test server.
func WithBaseURL(raw string) Option {
	return func(f *GitHubFetcher) {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		if u, err := url.Parse(raw); err == nil {
			f.baseURL = u
		}
	}
}

// NewGitHubFetcher creates a fetcher. A client is built per call because the
// token belongs to the requesting user.
func NewGitHubFetcher(opts ...Option) *GitHubFetcher {
	f := &GitHubFetcher{}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *GitHubFetcher) client(token string) *github.Client {
	c := github.NewClient(f.httpClient).WithAuthToken(token)
	if f.baseURL != nil {
		c.BaseURL = f.baseURL
	}
	return c
}

// FetchRepositories lists repositories sorted by most recent update, skips
// forks unless requested, and enriches the first MaxEnrich results.
func (f *GitHubFetcher) FetchRepositories(ctx context.Context, opts FetchOptions) ([]Repository, error) {
	opts = opts.Normalized()
	if opts.Token == "" {
		return nil, errors.New("source control token is required")
	}
	gh := f.client(opts.Token)

	// Forks are filtered client-side, so over-fetch within a single page.
	perPage := min(opts.MaxRepos*2, 100)
	var (
		listed []*github.Repository
		err    error
	)
	if opts.Username != "" {
		listed, _, err = gh.Repositories.ListByUser(ctx, opts.Username, &github.RepositoryListByUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
	} else {
		listed, _, err = gh.Repositories.ListByAuthenticatedUser(ctx, &github.RepositoryListByAuthenticatedUserOptions{
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: perPage},
		})
	}
	if err != nil {
		return nil, &APIError{Op: "list repositories", Cause: err}
	}

	repos := make([]Repository, 0, opts.MaxRepos)
	for _, r := range listed {
		if len(repos) >= opts.MaxRepos {
			break
		}
		if r.GetFork() && !opts.IncludeForks {
			continue
		}
		repos = append(repos, fromGitHub(r))
	}

	for i := 0; i < len(repos) && i < opts.MaxEnrich; i++ {
		if err := ctx.Err(); err != nil {
			return repos, err
		}
		f.enrich(ctx, gh, &repos[i])
	}
	return repos, nil
}

// enrich adds README text, live links and languages. Lookups that fail leave
// the repository un-enriched in that respect.
func (f *GitHubFetcher) enrich(ctx context.Context, gh *github.Client, repo *Repository) {
	owner, name, ok := strings.Cut(repo.FullName, "/")
	if !ok {
		return
	}

	if content, _, err := gh.Repositories.GetReadme(ctx, owner, name, nil); err == nil {
		if text, err := content.GetContent(); err == nil {
			text = fetch.Truncate(text, MaxReadmeChars)
			repo.Readme = text
			repo.LiveLinks = ExtractLiveLinks(text)
		}
	}
	if repo.Homepage != "" && !containsString(repo.LiveLinks, repo.Homepage) {
		repo.LiveLinks = append([]string{repo.Homepage}, repo.LiveLinks...)
	}

	if languages, _, err := gh.Repositories.ListLanguages(ctx, owner, name); err == nil {
		repo.Languages = languages
	}
	repo.TechStack = TechStack(repo.Languages, repo.Language, repo.Topics)
	repo.Enriched = true
}

func fromGitHub(r *github.Repository) Repository {
	repo := Repository{
		Name:        r.GetName(),
		FullName:    r.GetFullName(),
		Description: r.GetDescription(),
		URL:         r.GetHTMLURL(),
		Homepage:    r.GetHomepage(),
		Stars:       r.GetStargazersCount(),
		Forks:       r.GetForksCount(),
		Language:    r.GetLanguage(),
		Topics:      append([]string(nil), r.Topics...),
		Fork:        r.GetFork(),
		UpdatedAt:   r.GetUpdatedAt().Time,
	}
	if repo.FullName == "" && r.GetOwner() != nil {
		repo.FullName = fmt.Sprintf("%s/%s", r.GetOwner().GetLogin(), repo.Name)
	}
	repo.TechStack = TechStack(nil, repo.Language, repo.Topics)
	return repo
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
