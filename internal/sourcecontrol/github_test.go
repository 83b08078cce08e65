package sourcecontrol

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGitHub struct {
	repoCount    int
	forkEvery    int
	readmeCalls  atomic.Int32
	langCalls    atomic.Int32
	lastPerPage  string
	authHeader   string
	listEndpoint string
	readme       string
}

func (f *fakeGitHub) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	list := func(w http.ResponseWriter, r *http.Request) {
		f.lastPerPage = r.URL.Query().Get("per_page")
		f.authHeader = r.Header.Get("Authorization")
		f.listEndpoint = r.URL.Path
		var repos []map[string]any
		for i := 0; i < f.repoCount; i++ {
			repos = append(repos, map[string]any{
				"name":             fmt.Sprintf("repo-%d", i),
				"full_name":        fmt.Sprintf("octo/repo-%d", i),
				"html_url":         fmt.Sprintf("https://github.com/octo/repo-%d", i),
				"description":      "demo project",
				"language":         "Go",
				"stargazers_count": i,
				"fork":             f.forkEvery > 0 && i%f.forkEvery == 0,
				"topics":           []string{"kubernetes"},
			})
		}
		require.NoError(t, json.NewEncoder(w).Encode(repos))
	}
	mux.HandleFunc("GET /users/octo/repos", list)
	mux.HandleFunc("GET /user/repos", list)
	mux.HandleFunc("GET /repos/octo/{name}/readme", func(w http.ResponseWriter, r *http.Request) {
		f.readmeCalls.Add(1)
		body := "# " + r.PathValue("name") + "\nTry the [live demo](https://example.vercel.app) now."
		if f.readme != "" {
			body = f.readme
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(body)),
		})
	})
	mux.HandleFunc("GET /repos/octo/{name}/languages", func(w http.ResponseWriter, _ *http.Request) {
		f.langCalls.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]int{"Go": 9000, "Shell": 100})
	})
	return mux
}

func newTestFetcher(t *testing.T, fake *fakeGitHub) *GitHubFetcher {
	server := httptest.NewServer(fake.handler(t))
	t.Cleanup(server.Close)
	return NewGitHubFetcher(WithBaseURL(server.URL), WithHTTPClient(server.Client()))
}

func TestFetchRepositories_AppliesCaps(t *testing.T) {
	fake := &fakeGitHub{repoCount: 40}
	f := newTestFetcher(t, fake)

	repos, err := f.FetchRepositories(context.Background(), FetchOptions{
		Token:     "tok",
		Username:  "octo",
		MaxRepos:  100,
		MaxEnrich: 50,
	})
	require.NoError(t, err)

	assert.Len(t, repos, HardMaxRepos)
	assert.Equal(t, int32(HardMaxEnrich), fake.readmeCalls.Load())
	assert.Equal(t, int32(HardMaxEnrich), fake.langCalls.Load())
	assert.Equal(t, "Bearer tok", fake.authHeader)
	assert.Equal(t, "/users/octo/repos", fake.listEndpoint)
	assert.Equal(t, "60", fake.lastPerPage)
}

func TestFetchRepositories_Defaults(t *testing.T) {
	fake := &fakeGitHub{repoCount: 20}
	f := newTestFetcher(t, fake)

	repos, err := f.FetchRepositories(context.Background(), FetchOptions{Token: "tok"})
	require.NoError(t, err)

	assert.Len(t, repos, DefaultMaxRepos)
	assert.Equal(t, int32(DefaultMaxEnrich), fake.readmeCalls.Load())
	assert.Equal(t, "/user/repos", fake.listEndpoint)

	enriched := 0
	for _, r := range repos {
		if r.Enriched {
			enriched++
			assert.Contains(t, r.Readme, r.Name)
			assert.Equal(t, []string{"https://example.vercel.app"}, r.LiveLinks)
			assert.Equal(t, []string{"Go", "Shell", "kubernetes"}, r.TechStack)
		} else {
			assert.Empty(t, r.Readme)
			assert.Equal(t, []string{"Go", "kubernetes"}, r.TechStack)
		}
	}
	assert.Equal(t, DefaultMaxEnrich, enriched)
}

func TestFetchRepositories_SkipsForks(t *testing.T) {
	fake := &fakeGitHub{repoCount: 10, forkEvery: 2}
	f := newTestFetcher(t, fake)

	repos, err := f.FetchRepositories(context.Background(), FetchOptions{Token: "tok", Username: "octo", MaxEnrich: -1})
	require.NoError(t, err)

	assert.Len(t, repos, 5)
	for _, r := range repos {
		assert.False(t, r.Fork)
	}
	assert.Equal(t, int32(0), fake.readmeCalls.Load())
}

func TestFetchRepositories_RequiresToken(t *testing.T) {
	f := NewGitHubFetcher()
	_, err := f.FetchRepositories(context.Background(), FetchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")
}

func TestFetchRepositories_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Bad credentials"}`))
	}))
	defer server.Close()

	f := NewGitHubFetcher(WithBaseURL(server.URL))
	_, err := f.FetchRepositories(context.Background(), FetchOptions{Token: "bad", Username: "octo"})
	require.Error(t, err)

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.True(t, strings.Contains(err.Error(), "list repositories"))
}

func TestNormalized(t *testing.T) {
	tests := []struct {
		name string
		in   FetchOptions
		want FetchOptions
	}{
		{"zero uses defaults", FetchOptions{}, FetchOptions{MaxRepos: DefaultMaxRepos, MaxEnrich: DefaultMaxEnrich}},
		{"clamps repos", FetchOptions{MaxRepos: 500, MaxEnrich: 5}, FetchOptions{MaxRepos: HardMaxRepos, MaxEnrich: 5}},
		{"clamps enrich", FetchOptions{MaxRepos: 20, MaxEnrich: 99}, FetchOptions{MaxRepos: 20, MaxEnrich: HardMaxEnrich}},
		{"enrich bounded by repos", FetchOptions{MaxRepos: 3, MaxEnrich: 8}, FetchOptions{MaxRepos: 3, MaxEnrich: 3}},
		{"negative disables enrich", FetchOptions{MaxRepos: 3, MaxEnrich: -4}, FetchOptions{MaxRepos: 3, MaxEnrich: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalized())
		})
	}
}

func TestFetchRepositories_TruncatesReadmeOnRuneBoundary(t *testing.T) {
	fake := &fakeGitHub{repoCount: 1, readme: strings.Repeat("é", MaxReadmeChars+10)}
	f := newTestFetcher(t, fake)

	repos, err := f.FetchRepositories(context.Background(), FetchOptions{Token: "tok", Username: "octo"})
	require.NoError(t, err)
	require.Len(t, repos, 1)

	readme := repos[0].Readme
	assert.True(t, utf8.ValidString(readme))
	assert.Equal(t, MaxReadmeChars, utf8.RuneCountInString(readme))
}
