package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestSearcher(t *testing.T, handler http.HandlerFunc) *GoogleSearcher {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	s, err := NewGoogleSearcher(context.Background(), "key", "engine",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)
	return s
}

func TestGoogleSearcher_Search(t *testing.T) {
	var gotQuery, gotNum, gotCx string
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotNum = r.URL.Query().Get("num")
		gotCx = r.URL.Query().Get("cx")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"title": "Acme Corp", "link": "https://acme.com", "snippet": "Acme builds rockets"},
				{"title": "Acme news", "link": "https://news.example.com/acme", "snippet": "Acme raises"},
			},
		})
	})

	results, err := s.Search(context.Background(), Query{Text: "Acme Corp company overview", Count: 50})
	require.NoError(t, err)

	assert.Equal(t, "Acme Corp company overview", gotQuery)
	assert.Equal(t, "10", gotNum)
	assert.Equal(t, "engine", gotCx)
	require.Len(t, results, 2)
	assert.Equal(t, Result{Title: "Acme Corp", URL: "https://acme.com", Snippet: "Acme builds rockets"}, results[0])
}

func TestGoogleSearcher_Error(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": {"code": 403, "message": "quota exceeded"}}`))
	})

	_, err := s.Search(context.Background(), Query{Text: "Acme", Count: 3})
	require.Error(t, err)

	var searchErr *Error
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "Acme", searchErr.Query)
}

func TestGoogleSearcher_EmptyQuery(t *testing.T) {
	s := newTestSearcher(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := s.Search(context.Background(), Query{Text: "   "})
	assert.Error(t, err)
}

func TestNewGoogleSearcher_RequiresCredentials(t *testing.T) {
	_, err := NewGoogleSearcher(context.Background(), "", "cx")
	assert.Error(t, err)
	_, err = NewGoogleSearcher(context.Background(), "key", "")
	assert.Error(t, err)
}

func TestClampCount(t *testing.T) {
	assert.Equal(t, 1, ClampCount(0))
	assert.Equal(t, 1, ClampCount(-3))
	assert.Equal(t, 3, ClampCount(3))
	assert.Equal(t, MaxResults, ClampCount(11))
}
