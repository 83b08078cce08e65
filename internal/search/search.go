// Package search runs web searches for the research and style stages.
package search

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// MaxResults is the most results a single query may return.
const MaxResults = 10

// Query is one search request.
type Query struct {
	Text  string
	Count int
}

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"content"`
}

// Searcher runs web searches.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, error)
}

// Error wraps a failed search call.
type Error struct {
	Query string
	Cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("search %q failed: %v", e.Query, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// GoogleSearcher queries a Google Programmable Search Engine.
type GoogleSearcher struct {
	svc *customsearch.Service
	cx  string
}

// NewGoogleSearcher creates a searcher for engine cx. Extra client options
// are passed through (endpoint, HTTP client).
func NewGoogleSearcher(ctx context.Context, apiKey, cx string, opts ...option.ClientOption) (*GoogleSearcher, error) {
	if apiKey == "" || cx == "" {
		return nil, fmt.Errorf("search API key and engine id are required")
	}
	svc, err := customsearch.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	return &GoogleSearcher{svc: svc, cx: cx}, nil
}

// Search implements Searcher. Count is clamped to [1, MaxResults].
func (s *GoogleSearcher) Search(ctx context.Context, q Query) ([]Result, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, &Error{Query: q.Text, Cause: fmt.Errorf("empty query")}
	}

	resp, err := s.svc.Cse.List().Cx(s.cx).Q(text).Num(int64(ClampCount(q.Count))).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Query: text, Cause: err}
	}

	results := make([]Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, Result{
			Title:   item.Title,
			URL:     item.Link,
			Snippet: item.Snippet,
		})
	}
	return results, nil
}

// ClampCount bounds a requested result count.
func ClampCount(n int) int {
	switch {
	case n <= 0:
		return 1
	case n > MaxResults:
		return MaxResults
	}
	return n
}
