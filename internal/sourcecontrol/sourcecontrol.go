// Package sourcecontrol fetches a user's repositories and enriches the most
// recent ones with README text, live links and a language breakdown.
package sourcecontrol

import (
	"context"
	"fmt"
	"maps"
	"time"
)

const (
	// DefaultMaxRepos is how many repositories are listed when the caller sets no cap.
	DefaultMaxRepos = 15
	// DefaultMaxEnrich is how many repositories get README and language lookups.
	DefaultMaxEnrich = 5
	// HardMaxRepos bounds MaxRepos regardless of configuration.
	HardMaxRepos = 30
	// HardMaxEnrich bounds MaxEnrich regardless of configuration.
	HardMaxEnrich = 10
	// MaxReadmeChars caps the README runes kept per repository.
	MaxReadmeChars = 4000
)

// Repository is a repository summary, optionally enriched.
type Repository struct {
	Name        string         `json:"name"`
	FullName    string         `json:"full_name"`
	Description string         `json:"description"`
	URL         string         `json:"url"`
	Homepage    string         `json:"homepage,omitempty"`
	Stars       int            `json:"stars"`
	Forks       int            `json:"forks"`
	Language    string         `json:"language"`
	Topics      []string       `json:"topics,omitempty"`
	Fork        bool           `json:"is_fork"`
	UpdatedAt   time.Time      `json:"updated_at"`
	Enriched    bool           `json:"enriched"`
	Readme      string         `json:"readme,omitempty"`
	LiveLinks   []string       `json:"live_links,omitempty"`
	Languages   map[string]int `json:"languages,omitempty"`
	TechStack   []string       `json:"tech_stack,omitempty"`
}

// Clone returns a deep copy of r.
func (r Repository) Clone() Repository {
	out := r
	out.Topics = append([]string(nil), r.Topics...)
	out.LiveLinks = append([]string(nil), r.LiveLinks...)
	out.TechStack = append([]string(nil), r.TechStack...)
	if r.Languages != nil {
		out.Languages = maps.Clone(r.Languages)
	}
	return out
}

// FetchOptions describe one fetch. Username may be empty, in which case the
// token's own account is listed. A negative MaxEnrich disables enrichment.
type FetchOptions struct {
	Token        string
	Username     string
	MaxRepos     int
	MaxEnrich    int
	IncludeForks bool
}

// Normalized applies defaults and clamps the caps to their hard maxima.
func (o FetchOptions) Normalized() FetchOptions {
	if o.MaxRepos <= 0 {
		o.MaxRepos = DefaultMaxRepos
	}
	if o.MaxRepos > HardMaxRepos {
		o.MaxRepos = HardMaxRepos
	}
	switch {
	case o.MaxEnrich < 0:
		o.MaxEnrich = -1
	case o.MaxEnrich == 0:
		o.MaxEnrich = DefaultMaxEnrich
	}
	if o.MaxEnrich > HardMaxEnrich {
		o.MaxEnrich = HardMaxEnrich
	}
	if o.MaxEnrich > o.MaxRepos {
		o.MaxEnrich = o.MaxRepos
	}
	return o
}

// Fetcher lists repositories for a user.
type Fetcher interface {
	FetchRepositories(ctx context.Context, opts FetchOptions) ([]Repository, error)
}

// APIError wraps a failed source-control API call.
type APIError struct {
	Op    string
	Cause error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("source control %s failed: %v", e.Op, e.Cause)
}

func (e *APIError) Unwrap() error {
	return e.Cause
}
