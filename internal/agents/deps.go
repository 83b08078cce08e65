// Package agents holds what every generation stage shares: the collaborators a
// stage may call, the generative scaffolding that turns one LLM call into
// state updates, and the source-control fetch stage used by both pipelines.
package agents

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/db"
	"github.com/jonathan/application-agent/internal/fetch"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/search"
	"github.com/jonathan/application-agent/internal/sourcecontrol"
)

const (
	// DefaultCallTimeout bounds one LLM completion.
	DefaultCallTimeout = 60 * time.Second
	// DefaultMaxProjects is how many repositories the project matcher may select.
	DefaultMaxProjects = 5
	// DefaultPageEnrich is how many search results get their page text fetched.
	DefaultPageEnrich = 2
	// DefaultPassScore is the quality and ATS pass bar.
	DefaultPassScore = 75.0
	// DefaultMaxRetries is how often the ATS gate may send the resume back.
	DefaultMaxRetries = 2
	// MaxFeaturedProjects caps the projects summarized from repository data.
	MaxFeaturedProjects = 8
)

// Users loads stored accounts.
type Users interface {
	GetUser(ctx context.Context, id string) (*db.User, error)
}

// Limits bound how much external data one run pulls in.
type Limits struct {
	MaxRepos    int
	MaxEnrich   int
	MaxProjects int
	PageEnrich  int
}

// Gates configures the scoring stages.
type Gates struct {
	QualityPass   float64
	ATSPass       float64
	ATSMaxRetries int
}

// Deps are the collaborators handed to every stage constructor. Only LLM is
// required; a nil Search falls back to a mock company profile, nil Pages
// skips page enrichment, a nil Repos skips source control and a nil Users
// builds the profile from the request.
type Deps struct {
	LLM     llm.Client
	Search  search.Searcher
	Pages   fetch.Reader
	Repos   sourcecontrol.Fetcher
	Users   Users
	Logger  *zap.Logger
	Metrics *observability.Metrics

	CallTimeout time.Duration
	Limits      Limits
	Gates       Gates

	// DefaultGitHubToken is used when the user has not linked an account.
	DefaultGitHubToken    string
	DefaultGitHubUsername string
}

// WithDefaults returns a copy of d with zero values replaced by defaults.
func (d Deps) WithDefaults() Deps {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.CallTimeout <= 0 {
		d.CallTimeout = DefaultCallTimeout
	}
	if d.Limits.MaxRepos <= 0 {
		d.Limits.MaxRepos = sourcecontrol.DefaultMaxRepos
	}
	if d.Limits.MaxEnrich == 0 {
		d.Limits.MaxEnrich = sourcecontrol.DefaultMaxEnrich
	}
	if d.Limits.MaxProjects <= 0 {
		d.Limits.MaxProjects = DefaultMaxProjects
	}
	if d.Limits.PageEnrich < 0 {
		d.Limits.PageEnrich = 0
	}
	if d.Gates.QualityPass <= 0 {
		d.Gates.QualityPass = DefaultPassScore
	}
	if d.Gates.ATSPass <= 0 {
		d.Gates.ATSPass = DefaultPassScore
	}
	if d.Gates.ATSMaxRetries < 0 {
		d.Gates.ATSMaxRetries = 0
	}
	return d
}

// Log returns the stage logger, never nil.
func (d *Deps) Log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
