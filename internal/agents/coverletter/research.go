package coverletter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/pipeline"
	"github.com/jonathan/application-agent/internal/prompts"
	"github.com/jonathan/application-agent/internal/search"
	"github.com/jonathan/application-agent/internal/state"
)

const snippetChars = 300

// Research source tags.
const (
	ResearchFromSearch   = "google_search"
	ResearchFromMock     = "mock"
	ResearchFromFallback = "fallback"
)

// researchQueries are the four searches run for every company, in the order
// their results are laid out in the synthesis prompt.
func researchQueries(company, title string, now time.Time) []search.Query {
	year := now.Year()
	return []search.Query{
		{Text: fmt.Sprintf("%s company overview mission values culture", company), Count: 3},
		{Text: fmt.Sprintf("%s recent news achievements %d %d", company, year-1, year), Count: 3},
		{Text: fmt.Sprintf("%s glassdoor reviews employee experience culture", company), Count: 2},
		{Text: strings.Join(strings.Fields(fmt.Sprintf("%s %s role responsibilities team", company, title)), " "), Count: 2},
	}
}

// NewResearchAgent searches the web for the company and has the model
// synthesize a profile. The stage always leaves a profile behind: a mock one
// when no searcher is configured and a fallback one when anything fails.
func NewResearchAgent(d *agents.Deps) pipeline.Stage {
	return &agents.Generative{
		Deps:       d,
		StageName:  StageResearch,
		WriteSlots: []state.Slot{state.SlotCompanyResearch},
		Require: func(st state.State) error {
			if strings.TrimSpace(st.Inputs.CompanyName) == "" {
				return ErrNoCompany
			}
			return nil
		},
		Skip: func(st *state.State) (string, bool) {
			if d.Search != nil {
				return "", false
			}
			st.CompanyResearch = MockResearch(st.Inputs.CompanyName)
			return "Company research: using mock profile for " + st.Inputs.CompanyName, true
		},
		Build: func(ctx context.Context, st state.State) (agents.Call, error) {
			company := st.Inputs.CompanyName
			queries := researchQueries(company, st.Inputs.JobTitle, time.Now())

			results := make([][]search.Result, len(queries))
			g, gctx := errgroup.WithContext(ctx)
			for i, q := range queries {
				g.Go(func() error {
					res, err := d.Search.Search(gctx, q)
					if err != nil {
						return err
					}
					results[i] = res
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return agents.Call{}, fmt.Errorf("company search: %w", err)
			}

			total := 0
			for _, r := range results {
				total += len(r)
			}
			excerpts, pages := readCompanyPages(ctx, d, company, results[0], st.RunID)

			return agents.Call{
				Tier:        llm.TierStandard,
				Temperature: 0.3,
				File:        prompts.CoverLetterFile,
				System:      "research-synthesis-system",
				User:        "research-synthesis-user",
				Data: map[string]string{
					"CompanyName":  company,
					"JobTitle":     agents.TextOr(st.Inputs.JobTitle, "Not specified"),
					"Overview":     snippets(results[0]),
					"News":         snippets(results[1]),
					"Reviews":      snippets(results[2]),
					"JobInsights":  snippets(results[3]),
					"PageExcerpts": excerpts,
				},
				Schema: "company_research",
				Meta:   map[string]any{"results": total, "pages": pages},
			}, nil
		},
		Apply: func(st *state.State, r agents.Reply) (string, error) {
			r.Doc["source"] = ResearchFromSearch
			r.Doc["search_results_count"] = r.Meta["results"]
			r.Doc["pages_read"] = r.Meta["pages"]
			st.CompanyResearch = r.Doc
			return fmt.Sprintf("Researched %s: %v search results, %v pages read", st.Inputs.CompanyName, r.Meta["results"], r.Meta["pages"]), nil
		},
		Fallback: func(st *state.State, _ error) {
			st.CompanyResearch = FallbackResearch(st.Inputs.CompanyName)
		},
	}
}

// readCompanyPages fetches the text of the top overview results, preferring
// pages on the company's own domain. Failures only shrink the excerpts.
func readCompanyPages(ctx context.Context, d *agents.Deps, company string, overview []search.Result, runID string) (string, int) {
	if d.Pages == nil || d.Limits.PageEnrich <= 0 || len(overview) == 0 {
		return agents.NoneText, 0
	}
	candidates := search.PreferCompany(search.Dedupe(overview), company)
	if len(candidates) > d.Limits.PageEnrich {
		candidates = candidates[:d.Limits.PageEnrich]
	}

	var b strings.Builder
	read := 0
	for _, c := range candidates {
		text, err := d.Pages.ReadText(ctx, c.URL)
		if err != nil {
			d.Log().Debug("page read failed", zap.String("stage", StageResearch), zap.String("run_id", runID), zap.String("url", c.URL), zap.Error(err))
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&b, "Source: %s\n%s\n\n", c.URL, text)
		read++
	}
	if read == 0 {
		return agents.NoneText, 0
	}
	return strings.TrimSpace(b.String()), read
}

func snippets(results []search.Result) string {
	if len(results) == 0 {
		return "No results found"
	}
	var b strings.Builder
	for _, r := range results {
		fmt.Fprintf(&b, "- %s: %s...\n", r.Title, agents.Truncate(r.Snippet, snippetChars))
	}
	return strings.TrimRight(b.String(), "\n")
}

// MockResearch is the placeholder profile used without a search backend.
func MockResearch(company string) state.Document {
	return state.Document{
		"company_overview": company + " is a leading company in their industry.",
		"mission":          "",
		"recent_news":      []any{"Recent growth and expansion", "New product launches"},
		"culture_values":   []any{"Innovation", "Collaboration", "Excellence"},
		"glassdoor_rating": "N/A",
		"key_values":       []any{"Customer focus", "Teamwork"},
		"source":           ResearchFromMock,
	}
}

// FallbackResearch is the minimal profile left after a failed research run.
func FallbackResearch(company string) state.Document {
	return state.Document{
		"company_overview": "Information about " + company + " could not be retrieved.",
		"mission":          "",
		"recent_news":      []any{},
		"culture_values":   []any{},
		"source":           ResearchFromFallback,
	}
}
