package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/application-agent/internal/config"
	"github.com/jonathan/application-agent/internal/generation"
	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/state"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one document for a job posting",
	Long: `Runs the pipeline for one document type and prints the result.

Document types: cover_letter, cold_email, resume_customization, resume_suggestions.
Resume work needs --resume unless --db-url points at a database holding the user's resume.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runGenerateCmd,
}

// generateOptions holds the generate flags.
type generateOptions struct {
	configPath   string
	job          string
	jobText      string
	company      string
	jobTitle     string
	docType      string
	resume       string
	userID       string
	name         string
	email        string
	hrName       string
	instructions string
	output       string
	jsonOutput   bool

	provider   string
	apiKey     string
	dbURL      string
	useBrowser bool
	haltOnErr  bool
	verbose    bool
}

var genOpts generateOptions

func init() {
	f := generateCmd.Flags()
	f.StringVar(&genOpts.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	f.StringVarP(&genOpts.job, "job", "j", "", "Path to job posting text file, or - for stdin")
	f.StringVar(&genOpts.jobText, "job-text", "", "Job posting text (alternative to --job)")
	f.StringVarP(&genOpts.company, "company", "c", "", "Company name")
	f.StringVar(&genOpts.jobTitle, "job-title", "", "Job title (optional, extracted from the posting otherwise)")
	f.StringVarP(&genOpts.docType, "type", "t", string(state.CoverLetter), "Document type")
	f.StringVarP(&genOpts.resume, "resume", "r", "", "Path to resume text file")
	f.StringVar(&genOpts.userID, "user-id", "local", "User ID (looked up in the database when --db-url is set)")
	f.StringVarP(&genOpts.name, "name", "n", "", "Candidate name")
	f.StringVar(&genOpts.email, "email", "", "Candidate email")
	f.StringVar(&genOpts.hrName, "hr-name", "", "Recipient name for the greeting")
	f.StringVar(&genOpts.instructions, "instructions", "", "Extra instructions for the writer")
	f.StringVarP(&genOpts.output, "output", "o", "", "Write the document to this file as well as stdout")
	f.BoolVar(&genOpts.jsonOutput, "json", false, "Print the full result as JSON")

	f.StringVar(&genOpts.provider, "provider", "", "LLM provider: openai, gemini or anthropic")
	f.StringVar(&genOpts.apiKey, "api-key", "", "API key for the provider (optional, defaults to the provider's env var)")
	f.StringVar(&genOpts.dbURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	f.BoolVar(&genOpts.useBrowser, "use-browser", false, "Use headless browser for SPA sites (requires Chrome)")
	f.BoolVar(&genOpts.haltOnErr, "halt-on-errors", false, "Stop at the first stage that records an error")
	f.BoolVarP(&genOpts.verbose, "verbose", "v", false, "Print the boxed run summary to stderr")

	rootCmd.AddCommand(generateCmd)
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := resolveConfig(genOpts.configPath, genOpts.overrides(cmd.Flags().Changed), nil)
	if err != nil {
		return err
	}
	return genOpts.run(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// overrides applies only the flags that were set explicitly.
func (o *generateOptions) overrides(changed func(string) bool) func(*config.Config) {
	return func(cfg *config.Config) {
		if changed("provider") {
			cfg.Provider = o.provider
		}
		if changed("api-key") {
			cfg.APIKey = o.apiKey
		}
		if changed("db-url") {
			cfg.DatabaseURL = o.dbURL
		}
		if changed("use-browser") {
			cfg.UseBrowser = o.useBrowser
		}
		if changed("halt-on-errors") {
			cfg.HaltOnPhaseErrors = o.haltOnErr
		}
		if changed("verbose") {
			cfg.Verbose = o.verbose
		}
	}
}

// request builds the generation request from the flags, reading the job and
// resume files. GitHub credentials come from the configuration defaults.
func (o *generateOptions) request(stdin io.Reader) (generation.Request, error) {
	var req generation.Request
	jd, err := o.jobDescription(stdin)
	if err != nil {
		return req, err
	}
	resume := ""
	if o.resume != "" {
		data, err := os.ReadFile(o.resume)
		if err != nil {
			return req, fmt.Errorf("failed to read resume: %w", err)
		}
		resume = string(data)
	}
	return generation.Request{
		UserID:             o.userID,
		JobDescription:     jd,
		CompanyName:        o.company,
		DocumentType:       state.DocumentType(o.docType),
		JobTitle:           o.jobTitle,
		CustomInstructions: o.instructions,
		HRName:             o.hrName,
		ResumeText:         resume,
		Profile:            state.Profile{Name: o.name, Email: o.email},
	}, nil
}

func (o *generateOptions) jobDescription(stdin io.Reader) (string, error) {
	switch {
	case o.job != "" && o.jobText != "":
		return "", fmt.Errorf("--job and --job-text are mutually exclusive")
	case o.jobText != "":
		return o.jobText, nil
	case o.job == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read job posting from stdin: %w", err)
		}
		return string(data), nil
	case o.job != "":
		data, err := os.ReadFile(o.job)
		if err != nil {
			return "", fmt.Errorf("failed to read job posting: %w", err)
		}
		return string(data), nil
	}
	return "", fmt.Errorf("a job posting is required (--job or --job-text)")
}

func (o *generateOptions) run(ctx context.Context, cfg *config.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	req, err := o.request(stdin)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg)
	if err != nil {
		return err
	}
	defer rt.Close()

	res, err := rt.service.Generate(ctx, req)
	if err != nil {
		return err
	}

	if cfg.Verbose {
		observability.NewPrinter(stderr).PrintRun(res.State)
	}

	if !generation.HasOutput(res.State) {
		return fmt.Errorf("run %s produced no document (%d stage errors)", res.RunID, len(res.Errors))
	}
	if len(res.Errors) > 0 {
		_, _ = fmt.Fprintf(stderr, "warning: %d stage errors recorded, output may be degraded\n", len(res.Errors))
	}

	text, err := documentText(res)
	if err != nil {
		return err
	}
	if o.output != "" {
		if err := os.WriteFile(o.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	if o.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	_, err = fmt.Fprintln(stdout, text)
	return err
}

// documentText is the deliverable as plain text; suggestions have no prose
// body and print as indented JSON.
func documentText(res *generation.Result) (string, error) {
	if res.DocumentType != state.ResumeSuggestions {
		return strings.TrimSpace(res.Content), nil
	}
	data, err := json.MarshalIndent(res.Suggestions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode suggestions: %w", err)
	}
	return string(data), nil
}
