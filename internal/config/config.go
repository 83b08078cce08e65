// Package config provides configuration loading and validation for the CLI
// and the HTTP server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/application-agent/internal/llm"
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values come from flags, the environment
// or Defaults, in that order.
type Config struct {
	// LLM
	Provider string            `json:"provider,omitempty" validate:"omitempty,oneof=gemini openai anthropic"`
	Models   map[string]string `json:"models,omitempty" validate:"dive,keys,oneof=lite standard advanced,endkeys,required"` // Per-tier model overrides
	APIKey   string            `json:"api_key,omitempty"`                                                                  // Key for the selected provider

	// Company research
	SearchAPIKey   string `json:"search_api_key,omitempty"`   // Google Programmable Search key
	SearchEngineID string `json:"search_engine_id,omitempty"` // Google Programmable Search engine ID (cx)
	PageEnrich     int    `json:"page_enrich,omitempty" validate:"gte=0,lte=10"`
	UseBrowser     bool   `json:"use_browser,omitempty"` // Render result pages in headless Chrome

	// Source control
	GitHubToken    string `json:"github_token,omitempty"` // Used for users without a linked account
	GitHubUsername string `json:"github_username,omitempty"`
	MaxRepos       int    `json:"max_repos,omitempty" validate:"gte=0,lte=30"`
	MaxEnrich      int    `json:"max_enrich,omitempty" validate:"gte=0,lte=10"`
	MaxProjects    int    `json:"max_projects,omitempty" validate:"gte=0,lte=8"`

	// Gates
	ATSThreshold     float64 `json:"ats_threshold,omitempty" validate:"gte=0,lte=100"`
	ATSMaxRetries    int     `json:"ats_max_retries,omitempty" validate:"gte=0,lte=5"`
	QualityThreshold float64 `json:"quality_threshold,omitempty" validate:"gte=0,lte=100"`

	// Runtime
	MaxConcurrency      int    `json:"max_concurrency,omitempty" validate:"gte=0,lte=64"`
	StageTimeoutSeconds int    `json:"stage_timeout_seconds,omitempty" validate:"gte=0,lte=600"`
	HaltOnPhaseErrors   bool   `json:"halt_on_phase_errors,omitempty"`
	DatabaseURL         string `json:"database_url,omitempty"` // PostgreSQL connection URL
	Port                int    `json:"port,omitempty" validate:"gte=0,lte=65535"`
	LogLevel            string `json:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
	LogFormat           string `json:"log_format,omitempty" validate:"omitempty,oneof=json console"`
	Verbose             bool   `json:"verbose,omitempty"` // Print the boxed run summary
}

// Defaults returns the values used when nothing else sets a field.
func Defaults() Config {
	return Config{
		Provider:            string(llm.ProviderOpenAI),
		PageEnrich:          2,
		MaxRepos:            15,
		MaxEnrich:           5,
		MaxProjects:         5,
		ATSThreshold:        75,
		ATSMaxRetries:       2,
		QualityThreshold:    75,
		MaxConcurrency:      4,
		StageTimeoutSeconds: 60,
		Port:                8080,
		LogLevel:            "info",
		LogFormat:           "console",
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

var validate = validator.New()

// Validate checks that the configuration has valid values.
// Required credentials are checked by the commands that need them.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("config error: %s failed %s (got %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("config error: %w", err)
	}
	if c.MaxEnrich > 0 && c.MaxRepos > 0 && c.MaxEnrich > c.MaxRepos {
		return fmt.Errorf("config error: 'max_enrich' (%d) exceeds 'max_repos' (%d)", c.MaxEnrich, c.MaxRepos)
	}
	if (c.SearchAPIKey == "") != (c.SearchEngineID == "") {
		return fmt.Errorf("config error: 'search_api_key' and 'search_engine_id' must be set together")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.SearchAPIKey == "" {
		result.SearchAPIKey = defaults.SearchAPIKey
	}
	if result.SearchEngineID == "" {
		result.SearchEngineID = defaults.SearchEngineID
	}
	if result.GitHubToken == "" {
		result.GitHubToken = defaults.GitHubToken
	}
	if result.GitHubUsername == "" {
		result.GitHubUsername = defaults.GitHubUsername
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.LogLevel == "" {
		result.LogLevel = defaults.LogLevel
	}
	if result.LogFormat == "" {
		result.LogFormat = defaults.LogFormat
	}
	if len(result.Models) == 0 && len(defaults.Models) > 0 {
		result.Models = make(map[string]string, len(defaults.Models))
		for k, v := range defaults.Models {
			result.Models[k] = v
		}
	}

	// Int fields: use default if zero
	if result.PageEnrich == 0 {
		result.PageEnrich = defaults.PageEnrich
	}
	if result.MaxRepos == 0 {
		result.MaxRepos = defaults.MaxRepos
	}
	if result.MaxEnrich == 0 {
		result.MaxEnrich = defaults.MaxEnrich
	}
	if result.MaxProjects == 0 {
		result.MaxProjects = defaults.MaxProjects
	}
	if result.ATSMaxRetries == 0 {
		result.ATSMaxRetries = defaults.ATSMaxRetries
	}
	if result.MaxConcurrency == 0 {
		result.MaxConcurrency = defaults.MaxConcurrency
	}
	if result.StageTimeoutSeconds == 0 {
		result.StageTimeoutSeconds = defaults.StageTimeoutSeconds
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	// Float fields
	if result.ATSThreshold == 0 {
		result.ATSThreshold = defaults.ATSThreshold
	}
	if result.QualityThreshold == 0 {
		result.QualityThreshold = defaults.QualityThreshold
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// ApplyEnv fills fields that are still empty from environment variables.
// Unparseable numeric values are reported rather than ignored.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	str := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v, ok := lookup(k); ok && strings.TrimSpace(v) != "" {
				*dst = strings.TrimSpace(v)
				return
			}
		}
	}

	str(&c.Provider, "LLM_PROVIDER")
	provider := llm.Provider(c.Provider)
	if provider == "" {
		provider = llm.ProviderOpenAI
	}
	str(&c.APIKey, providerKeyEnv(provider)...)
	str(&c.SearchAPIKey, "GOOGLE_SEARCH_API_KEY")
	str(&c.SearchEngineID, "GOOGLE_SEARCH_ENGINE_ID", "GOOGLE_CSE_ID")
	str(&c.GitHubToken, "GITHUB_TOKEN")
	str(&c.DatabaseURL, "DATABASE_URL")
	str(&c.LogLevel, "LOG_LEVEL")

	if c.ATSThreshold == 0 {
		if v, ok := lookup("ATS_SCORE_THRESHOLD"); ok && v != "" {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("config error: ATS_SCORE_THRESHOLD %q is not a number", v)
			}
			c.ATSThreshold = f
		}
	}
	ints := []struct {
		dst *int
		key string
	}{
		{&c.ATSMaxRetries, "ATS_MAX_RETRIES"},
		{&c.MaxConcurrency, "MAX_CONCURRENCY"},
		{&c.Port, "PORT"},
	}
	for _, e := range ints {
		if *e.dst != 0 {
			continue
		}
		v, ok := lookup(e.key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config error: %s %q is not an integer", e.key, v)
		}
		*e.dst = n
	}
	return nil
}

func providerKeyEnv(p llm.Provider) []string {
	switch p {
	case llm.ProviderGemini:
		return []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}
	case llm.ProviderAnthropic:
		return []string{"ANTHROPIC_API_KEY"}
	default:
		return []string{"OPENAI_API_KEY"}
	}
}

// LLMConfig returns the model configuration for the selected provider with
// any per-tier overrides applied.
func (c *Config) LLMConfig() (*llm.Config, error) {
	cfg, err := llm.DefaultConfigFor(llm.Provider(c.Provider))
	if err != nil {
		return nil, err
	}
	for tier, model := range c.Models {
		cfg = cfg.WithModel(llm.ModelTier(tier), model)
	}
	return cfg, nil
}

// StageTimeout is the per-call LLM timeout.
func (c *Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSeconds) * time.Second
}

// SearchEnabled reports whether web search credentials are configured.
func (c *Config) SearchEnabled() bool {
	return c.SearchAPIKey != "" && c.SearchEngineID != ""
}
