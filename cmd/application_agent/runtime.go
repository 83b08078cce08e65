package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jonathan/application-agent/internal/agents"
	"github.com/jonathan/application-agent/internal/config"
	"github.com/jonathan/application-agent/internal/db"
	"github.com/jonathan/application-agent/internal/fetch"
	"github.com/jonathan/application-agent/internal/generation"
	"github.com/jonathan/application-agent/internal/llm"
	"github.com/jonathan/application-agent/internal/observability"
	"github.com/jonathan/application-agent/internal/search"
	"github.com/jonathan/application-agent/internal/sourcecontrol"
)

// newLLMClient is replaced in tests.
var newLLMClient = llm.NewClient

// resolveConfig layers configuration: the --config file, then flags the user
// set explicitly, then the environment, then Defaults.
func resolveConfig(path string, override func(*config.Config), lookup config.LookupFunc) (*config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadConfig(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if override != nil {
		override(&cfg)
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	merged := cfg.MergeWithDefaults(config.Defaults())
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// runtime owns everything a command builds from its configuration.
type runtime struct {
	cfg      *config.Config
	logger   *zap.Logger
	metrics  *observability.Metrics
	llm      llm.Client
	database *db.DB
	service  *generation.Service
}

// newRuntime connects the LLM provider, the optional research backends and
// the optional database, and builds the generation service over them.
func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	rt := &runtime{cfg: cfg, logger: logger, metrics: observability.NewMetrics()}

	if cfg.APIKey == "" {
		return nil, fmt.Errorf("an API key for provider %q is required (use --api-key, the config file or the provider's environment variable)", cfg.Provider)
	}
	llmCfg, err := cfg.LLMConfig()
	if err != nil {
		return nil, err
	}
	rt.llm, err = newLLMClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	deps := agents.Deps{
		LLM:         rt.llm,
		Repos:       sourcecontrol.NewGitHubFetcher(),
		Logger:      logger,
		Metrics:     rt.metrics,
		CallTimeout: cfg.StageTimeout(),
		Limits: agents.Limits{
			MaxRepos:    cfg.MaxRepos,
			MaxEnrich:   cfg.MaxEnrich,
			MaxProjects: cfg.MaxProjects,
			PageEnrich:  cfg.PageEnrich,
		},
		Gates: agents.Gates{
			QualityPass:   cfg.QualityThreshold,
			ATSPass:       cfg.ATSThreshold,
			ATSMaxRetries: cfg.ATSMaxRetries,
		},
		DefaultGitHubToken:    cfg.GitHubToken,
		DefaultGitHubUsername: cfg.GitHubUsername,
	}
	if cfg.SearchEnabled() {
		searcher, err := search.NewGoogleSearcher(ctx, cfg.SearchAPIKey, cfg.SearchEngineID)
		if err != nil {
			rt.Close()
			return nil, err
		}
		deps.Search = searcher
		reader := fetch.NewTextReader(logger)
		reader.Browser = cfg.UseBrowser
		deps.Pages = reader
	} else {
		logger.Info("company research disabled: no search credentials configured")
	}

	opts := generation.Options{
		MaxConcurrency: int64(cfg.MaxConcurrency),
		HaltOnErrors:   cfg.HaltOnPhaseErrors,
		Logger:         logger,
		Metrics:        rt.metrics,
	}
	if cfg.DatabaseURL != "" {
		rt.database, err = db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			rt.Close()
			return nil, err
		}
		opts.Store = rt.database
		deps.Users = rt.database
	}

	rt.service, err = generation.NewService(deps, opts)
	if err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// Close releases the LLM client and the database pool.
func (rt *runtime) Close() {
	if rt.llm != nil {
		if err := rt.llm.Close(); err != nil {
			rt.logger.Warn("failed to close LLM client", zap.Error(err))
		}
	}
	if rt.database != nil {
		rt.database.Close()
	}
	_ = rt.logger.Sync()
}
