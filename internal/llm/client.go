package llm

import (
	"context"
	"fmt"
)

// Request is one completion call.
type Request struct {
	// Tier selects the configured model. Model overrides it when set.
	Tier        ModelTier
	Model       string
	Temperature float64
	MaxTokens   int64
	System      string
	Prompt      string
	// JSON asks the provider for a JSON-only reply where it supports that.
	JSON bool
}

// Response is the free-text reply of a completion call.
type Response struct {
	Content      string
	Model        string
	InputTokens  int64
	OutputTokens int64
}

// Client is an abstraction over LLM providers
type Client interface {
	// Complete runs a single completion and returns the reply text.
	Complete(ctx context.Context, req Request) (*Response, error)
	// Close releases any resources held by the client
	Close() error
}

// NewClient creates a client for config.Provider.
func NewClient(ctx context.Context, config *Config, apiKey string) (Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required for provider %s", config.Provider)
	}

	switch config.Provider {
	case ProviderGemini:
		return NewGeminiClient(ctx, config, apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(config, apiKey), nil
	case ProviderAnthropic:
		return NewAnthropicClient(config, apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", config.Provider)
	}
}

func resolveModel(config *Config, req Request) (string, error) {
	if req.Model != "" {
		return req.Model, nil
	}
	model := config.GetModel(req.Tier)
	if model == "" {
		return "", fmt.Errorf("no model configured for tier %s", req.Tier)
	}
	return model, nil
}
