package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Client with the Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
	config *Config
}

// NewOpenAIClient creates a new OpenAI client. Extra request options (base
// URL, HTTP client) are passed through to the SDK.
func NewOpenAIClient(config *Config, apiKey string, opts ...option.RequestOption) *OpenAIClient {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, config: config}
}

// Complete implements Client.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (*Response, error) {
	modelName, err := resolveModel(c.config, req)
	if err != nil {
		return nil, err
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               modelName,
		Temperature:         openai.Float(req.Temperature),
		MaxCompletionTokens: openai.Int(c.config.maxTokens(req)),
	})
	if err != nil {
		return nil, &APICallError{Provider: ProviderOpenAI, Model: modelName, Cause: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &APICallError{Provider: ProviderOpenAI, Model: modelName, Cause: fmt.Errorf("no choices in response")}
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		Model:        modelName,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// Close is a no-op; the SDK holds no long-lived resources.
func (c *OpenAIClient) Close() error {
	return nil
}
