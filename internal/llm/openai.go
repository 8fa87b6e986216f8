package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const DefaultOpenAIModel = openai.GPT3Dot5Turbo

type OpenAIConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	Generation GenerationConfig
	HTTPClient *http.Client
}

// OpenAIProvider sends the prompt as a single user message to a chat
// completions endpoint.
type OpenAIProvider struct {
	client     *openai.Client
	apiKey     string
	model      string
	generation GenerationConfig
}

func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenAIModel
	}
	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGeneration()
	}

	return &OpenAIProvider{
		client:     openai.NewClientWithConfig(clientCfg),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		generation: cfg.Generation,
	}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) APIKey() string { return p.apiKey }

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: p.generation.Temperature,
		TopP:        p.generation.TopP,
		MaxTokens:   p.generation.MaxOutputTokens,
	})
	if err != nil {
		return "", translateOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: body}
	}

	return fmt.Errorf("failed to create completion: %w", err)
}
