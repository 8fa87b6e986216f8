package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-1.5-flash-latest"

// GenerationConfig holds the sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float32 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

func DefaultGeneration() GenerationConfig {
	return GenerationConfig{
		Temperature:     0.3,
		TopK:            40,
		TopP:            0.8,
		MaxOutputTokens: 1500,
	}
}

type GeminiConfig struct {
	APIKey string
	// BaseURL overrides the API host. The SDK appends the API version.
	BaseURL    string
	APIVersion string
	Model      string
	Generation GenerationConfig
	HTTPClient *http.Client
}

// GeminiProvider calls generateContent through the genai SDK. The SDK client
// is built on first use so a missing key surfaces as ErrMissingAPIKey from
// Client.Send rather than at startup.
type GeminiProvider struct {
	cfg GeminiConfig

	once    sync.Once
	client  *genai.Client
	initErr error
}

func NewGeminiProvider(cfg GeminiConfig) *GeminiProvider {
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiModel
	}
	if cfg.Generation == (GenerationConfig{}) {
		cfg.Generation = DefaultGeneration()
	}
	return &GeminiProvider{cfg: cfg}
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) APIKey() string { return p.cfg.APIKey }

func (p *GeminiProvider) sdk(ctx context.Context) (*genai.Client, error) {
	p.once.Do(func() {
		p.client, p.initErr = genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:     p.cfg.APIKey,
			Backend:    genai.BackendGeminiAPI,
			HTTPClient: p.cfg.HTTPClient,
			HTTPOptions: genai.HTTPOptions{
				BaseURL:    p.cfg.BaseURL,
				APIVersion: p.cfg.APIVersion,
			},
		})
	})
	return p.client, p.initErr
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := p.sdk(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create genai client: %w", err)
	}

	g := p.cfg.Generation
	resp, err := client.Models.GenerateContent(ctx, p.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.Temperature),
		TopK:            genai.Ptr(float32(g.TopK)),
		TopP:            genai.Ptr(g.TopP),
		MaxOutputTokens: int32(g.MaxOutputTokens),
	})
	if err != nil {
		return "", translateGenAIError(err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no candidates", ErrMalformedResponse)
	}
	content := resp.Candidates[0].Content
	if content == nil || len(content.Parts) == 0 {
		return "", fmt.Errorf("%w: content parts are not in the expected format", ErrMalformedResponse)
	}

	texts := make([]string, 0, len(content.Parts))
	for _, part := range content.Parts {
		if part != nil && part.Text != "" {
			texts = append(texts, part.Text)
		}
	}
	if len(texts) == 0 {
		return "", fmt.Errorf("%w: no text parts", ErrMalformedResponse)
	}
	return strings.Join(texts, " "), nil
}

// translateGenAIError turns SDK replies into StatusError so the client's
// 429 and 5xx handling applies unchanged.
func translateGenAIError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code != 0 {
		return &StatusError{StatusCode: apiErr.Code, Body: truncateBody([]byte(apiErr.Message))}
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return fmt.Errorf("failed to generate content: %w", err)
}
