package brief

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"Watchtower/internal/common"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiSummarizer implements Summarizer with the Google Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
	logger *common.Logger
}

// GeminiOption configures a GeminiSummarizer.
type GeminiOption func(*GeminiSummarizer)

// WithModel sets the model name.
func WithModel(model string) GeminiOption {
	return func(g *GeminiSummarizer) {
		if model != "" {
			g.model = model
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *common.Logger) GeminiOption {
	return func(g *GeminiSummarizer) {
		g.logger = logger
	}
}

// NewGeminiSummarizer creates a summarizer for apiKey.
func NewGeminiSummarizer(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiSummarizer, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	g := &GeminiSummarizer{
		client: client,
		model:  DefaultModel,
		logger: common.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Model returns the configured model name.
func (g *GeminiSummarizer) Model() string { return g.model }

// Summarize asks the model for a JSON brief.
func (g *GeminiSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	g.logger.Debug().Str("model", g.model).Msg("generating daily brief")

	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return extractText(result)
}

func extractText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("no content generated")
	}
	var b strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text in response")
	}
	return b.String(), nil
}
