package brief

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"Watchtower/internal/common"
	"Watchtower/internal/model"
)

// Summarizer turns a prompt into model text.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
	Model() string
}

// Generator writes the daily brief. Without a summarizer, or whenever the
// summarizer fails or returns something unusable, it returns the fallback.
type Generator struct {
	summarizer Summarizer
	logger     *common.Logger
}

// NewGenerator creates a generator. s may be nil.
func NewGenerator(s Summarizer, logger *common.Logger) *Generator {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Generator{summarizer: s, logger: logger}
}

// Generate builds the brief for s.
func (g *Generator) Generate(ctx context.Context, s model.DailySignalSummary) model.BriefPayload {
	fallback := BuildFallback(s)
	if g.summarizer == nil {
		return fallback
	}

	data, err := json.Marshal(s)
	if err != nil {
		g.logger.Warn().Err(err).Msg("marshal summary for brief")
		return fallback
	}

	text, err := g.summarizer.Summarize(ctx, buildPrompt(data))
	if err != nil {
		g.logger.Warn().Err(err).Str("model", g.summarizer.Model()).Msg("brief summarizer failed, using fallback")
		return fallback
	}
	return ParseModelOutput(text, g.summarizer.Model(), fallback)
}

// ParseModelOutput accepts model output when it is JSON with a summary and
// an insights array. List fields the model omitted are taken from fallback.
// Anything else returns fallback unchanged.
func ParseModelOutput(text, modelName string, fallback model.BriefPayload) model.BriefPayload {
	text = strings.TrimSpace(text)
	if text == "" {
		return fallback
	}

	var out struct {
		Summary    string    `json:"summary"`
		Buy        *[]string `json:"buy"`
		Sell       *[]string `json:"sell"`
		NewToday   *[]string `json:"newToday"`
		DroppedOff *[]string `json:"droppedOff"`
		Insights   *[]string `json:"insights"`
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &out); err != nil {
		return fallback
	}
	if out.Summary == "" || out.Insights == nil {
		return fallback
	}

	return model.BriefPayload{
		Summary:    out.Summary,
		Buy:        listOr(out.Buy, fallback.Buy),
		Sell:       listOr(out.Sell, fallback.Sell),
		NewToday:   listOr(out.NewToday, fallback.NewToday),
		DroppedOff: listOr(out.DroppedOff, fallback.DroppedOff),
		Insights:   *out.Insights,
		Model:      modelName,
		IsFallback: false,
	}
}

func listOr(v *[]string, fallback []string) []string {
	if v == nil || *v == nil {
		return fallback
	}
	return *v
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

const systemInstruction = "You are a financial watchlist analyst. Return strict JSON with keys: summary, buy, sell, newToday, droppedOff, insights. " +
	"Insights must include market breadth, top movers, and asset-class observations when data is provided."

func buildPrompt(summaryJSON []byte) string {
	return fmt.Sprintf("%s\n\nSignal summary:\n%s", systemInstruction, summaryJSON)
}
