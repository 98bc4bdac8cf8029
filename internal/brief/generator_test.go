package brief

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"Watchtower/internal/model"
)

type stubSummarizer struct {
	text   string
	err    error
	prompt string
}

func (s *stubSummarizer) Summarize(_ context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.text, s.err
}

func (s *stubSummarizer) Model() string { return "stub-model" }

func TestGenerator_NoSummarizer(t *testing.T) {
	g := NewGenerator(nil, nil)
	b := g.Generate(context.Background(), fullSummary())
	assert.True(t, b.IsFallback)
	assert.Equal(t, FallbackModel, b.Model)
}

func TestGenerator_UsesModelOutput(t *testing.T) {
	s := &stubSummarizer{text: `{"summary":"Quiet day.","insights":["one","two"],"buy":["AAPL"]}`}
	b := NewGenerator(s, nil).Generate(context.Background(), fullSummary())

	assert.False(t, b.IsFallback)
	assert.Equal(t, "stub-model", b.Model)
	assert.Equal(t, "Quiet day.", b.Summary)
	assert.Equal(t, []string{"one", "two"}, b.Insights)
	assert.Equal(t, []string{"AAPL"}, b.Buy)
	// omitted lists come from the summary
	assert.Equal(t, []string{"BTC"}, b.Sell)
	assert.Equal(t, []string{"TSLA"}, b.DroppedOff)
	assert.Contains(t, s.prompt, `"date":"2026-02-19"`)
}

func TestGenerator_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		stub *stubSummarizer
	}{
		{"summarizer error", &stubSummarizer{err: errors.New("quota exceeded")}},
		{"empty text", &stubSummarizer{text: "  "}},
		{"not json", &stubSummarizer{text: "Here is your brief"}},
		{"missing summary", &stubSummarizer{text: `{"insights":["a"]}`}},
		{"missing insights", &stubSummarizer{text: `{"summary":"x"}`}},
		{"insights not array", &stubSummarizer{text: `{"summary":"x","insights":"a"}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewGenerator(tt.stub, nil).Generate(context.Background(), fullSummary())
			assert.Equal(t, BuildFallback(fullSummary()), b)
		})
	}
}

func TestParseModelOutput_CodeFence(t *testing.T) {
	fb := BuildFallback(model.DailySignalSummary{})
	b := ParseModelOutput("```json\n{\"summary\":\"s\",\"insights\":[]}\n```", "m", fb)
	assert.False(t, b.IsFallback)
	assert.Equal(t, "s", b.Summary)
	assert.Equal(t, []string{}, b.Insights)
}
