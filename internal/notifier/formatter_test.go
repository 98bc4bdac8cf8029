package notifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"Watchtower/internal/model"
)

func TestFormatSignalEvents(t *testing.T) {
	assert.Empty(t, FormatSignalEvents(nil))

	msg := FormatSignalEvents([]model.SignalEvent{{
		Symbol:      "AT&T",
		EventType:   model.EventEnterBuy,
		FromState:   model.StateNone,
		ToState:     model.StateBuy,
		Price:       model.Float(17.5),
		TargetEntry: model.Float(18),
	}})
	assert.Contains(t, msg, "Signal changes</b> (1)")
	assert.Contains(t, msg, "<b>AT&amp;T</b> ENTER_BUY: NONE → BUY @ 17.50")
	assert.Contains(t, msg, "entry 18.00 | exit N/A")
}

func TestFormatBrief(t *testing.T) {
	p := model.BriefPayload{
		Summary:    "Daily brief: 1 buy-side and 0 sell-side active signals across the watchlist.",
		Buy:        []string{"VOD.L"},
		Sell:       []string{},
		NewToday:   []string{"VOD.L"},
		DroppedOff: []string{},
		Insights:   []string{"Active BUY signals: 1. Active SELL signals: 0."},
		Model:      "deterministic-fallback",
		IsFallback: true,
	}
	msg := FormatBrief("2026-02-19", p)
	assert.Contains(t, msg, "Daily brief</b> | 2026-02-19")
	assert.Contains(t, msg, "<b>Buy:</b> VOD.L")
	assert.NotContains(t, msg, "<b>Sell:</b>")
	assert.Contains(t, msg, "• Active BUY signals: 1.")
	assert.Contains(t, msg, "deterministic brief")

	p.IsFallback = false
	p.Model = "gemini-2.5-flash"
	assert.Contains(t, FormatBrief("2026-02-19", p), "<i>gemini-2.5-flash</i>")
}

func TestFormatActiveSignals(t *testing.T) {
	assert.Equal(t, "✅ No active signals.", FormatActiveSignals(nil))

	msg := FormatActiveSignals([]model.ActiveSignalRow{
		{Symbol: "BTC", State: model.StateSell, CurrentPrice: model.Float(50000), DailyChangePct: model.Float(-1.234)},
		{Symbol: "VOD.L", State: model.StateBuy},
	})
	assert.Contains(t, msg, "(2)")
	assert.Contains(t, msg, "<b>BTC</b> SELL | 50000.00 (-1.23%)")
	assert.Contains(t, msg, "<b>VOD.L</b> BUY | N/A (N/A)")
}

func TestFormatCounters(t *testing.T) {
	assert.Contains(t, FormatRefresh(5, 4, 1, 2), "processed 5 | updated 4 | skipped 1 | events 2")
	assert.Contains(t, FormatOverdueSummary(3, 2, 1), "scanned 3 | flagged 2 | notified 1")
	assert.Equal(t, "⚠️ <b>a&lt;b</b>\nbody", FormatOverdueNotice("a<b", "body"))
	assert.Contains(t, FormatHelp(), "/refresh")
}
