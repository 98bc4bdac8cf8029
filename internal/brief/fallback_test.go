package brief

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Watchtower/internal/model"
)

func TestBuildFallback_Minimal(t *testing.T) {
	b := BuildFallback(model.DailySignalSummary{
		Buy:        []string{"AAPL"},
		Sell:       []string{"TSLA"},
		NewToday:   []string{"AAPL"},
		DroppedOff: []string{},
	})

	assert.NotEmpty(t, b.Summary)
	assert.Equal(t, []string{"AAPL"}, b.Buy)
	assert.Equal(t, []string{"TSLA"}, b.Sell)
	assert.Equal(t, FallbackModel, b.Model)
	assert.True(t, b.IsFallback)
	require.Len(t, b.Insights, 4)
	assert.Equal(t, "Active BUY signals: 1. Active SELL signals: 1.", b.Insights[0])
	assert.Equal(t, "New signal entries today: AAPL.", b.Insights[1])
	assert.Equal(t, cautionLine, b.Insights[2])
	assert.Equal(t, cautionLine, b.Insights[3])
}

func TestBuildFallback_EmptySummary(t *testing.T) {
	b := BuildFallback(model.DailySignalSummary{})
	assert.Len(t, b.Insights, 4)
	assert.Equal(t, []string{}, b.Buy)
	assert.Equal(t, "Daily brief: 0 buy-side and 0 sell-side active signals across the watchlist.", b.Summary)
}

func fullSummary() model.DailySignalSummary {
	return model.DailySignalSummary{
		Date:       "2026-02-19",
		Buy:        []string{"AAPL", "BTC"},
		Sell:       []string{"BTC"},
		NewToday:   []string{"AAPL"},
		DroppedOff: []string{"TSLA"},
		Market: &model.MarketBreadth{
			TotalAssets:   5,
			ActiveSignals: 2,
			Advancers:     2,
			Decliners:     1,
			Flat:          2,
			AvgChangePct:  0.456,
			TopGainers:    []model.MoverRow{{Symbol: "AAPL", AssetType: "EQUITY", ChangePct: 2.5}},
			TopLosers:     []model.MoverRow{{Symbol: "TSLA", AssetType: "EQUITY", ChangePct: -1.25}},
			ByAssetType: []model.AssetTypeRollup{
				{AssetType: "EQUITY", Total: 4, ActiveSignals: 1, BuySignals: 1},
				{AssetType: "CRYPTO", Total: 1, ActiveSignals: 1, BuySignals: 1, SellSignals: 1},
			},
		},
	}
}

func TestBuildFallback_WithMarketCapsAtSix(t *testing.T) {
	b := BuildFallback(fullSummary())

	require.Len(t, b.Insights, 6)
	assert.Equal(t, "Market breadth: 2 advancing, 1 declining, 2 flat. Avg change 0.46%.", b.Insights[3])
	assert.Equal(t, "Top gainers: AAPL (2.50%).", b.Insights[4])
	assert.Equal(t, "Top losers: TSLA (-1.25%).", b.Insights[5])
	assert.Contains(t, b.Summary, "2 total active signals out of 5 assets.")
}

func TestBuildFallback_MostActiveClassKeepsFirstOnTie(t *testing.T) {
	s := model.DailySignalSummary{Market: &model.MarketBreadth{
		ByAssetType: []model.AssetTypeRollup{
			{AssetType: "EQUITY", Total: 4, ActiveSignals: 1},
			{AssetType: "CRYPTO", Total: 1, ActiveSignals: 1},
		},
	}}
	b := BuildFallback(s)
	assert.Contains(t, b.Insights, "Most active class: EQUITY with 1 active signals out of 4 tracked.")
}

func TestBuildFallback_Deterministic(t *testing.T) {
	a, err := json.Marshal(BuildFallback(fullSummary()))
	require.NoError(t, err)
	b, err := json.Marshal(BuildFallback(fullSummary()))
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}
