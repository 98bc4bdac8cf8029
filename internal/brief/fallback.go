// Package brief produces the daily brief, from a language model when one is
// configured and from deterministic templates otherwise.
package brief

import (
	"fmt"
	"sort"
	"strings"

	"Watchtower/internal/model"
)

// FallbackModel identifies briefs built without a language model.
const FallbackModel = "deterministic-fallback"

const (
	minInsights = 4
	maxInsights = 6
	cautionLine = "Check high-volatility assets first and validate targets before action."
)

// BuildFallback turns a daily summary into a brief using fixed templates. The
// same summary always produces the same brief.
func BuildFallback(s model.DailySignalSummary) model.BriefPayload {
	insights := []string{
		fmt.Sprintf("Active BUY signals: %d. Active SELL signals: %d.", len(s.Buy), len(s.Sell)),
	}
	if len(s.NewToday) > 0 {
		insights = append(insights, fmt.Sprintf("New signal entries today: %s.", strings.Join(s.NewToday, ", ")))
	}
	if len(s.DroppedOff) > 0 {
		insights = append(insights, fmt.Sprintf("Dropped from signal zones today: %s.", strings.Join(s.DroppedOff, ", ")))
	}
	if m := s.Market; m != nil {
		insights = append(insights, fmt.Sprintf("Market breadth: %d advancing, %d declining, %d flat. Avg change %.2f%%.",
			m.Advancers, m.Decliners, m.Flat, m.AvgChangePct))
		if len(m.TopGainers) > 0 {
			insights = append(insights, fmt.Sprintf("Top gainers: %s.", formatMovers(m.TopGainers)))
		}
		if len(m.TopLosers) > 0 {
			insights = append(insights, fmt.Sprintf("Top losers: %s.", formatMovers(m.TopLosers)))
		}
		if top, ok := mostActiveType(m.ByAssetType); ok {
			insights = append(insights, fmt.Sprintf("Most active class: %s with %d active signals out of %d tracked.",
				top.AssetType, top.ActiveSignals, top.Total))
		}
	}
	for len(insights) < minInsights {
		insights = append(insights, cautionLine)
	}
	if len(insights) > maxInsights {
		insights = insights[:maxInsights]
	}

	summary := fmt.Sprintf("Daily brief: %d buy-side and %d sell-side active signals across the watchlist.", len(s.Buy), len(s.Sell))
	if s.Market != nil {
		summary += fmt.Sprintf(" %d total active signals out of %d assets.", s.Market.ActiveSignals, s.Market.TotalAssets)
	}

	return model.BriefPayload{
		Summary:    summary,
		Buy:        nonNil(s.Buy),
		Sell:       nonNil(s.Sell),
		NewToday:   nonNil(s.NewToday),
		DroppedOff: nonNil(s.DroppedOff),
		Insights:   insights,
		Model:      FallbackModel,
		IsFallback: true,
	}
}

func formatMovers(rows []model.MoverRow) string {
	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = fmt.Sprintf("%s (%.2f%%)", r.Symbol, r.ChangePct)
	}
	return strings.Join(parts, ", ")
}

// mostActiveType picks the rollup with the most active signals, keeping the
// first on ties.
func mostActiveType(rollups []model.AssetTypeRollup) (model.AssetTypeRollup, bool) {
	if len(rollups) == 0 {
		return model.AssetTypeRollup{}, false
	}
	sorted := make([]model.AssetTypeRollup, len(rollups))
	copy(sorted, rollups)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ActiveSignals > sorted[j].ActiveSignals })
	return sorted[0], true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
