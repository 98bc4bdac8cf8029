// Package summary builds the portfolio-level daily signal view.
package summary

import (
	"sort"
	"time"

	"Watchtower/internal/model"
	"Watchtower/internal/signals"
)

// flatBand is the daily change, in percentage points, inside which an asset
// counts as flat.
const flatBand = 0.05

// topMovers is how many gainers and losers the summary keeps.
const topMovers = 3

// AssetView is an asset with its latest snapshot, as the aggregator sees it.
type AssetView struct {
	AssetID        string
	Symbol         string
	Name           string
	AssetType      string
	Input          model.SignalInput
	CurrentPrice   *float64
	DailyChangePct *float64
	CapturedAt     time.Time
}

// NewAssetView pairs an asset with its latest snapshot, which may be nil.
func NewAssetView(a model.Asset, latest *model.Snapshot) AssetView {
	v := AssetView{
		AssetID:   a.ID,
		Symbol:    a.Symbol,
		Name:      a.Name,
		AssetType: a.AssetType,
		Input:     a.SignalInput(latest),
	}
	if latest != nil {
		v.CurrentPrice = latest.CurrentPrice
		v.DailyChangePct = latest.DailyChangePct
		v.CapturedAt = latest.CapturedAt
	}
	return v
}

// Summarize classifies every asset and aggregates the day's breadth and
// movers. NewToday and DroppedOff come only from events, which the caller
// has already limited to the day window.
func Summarize(day time.Time, assets []AssetView, events []model.SignalEvent) model.DailySignalSummary {
	var buy, sell []string
	var movers []model.MoverRow
	var order []string
	rollups := make(map[string]*model.AssetTypeRollup)
	market := &model.MarketBreadth{TotalAssets: len(assets)}
	var changeSum float64

	for _, a := range assets {
		state := signals.Classify(a.Input)

		r, ok := rollups[a.AssetType]
		if !ok {
			r = &model.AssetTypeRollup{AssetType: a.AssetType}
			rollups[a.AssetType] = r
			order = append(order, a.AssetType)
		}
		r.Total++

		if signals.IsBuyLike(state) {
			buy = append(buy, a.Symbol)
			r.BuySignals++
		}
		if signals.IsSellLike(state) {
			sell = append(sell, a.Symbol)
			r.SellSignals++
		}
		if signals.IsActive(state) {
			market.ActiveSignals++
			r.ActiveSignals++
		}

		if a.DailyChangePct == nil {
			market.Flat++
			continue
		}
		change := *a.DailyChangePct
		movers = append(movers, model.MoverRow{Symbol: a.Symbol, AssetType: a.AssetType, ChangePct: change})
		changeSum += change
		switch {
		case change > flatBand:
			market.Advancers++
		case change < -flatBand:
			market.Decliners++
		default:
			market.Flat++
		}
	}

	if len(movers) > 0 {
		market.AvgChangePct = changeSum / float64(len(movers))
	}
	market.TopGainers = rankMovers(movers, func(a, b float64) bool { return a > b })
	market.TopLosers = rankMovers(movers, func(a, b float64) bool { return a < b })

	market.ByAssetType = make([]model.AssetTypeRollup, 0, len(order))
	for _, t := range order {
		market.ByAssetType = append(market.ByAssetType, *rollups[t])
	}

	newToday, droppedOff := eventSymbols(events)

	return model.DailySignalSummary{
		Date:       day.Format("2006-01-02"),
		Buy:        sortedUnique(buy),
		Sell:       sortedUnique(sell),
		NewToday:   newToday,
		DroppedOff: droppedOff,
		Market:     market,
	}
}

func rankMovers(rows []model.MoverRow, before func(a, b float64) bool) []model.MoverRow {
	ranked := make([]model.MoverRow, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool { return before(ranked[i].ChangePct, ranked[j].ChangePct) })
	if len(ranked) > topMovers {
		ranked = ranked[:topMovers]
	}
	return ranked
}

func eventSymbols(events []model.SignalEvent) (newToday, droppedOff []string) {
	entered := make(map[string]struct{})
	dropped := make(map[string]struct{})
	for _, e := range events {
		if signals.IsActive(e.ToState) {
			entered[e.Symbol] = struct{}{}
		}
		if e.ToState == model.StateNone && e.FromState != model.StateNone {
			dropped[e.Symbol] = struct{}{}
		}
	}
	return setToSorted(entered), setToSorted(dropped)
}

func sortedUnique(in []string) []string {
	set := make(map[string]struct{}, len(in))
	for _, s := range in {
		set[s] = struct{}{}
	}
	return setToSorted(set)
}

func setToSorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ActiveSignals lists assets currently in an active state, sorted by symbol.
func ActiveSignals(assets []AssetView) []model.ActiveSignalRow {
	var rows []model.ActiveSignalRow
	for _, a := range assets {
		state := signals.Classify(a.Input)
		if !signals.IsActive(state) {
			continue
		}
		rows = append(rows, model.ActiveSignalRow{
			AssetID:        a.AssetID,
			Symbol:         a.Symbol,
			Name:           a.Name,
			State:          state,
			CurrentPrice:   a.CurrentPrice,
			DailyChangePct: a.DailyChangePct,
			TargetEntry:    a.Input.TargetEntry,
			TargetExit:     a.Input.TargetExit,
			CapturedAt:     a.CapturedAt,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Symbol < rows[j].Symbol })
	return rows
}
