// Package jobs runs the market refresh, daily brief and overdue check
// against storage, market data and the notifier.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Watchtower/internal/calculator"
	"Watchtower/internal/common"
	"Watchtower/internal/model"
	"Watchtower/internal/notifier"
	"Watchtower/internal/recorder"
	"Watchtower/internal/signals"
)

// SourceFallbackPrevious marks a snapshot built without a fresh quote.
const SourceFallbackPrevious = "fallback-previous"

// QuoteSource supplies quotes and FX rates. collector.Collector satisfies it.
type QuoteSource interface {
	Quote(ctx context.Context, assetType, symbol string) (*model.Quote, error)
	Rates(ctx context.Context) model.FxRates
}

// ProgressCallback is called after each asset is processed.
type ProgressCallback func(done, total int, symbol string)

// RefreshResult counts what one refresh did.
type RefreshResult struct {
	Processed     int
	Updated       int
	Skipped       int
	Failed        int
	EventsCreated int
	Events        []model.SignalEvent
}

// Refresher pulls fresh quotes for every active asset, records a snapshot,
// emits signal transitions and writes the portfolio fields back to the asset.
type Refresher struct {
	rec           recorder.Recorder
	quotes        QuoteSource
	notifier      notifier.Notifier
	portfolioSize float64
	logger        *common.Logger
	progress      ProgressCallback
	owner         string
	now           func() time.Time
}

// NewRefresher creates a Refresher. n may be nil.
func NewRefresher(rec recorder.Recorder, quotes QuoteSource, n notifier.Notifier, portfolioSize float64, logger *common.Logger) *Refresher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Refresher{
		rec:           rec,
		quotes:        quotes,
		notifier:      n,
		portfolioSize: portfolioSize,
		logger:        logger.Component("refresh"),
		owner:         uuid.NewString(),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SetProgressCallback sets the progress callback function.
func (r *Refresher) SetProgressCallback(fn ProgressCallback) {
	r.progress = fn
}

// Run refreshes every active asset once. Assets are processed one at a time
// so each asset's snapshot and event are written in order. The refresh lease
// keeps other processes on the same database from refreshing concurrently;
// ErrBusy is returned while one does.
func (r *Refresher) Run(ctx context.Context) (*RefreshResult, error) {
	var result *RefreshResult
	err := withLease(ctx, r.rec, LeaseRefresh, r.owner, r.now(), func() error {
		var err error
		result, err = r.run(ctx)
		return err
	})
	return result, err
}

func (r *Refresher) run(ctx context.Context) (*RefreshResult, error) {
	assets, err := r.rec.ListActiveAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}

	fx := r.quotes.Rates(ctx)
	result := &RefreshResult{Processed: len(assets)}

	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		outcome, event, err := r.refreshAsset(ctx, asset, fx)
		switch {
		case err != nil:
			result.Failed++
			r.logger.Error().Err(err).Str("symbol", asset.Symbol).Msg("refresh asset failed")
		case outcome == outcomeSkipped:
			result.Skipped++
		default:
			result.Updated++
		}
		if event != nil {
			result.EventsCreated++
			result.Events = append(result.Events, *event)
		}

		if r.progress != nil {
			r.progress(i+1, len(assets), asset.Symbol)
		}
	}

	r.logger.Info().
		Int("processed", result.Processed).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int("events", result.EventsCreated).
		Msg("market refresh complete")

	if r.notifier != nil && len(result.Events) > 0 {
		if err := r.notifier.Send(ctx, notifier.FormatSignalEvents(result.Events)); err != nil {
			r.logger.Warn().Err(err).Msg("send signal events")
		}
	}
	return result, nil
}

type outcome int

const (
	outcomeUpdated outcome = iota
	outcomeSkipped
)

func (r *Refresher) refreshAsset(ctx context.Context, asset model.Asset, fx model.FxRates) (outcome, *model.SignalEvent, error) {
	previous, err := r.rec.LatestSnapshot(ctx, asset.ID)
	if err != nil && !errors.Is(err, recorder.ErrNotFound) {
		return 0, nil, fmt.Errorf("latest snapshot: %w", err)
	}

	quote, err := r.quotes.Quote(ctx, asset.AssetType, asset.Symbol)
	if err != nil {
		r.logger.Warn().Err(err).Str("symbol", asset.Symbol).Msg("quote unavailable, using previous snapshot")
		quote = nil
	}
	if quote == nil && previous == nil {
		return outcomeSkipped, nil, nil
	}

	if !calculator.IsKnownCurrency(asset.Currency) {
		r.logger.Warn().Str("symbol", asset.Symbol).Str("currency", asset.Currency).
			Msg("unrecognised currency, treating amounts as GBP")
	}

	merged := mergeSnapshot(asset, quote, previous)
	merged.CapturedAt = r.now()
	merged.SignalState = signals.Classify(asset.SignalInput(merged))

	inputs := model.SpreadsheetInputs{
		Symbol:        asset.Symbol,
		Name:          asset.Name,
		Currency:      asset.Currency,
		PortfolioSize: r.portfolioSize,
		Shares:        asset.Shares,
		EntryPrice:    asset.EntryPrice,
		CurrentPrice:  merged.CurrentPrice,
		CloseYest:     merged.CloseYest,
		DailyHigh:     merged.DailyHigh,
		DailyLow:      merged.DailyLow,
		Low52:         merged.Low52,
		TargetEntry:   asset.TargetEntry,
		TargetExit:    asset.TargetExit,
		Fx:            fx,
	}
	if err := calculator.ValidateInputs(inputs); err != nil {
		return 0, nil, err
	}
	parity := calculator.ComputeDerived(inputs)
	merged.Parity = &parity
	merged.DailyChange = model.Coalesce(merged.DailyChange, parity.DailyChange)
	merged.DailyChangePct = model.Coalesce(merged.DailyChangePct, parity.DailyChangePct)

	if err := r.rec.RecordSnapshot(ctx, merged); err != nil {
		return 0, nil, fmt.Errorf("record snapshot: %w", err)
	}

	from := model.StateNone
	if previous != nil {
		from = previous.SignalState
	}
	var event *model.SignalEvent
	if typ, ok := signals.TransitionEvent(from, merged.SignalState); ok {
		event = &model.SignalEvent{
			AssetID:     asset.ID,
			Symbol:      asset.Symbol,
			EventType:   typ,
			FromState:   from,
			ToState:     merged.SignalState,
			Price:       merged.CurrentPrice,
			TargetEntry: asset.TargetEntry,
			TargetExit:  asset.TargetExit,
			OccurredAt:  merged.CapturedAt,
		}
		if err := r.rec.RecordSignalEvent(ctx, event); err != nil {
			return 0, nil, fmt.Errorf("record signal event: %w", err)
		}
	}

	derived := assetDerived(asset, merged, parity, fx)
	if err := r.rec.UpdateAssetDerived(ctx, asset.ID, derived, merged.CapturedAt); err != nil {
		return 0, event, fmt.Errorf("update asset: %w", err)
	}
	return outcomeUpdated, event, nil
}

// mergeSnapshot layers the quote over the previous snapshot over the asset's
// stored reference data. Either quote or previous may be nil.
func mergeSnapshot(asset model.Asset, quote *model.Quote, previous *model.Snapshot) *model.Snapshot {
	var q model.Quote
	if quote != nil {
		q = *quote
	}
	var p model.Snapshot
	if previous != nil {
		p = *previous
	}

	s := &model.Snapshot{
		AssetID:        asset.ID,
		CurrentPrice:   model.Coalesce(q.CurrentPrice, p.CurrentPrice),
		DailyHigh:      model.Coalesce(q.DailyHigh, p.DailyHigh),
		DailyLow:       model.Coalesce(q.DailyLow, p.DailyLow),
		CloseYest:      model.Coalesce(q.CloseYest, p.CloseYest, asset.CloseYest),
		DailyChange:    model.Coalesce(q.DailyChange, p.DailyChange),
		DailyChangePct: model.Coalesce(q.DailyChangePct, p.DailyChangePct),
		Beta:           model.Coalesce(q.Beta, p.Beta, asset.Beta),
		Low52:          model.Coalesce(q.Low52, p.Low52, asset.Low52),
		High52:         model.Coalesce(q.High52, p.High52, asset.High52),
		VolumeAvg:      model.Coalesce(q.VolumeAvg, p.VolumeAvg, asset.VolumeAvg),
		PE:             model.Coalesce(q.PE, p.PE, asset.PE),
		MarketCap:      model.Coalesce(q.MarketCap, p.MarketCap, asset.MarketCap),
		DataDelay:      model.Coalesce(q.DataDelay, p.DataDelay, asset.DataDelay),
		Source:         SourceFallbackPrevious,
	}
	if quote != nil && quote.Source != "" {
		s.Source = quote.Source
	}
	return s
}

// assetDerived picks the values written back to the asset. Parity results
// win; otherwise the value is estimated from price and shares and the
// asset's stored figures are kept.
func assetDerived(asset model.Asset, s *model.Snapshot, parity model.SpreadsheetDerived, fx model.FxRates) model.AssetDerived {
	var fallbackValue *float64
	if s.CurrentPrice != nil && asset.Shares != nil {
		fallbackValue = calculator.ToBase(model.Float(*s.CurrentPrice * *asset.Shares), asset.Currency, fx)
	}
	cost := model.Coalesce(parity.CurrentCostGBP, asset.CurrentCostGBP)
	value := model.Coalesce(parity.CurrentValueGBP, fallbackValue)

	returnPct := parity.ReturnPct
	if returnPct == nil {
		if value != nil && cost != nil && *cost != 0 {
			returnPct = model.Float((*value / *cost - 1) * 100)
		} else {
			returnPct = asset.ReturnPct
		}
	}

	return model.AssetDerived{
		CloseYest:       s.CloseYest,
		Beta:            s.Beta,
		Low52:           s.Low52,
		High52:          s.High52,
		VolumeAvg:       s.VolumeAvg,
		PE:              s.PE,
		MarketCap:       s.MarketCap,
		DataDelay:       s.DataDelay,
		CurrentCostGBP:  cost,
		CurrentValueGBP: value,
		WeightPct:       model.Coalesce(parity.WeightPct, asset.WeightPct),
		ReturnPct:       returnPct,
	}
}
