package jobs

import (
	"context"
	"errors"
	"fmt"

	"Watchtower/internal/model"
	"Watchtower/internal/recorder"
	"Watchtower/internal/summary"
)

// LoadAssetViews pairs every active asset with its latest snapshot.
func LoadAssetViews(ctx context.Context, rec recorder.Recorder) ([]summary.AssetView, error) {
	assets, err := rec.ListActiveAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	views := make([]summary.AssetView, 0, len(assets))
	for _, a := range assets {
		latest, err := rec.LatestSnapshot(ctx, a.ID)
		if err != nil && !errors.Is(err, recorder.ErrNotFound) {
			return nil, fmt.Errorf("latest snapshot %s: %w", a.Symbol, err)
		}
		views = append(views, summary.NewAssetView(a, latest))
	}
	return views, nil
}

// ActiveSignals lists the assets whose latest snapshot puts them in a
// signal zone.
func ActiveSignals(ctx context.Context, rec recorder.Recorder) ([]model.ActiveSignalRow, error) {
	views, err := LoadAssetViews(ctx, rec)
	if err != nil {
		return nil, err
	}
	return summary.ActiveSignals(views), nil
}
