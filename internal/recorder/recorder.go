// Package recorder persists assets, market snapshots, signal events, daily
// briefs and subscription state.
package recorder

import (
	"context"
	"errors"
	"time"

	"Watchtower/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Recorder is the storage used by the refresh, brief and overdue jobs.
type Recorder interface {
	// ListActiveAssets returns active assets ordered by symbol.
	ListActiveAssets(ctx context.Context) ([]model.Asset, error)
	// UpsertAsset inserts or updates an asset by symbol and sets a.ID.
	// Derived fields are left untouched on update.
	UpsertAsset(ctx context.Context, a *model.Asset) error
	UpdateAssetDerived(ctx context.Context, assetID string, d model.AssetDerived, at time.Time) error

	// LatestSnapshot returns ErrNotFound when the asset has no snapshot.
	LatestSnapshot(ctx context.Context, assetID string) (*model.Snapshot, error)
	RecordSnapshot(ctx context.Context, s *model.Snapshot) error

	RecordSignalEvent(ctx context.Context, e *model.SignalEvent) error
	// SignalEventsBetween returns events with start <= OccurredAt < end,
	// oldest first, with Symbol filled in.
	SignalEventsBetween(ctx context.Context, start, end time.Time) ([]model.SignalEvent, error)

	// SaveBrief upserts the brief for its (BriefDate, Timezone) pair.
	SaveBrief(ctx context.Context, b *model.DailyBrief) error
	// LatestBrief returns ErrNotFound when no brief was generated yet.
	LatestBrief(ctx context.Context) (*model.DailyBrief, error)

	// UpsertSubscription inserts or updates a subscription by email and sets s.ID.
	UpsertSubscription(ctx context.Context, s *model.Subscription) error
	ListSubscriptions(ctx context.Context) ([]model.Subscription, error)
	// UpdateSubscription writes status, stage, due date and last notice time.
	UpdateSubscription(ctx context.Context, s *model.Subscription) error
	RecordNotification(ctx context.Context, n *model.Notification) error

	// AcquireLease takes or renews the named lease for owner until now+ttl.
	// It reports false while a different owner holds an unexpired lease.
	AcquireLease(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) (bool, error)
	// ReleaseLease drops the lease if owner still holds it.
	ReleaseLease(ctx context.Context, name, owner string) error

	Close() error
}

const briefDateLayout = "2006-01-02"
