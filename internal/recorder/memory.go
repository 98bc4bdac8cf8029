package recorder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"Watchtower/internal/model"
)

// MemoryRecorder keeps everything in process memory. It is used when SQLite
// is not configured and by job tests.
type MemoryRecorder struct {
	mu            sync.Mutex
	assets        map[string]*model.Asset
	snapshots     map[string][]model.Snapshot
	events        []model.SignalEvent
	briefs        map[string]model.DailyBrief
	subscriptions map[string]*model.Subscription
	notifications []model.Notification
	leases        map[string]lease
}

type lease struct {
	owner     string
	expiresAt time.Time
}

func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{
		assets:        make(map[string]*model.Asset),
		snapshots:     make(map[string][]model.Snapshot),
		briefs:        make(map[string]model.DailyBrief),
		subscriptions: make(map[string]*model.Subscription),
		leases:        make(map[string]lease),
	}
}

func (m *MemoryRecorder) ListActiveAssets(_ context.Context) ([]model.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.Asset
	for _, a := range m.assets {
		if a.IsActive {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out, nil
}

func (m *MemoryRecorder) UpsertAsset(_ context.Context, a *model.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}
	for _, existing := range m.assets {
		if existing.Symbol == a.Symbol {
			a.ID = existing.ID
			existing.Name = a.Name
			existing.Reason = a.Reason
			existing.AssetType = a.AssetType
			existing.Currency = a.Currency
			existing.IsActive = a.IsActive
			existing.Shares = a.Shares
			existing.EntryPrice = a.EntryPrice
			existing.TargetEntry = a.TargetEntry
			existing.TargetExit = a.TargetExit
			existing.UpdatedAt = a.UpdatedAt
			return nil
		}
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	cp := *a
	m.assets[a.ID] = &cp
	return nil
}

func (m *MemoryRecorder) UpdateAssetDerived(_ context.Context, assetID string, d model.AssetDerived, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[assetID]
	if !ok {
		return fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	a.CloseYest, a.Beta, a.Low52, a.High52 = d.CloseYest, d.Beta, d.Low52, d.High52
	a.VolumeAvg, a.PE, a.MarketCap, a.DataDelay = d.VolumeAvg, d.PE, d.MarketCap, d.DataDelay
	a.CurrentCostGBP, a.CurrentValueGBP = d.CurrentCostGBP, d.CurrentValueGBP
	a.WeightPct, a.ReturnPct = d.WeightPct, d.ReturnPct
	a.UpdatedAt = at
	return nil
}

func (m *MemoryRecorder) LatestSnapshot(_ context.Context, assetID string) (*model.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	snaps := m.snapshots[assetID]
	if len(snaps) == 0 {
		return nil, ErrNotFound
	}
	latest := snaps[0]
	for _, s := range snaps[1:] {
		if !s.CapturedAt.Before(latest.CapturedAt) {
			latest = s
		}
	}
	return &latest, nil
}

func (m *MemoryRecorder) RecordSnapshot(_ context.Context, s *model.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.snapshots[s.AssetID] = append(m.snapshots[s.AssetID], *s)
	return nil
}

func (m *MemoryRecorder) RecordSignalEvent(_ context.Context, e *model.SignalEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.events = append(m.events, *e)
	return nil
}

func (m *MemoryRecorder) SignalEventsBetween(_ context.Context, start, end time.Time) ([]model.SignalEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []model.SignalEvent
	for _, e := range m.events {
		if e.OccurredAt.Before(start) || !e.OccurredAt.Before(end) {
			continue
		}
		if a, ok := m.assets[e.AssetID]; ok {
			e.Symbol = a.Symbol
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func briefKey(b *model.DailyBrief) string {
	return b.BriefDate.Format(briefDateLayout) + "|" + b.Timezone
}

func (m *MemoryRecorder) SaveBrief(_ context.Context, b *model.DailyBrief) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := briefKey(b)
	if existing, ok := m.briefs[key]; ok {
		b.ID = existing.ID
	} else if b.ID == "" {
		b.ID = uuid.NewString()
	}
	m.briefs[key] = *b
	return nil
}

func (m *MemoryRecorder) LatestBrief(_ context.Context) (*model.DailyBrief, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var latest *model.DailyBrief
	for _, b := range m.briefs {
		if latest == nil || newerBrief(b, *latest) {
			latest = &b
		}
	}
	if latest == nil {
		return nil, ErrNotFound
	}
	return latest, nil
}

func newerBrief(a, b model.DailyBrief) bool {
	da, db := a.BriefDate.Format(briefDateLayout), b.BriefDate.Format(briefDateLayout)
	if da != db {
		return da > db
	}
	return a.GeneratedAt.After(b.GeneratedAt)
}

func (m *MemoryRecorder) UpsertSubscription(_ context.Context, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.Status == "" {
		s.Status = model.SubscriptionActive
	}
	for _, existing := range m.subscriptions {
		if existing.Email == s.Email {
			s.ID = existing.ID
			existing.UserID = s.UserID
			existing.Status = s.Status
			existing.DueAt = s.DueAt
			return nil
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	cp := *s
	m.subscriptions[s.ID] = &cp
	return nil
}

func (m *MemoryRecorder) ListSubscriptions(_ context.Context) ([]model.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]model.Subscription, 0, len(m.subscriptions))
	for _, s := range m.subscriptions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (m *MemoryRecorder) UpdateSubscription(_ context.Context, s *model.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.subscriptions[s.ID]
	if !ok {
		return fmt.Errorf("subscription %s: %w", s.ID, ErrNotFound)
	}
	existing.Status = s.Status
	existing.DueAt = s.DueAt
	existing.OverdueStage = s.OverdueStage
	existing.LastOverdueNotifiedAt = s.LastOverdueNotifiedAt
	return nil
}

func (m *MemoryRecorder) RecordNotification(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	m.notifications = append(m.notifications, *n)
	return nil
}

// Notifications returns a copy of every recorded notification.
func (m *MemoryRecorder) Notifications() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Notification(nil), m.notifications...)
}

// Snapshots returns every snapshot recorded for assetID, oldest first.
func (m *MemoryRecorder) Snapshots(assetID string) []model.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.Snapshot(nil), m.snapshots[assetID]...)
}

func (m *MemoryRecorder) AcquireLease(_ context.Context, name, owner string, now time.Time, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, ok := m.leases[name]; ok && held.owner != owner && now.Before(held.expiresAt) {
		return false, nil
	}
	m.leases[name] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

func (m *MemoryRecorder) ReleaseLease(_ context.Context, name, owner string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if held, ok := m.leases[name]; ok && held.owner == owner {
		delete(m.leases, name)
	}
	return nil
}

func (m *MemoryRecorder) Close() error { return nil }
