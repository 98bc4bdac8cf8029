package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"Watchtower/internal/common"
	"Watchtower/internal/model"
)

// SQLiteRecorder persists Watchtower state to a SQLite database.
type SQLiteRecorder struct {
	db     *sql.DB
	mu     sync.Mutex
	logger *common.Logger
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string, logger *common.Logger) (*SQLiteRecorder, error) {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL lets the CLI read while the scheduler writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	r := &SQLiteRecorder{db: db, logger: logger.Component("recorder")}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	r.logger.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS assets (
			id                TEXT PRIMARY KEY,
			symbol            TEXT NOT NULL UNIQUE,
			name              TEXT,
			reason            TEXT,
			asset_type        TEXT,
			currency          TEXT,
			is_active         INTEGER NOT NULL DEFAULT 1,
			shares            REAL,
			entry_price       REAL,
			target_entry      REAL,
			target_exit       REAL,
			close_yest        REAL,
			beta              REAL,
			low_52w           REAL,
			high_52w          REAL,
			volume_avg        REAL,
			pe                REAL,
			market_cap        REAL,
			data_delay        REAL,
			current_cost_gbp  REAL,
			current_value_gbp REAL,
			weight_pct        REAL,
			return_pct        REAL,
			updated_at        INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS snapshots (
			id               TEXT PRIMARY KEY,
			asset_id         TEXT NOT NULL,
			captured_at      INTEGER NOT NULL,
			current_price    REAL,
			daily_high       REAL,
			daily_low        REAL,
			close_yest       REAL,
			daily_change     REAL,
			daily_change_pct REAL,
			beta             REAL,
			low_52w          REAL,
			high_52w         REAL,
			volume_avg       REAL,
			pe               REAL,
			market_cap       REAL,
			data_delay       REAL,
			signal_state     TEXT NOT NULL,
			source           TEXT,
			parity           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_asset_ts ON snapshots(asset_id, captured_at)`,

		`CREATE TABLE IF NOT EXISTS signal_events (
			id           TEXT PRIMARY KEY,
			asset_id     TEXT NOT NULL,
			event_type   TEXT NOT NULL,
			from_state   TEXT NOT NULL,
			to_state     TEXT NOT NULL,
			price        REAL,
			target_entry REAL,
			target_exit  REAL,
			occurred_at  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_signal_events_ts ON signal_events(occurred_at)`,

		`CREATE TABLE IF NOT EXISTS daily_briefs (
			id           TEXT PRIMARY KEY,
			brief_date   TEXT NOT NULL,
			timezone     TEXT NOT NULL,
			payload      TEXT NOT NULL,
			generated_at INTEGER NOT NULL,
			UNIQUE (brief_date, timezone)
		)`,

		`CREATE TABLE IF NOT EXISTS subscriptions (
			id                       TEXT PRIMARY KEY,
			user_id                  TEXT,
			email                    TEXT NOT NULL UNIQUE,
			status                   TEXT NOT NULL,
			due_at                   INTEGER,
			overdue_stage            INTEGER NOT NULL DEFAULT 0,
			last_overdue_notified_at INTEGER
		)`,

		`CREATE TABLE IF NOT EXISTS notifications (
			id         TEXT PRIMARY KEY,
			role       TEXT NOT NULL,
			type       TEXT NOT NULL,
			title      TEXT,
			body       TEXT,
			metadata   TEXT,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_ts ON notifications(created_at)`,

		`CREATE TABLE IF NOT EXISTS job_leases (
			name       TEXT PRIMARY KEY,
			owner      TEXT NOT NULL,
			expires_at INTEGER NOT NULL
		)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// --- assets ---

const assetColumns = `id, symbol, name, reason, asset_type, currency, is_active,
	shares, entry_price, target_entry, target_exit,
	close_yest, beta, low_52w, high_52w, volume_avg, pe, market_cap, data_delay,
	current_cost_gbp, current_value_gbp, weight_pct, return_pct, updated_at`

func (r *SQLiteRecorder) ListActiveAssets(ctx context.Context) ([]model.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assetColumns+` FROM assets WHERE is_active = 1 ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("query assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		var a model.Asset
		var updated int64
		if err := rows.Scan(&a.ID, &a.Symbol, &a.Name, &a.Reason, &a.AssetType, &a.Currency, &a.IsActive,
			&a.Shares, &a.EntryPrice, &a.TargetEntry, &a.TargetExit,
			&a.CloseYest, &a.Beta, &a.Low52, &a.High52, &a.VolumeAvg, &a.PE, &a.MarketCap, &a.DataDelay,
			&a.CurrentCostGBP, &a.CurrentValueGBP, &a.WeightPct, &a.ReturnPct, &updated); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		a.UpdatedAt = fromMillis(updated)
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (r *SQLiteRecorder) UpsertAsset(ctx context.Context, a *model.Asset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = time.Now().UTC()
	}

	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM assets WHERE symbol = ?`, a.Symbol).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		_, err = r.db.ExecContext(ctx, `INSERT INTO assets
			(id, symbol, name, reason, asset_type, currency, is_active,
			 shares, entry_price, target_entry, target_exit,
			 close_yest, beta, low_52w, high_52w, volume_avg, pe, market_cap, data_delay,
			 current_cost_gbp, current_value_gbp, weight_pct, return_pct, updated_at)
			VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
			a.ID, a.Symbol, a.Name, a.Reason, a.AssetType, a.Currency, a.IsActive,
			nullFloat(a.Shares), nullFloat(a.EntryPrice), nullFloat(a.TargetEntry), nullFloat(a.TargetExit),
			nullFloat(a.CloseYest), nullFloat(a.Beta), nullFloat(a.Low52), nullFloat(a.High52), nullFloat(a.VolumeAvg), nullFloat(a.PE), nullFloat(a.MarketCap), nullFloat(a.DataDelay),
			nullFloat(a.CurrentCostGBP), nullFloat(a.CurrentValueGBP), nullFloat(a.WeightPct), nullFloat(a.ReturnPct), millis(a.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert asset %s: %w", a.Symbol, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("lookup asset %s: %w", a.Symbol, err)
	}

	a.ID = id
	_, err = r.db.ExecContext(ctx, `UPDATE assets SET
		name = ?, reason = ?, asset_type = ?, currency = ?, is_active = ?,
		shares = ?, entry_price = ?, target_entry = ?, target_exit = ?, updated_at = ?
		WHERE id = ?`,
		a.Name, a.Reason, a.AssetType, a.Currency, a.IsActive,
		nullFloat(a.Shares), nullFloat(a.EntryPrice), nullFloat(a.TargetEntry), nullFloat(a.TargetExit), millis(a.UpdatedAt), id,
	)
	if err != nil {
		return fmt.Errorf("update asset %s: %w", a.Symbol, err)
	}
	return nil
}

func (r *SQLiteRecorder) UpdateAssetDerived(ctx context.Context, assetID string, d model.AssetDerived, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `UPDATE assets SET
		close_yest = ?, beta = ?, low_52w = ?, high_52w = ?, volume_avg = ?, pe = ?, market_cap = ?, data_delay = ?,
		current_cost_gbp = ?, current_value_gbp = ?, weight_pct = ?, return_pct = ?, updated_at = ?
		WHERE id = ?`,
		nullFloat(d.CloseYest), nullFloat(d.Beta), nullFloat(d.Low52), nullFloat(d.High52), nullFloat(d.VolumeAvg), nullFloat(d.PE), nullFloat(d.MarketCap), nullFloat(d.DataDelay),
		nullFloat(d.CurrentCostGBP), nullFloat(d.CurrentValueGBP), nullFloat(d.WeightPct), nullFloat(d.ReturnPct), millis(at), assetID,
	)
	if err != nil {
		return fmt.Errorf("update asset derived: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
	}
	return nil
}

// --- snapshots ---

func (r *SQLiteRecorder) LatestSnapshot(ctx context.Context, assetID string) (*model.Snapshot, error) {
	var s model.Snapshot
	var captured int64
	var state string
	var source, parity sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT id, asset_id, captured_at,
		current_price, daily_high, daily_low, close_yest, daily_change, daily_change_pct,
		beta, low_52w, high_52w, volume_avg, pe, market_cap, data_delay,
		signal_state, source, parity
		FROM snapshots WHERE asset_id = ?
		ORDER BY captured_at DESC, rowid DESC LIMIT 1`, assetID).Scan(
		&s.ID, &s.AssetID, &captured,
		&s.CurrentPrice, &s.DailyHigh, &s.DailyLow, &s.CloseYest, &s.DailyChange, &s.DailyChangePct,
		&s.Beta, &s.Low52, &s.High52, &s.VolumeAvg, &s.PE, &s.MarketCap, &s.DataDelay,
		&state, &source, &parity,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}

	s.CapturedAt = fromMillis(captured)
	s.Source = source.String
	if s.SignalState, err = model.ParseSignalState(state); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	if parity.Valid && parity.String != "" {
		var d model.SpreadsheetDerived
		if err := json.Unmarshal([]byte(parity.String), &d); err != nil {
			return nil, fmt.Errorf("decode snapshot parity: %w", err)
		}
		s.Parity = &d
	}
	return &s, nil
}

func (r *SQLiteRecorder) RecordSnapshot(ctx context.Context, s *model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	var parity any
	if s.Parity != nil {
		b, err := json.Marshal(s.Parity)
		if err != nil {
			return fmt.Errorf("encode parity: %w", err)
		}
		parity = string(b)
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO snapshots
		(id, asset_id, captured_at,
		 current_price, daily_high, daily_low, close_yest, daily_change, daily_change_pct,
		 beta, low_52w, high_52w, volume_avg, pe, market_cap, data_delay,
		 signal_state, source, parity)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		s.ID, s.AssetID, millis(s.CapturedAt),
		nullFloat(s.CurrentPrice), nullFloat(s.DailyHigh), nullFloat(s.DailyLow), nullFloat(s.CloseYest), nullFloat(s.DailyChange), nullFloat(s.DailyChangePct),
		nullFloat(s.Beta), nullFloat(s.Low52), nullFloat(s.High52), nullFloat(s.VolumeAvg), nullFloat(s.PE), nullFloat(s.MarketCap), nullFloat(s.DataDelay),
		string(s.SignalState), s.Source, parity,
	)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

// --- signal events ---

func (r *SQLiteRecorder) RecordSignalEvent(ctx context.Context, e *model.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO signal_events
		(id, asset_id, event_type, from_state, to_state, price, target_entry, target_exit, occurred_at)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		e.ID, e.AssetID, string(e.EventType), string(e.FromState), string(e.ToState),
		nullFloat(e.Price), nullFloat(e.TargetEntry), nullFloat(e.TargetExit), millis(e.OccurredAt),
	)
	if err != nil {
		return fmt.Errorf("insert signal event: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) SignalEventsBetween(ctx context.Context, start, end time.Time) ([]model.SignalEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT e.id, e.asset_id, COALESCE(a.symbol, ''), e.event_type,
		e.from_state, e.to_state, e.price, e.target_entry, e.target_exit, e.occurred_at
		FROM signal_events e LEFT JOIN assets a ON a.id = e.asset_id
		WHERE e.occurred_at >= ? AND e.occurred_at < ?
		ORDER BY e.occurred_at, e.rowid`, millis(start), millis(end))
	if err != nil {
		return nil, fmt.Errorf("query signal events: %w", err)
	}
	defer rows.Close()

	var events []model.SignalEvent
	for rows.Next() {
		var e model.SignalEvent
		var eventType, from, to string
		var occurred int64
		if err := rows.Scan(&e.ID, &e.AssetID, &e.Symbol, &eventType, &from, &to,
			&e.Price, &e.TargetEntry, &e.TargetExit, &occurred); err != nil {
			return nil, fmt.Errorf("scan signal event: %w", err)
		}
		e.EventType = model.SignalEventType(eventType)
		if e.FromState, err = model.ParseSignalState(from); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		if e.ToState, err = model.ParseSignalState(to); err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		e.OccurredAt = fromMillis(occurred)
		events = append(events, e)
	}
	return events, rows.Err()
}

// --- briefs ---

func (r *SQLiteRecorder) SaveBrief(ctx context.Context, b *model.DailyBrief) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payload, err := json.Marshal(b.Payload)
	if err != nil {
		return fmt.Errorf("encode brief: %w", err)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	date := b.BriefDate.Format(briefDateLayout)
	_, err = r.db.ExecContext(ctx, `INSERT INTO daily_briefs (id, brief_date, timezone, payload, generated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT (brief_date, timezone) DO UPDATE SET
			payload = excluded.payload, generated_at = excluded.generated_at`,
		b.ID, date, b.Timezone, string(payload), millis(b.GeneratedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert brief: %w", err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM daily_briefs WHERE brief_date = ? AND timezone = ?`,
		date, b.Timezone).Scan(&b.ID); err != nil {
		return fmt.Errorf("read brief id: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) LatestBrief(ctx context.Context) (*model.DailyBrief, error) {
	var b model.DailyBrief
	var date, payload string
	var generated int64
	err := r.db.QueryRowContext(ctx, `SELECT id, brief_date, timezone, payload, generated_at
		FROM daily_briefs ORDER BY brief_date DESC, generated_at DESC LIMIT 1`).
		Scan(&b.ID, &date, &b.Timezone, &payload, &generated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query latest brief: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &b.Payload); err != nil {
		return nil, fmt.Errorf("decode brief: %w", err)
	}
	b.BriefDate = parseBriefDate(date, b.Timezone)
	b.GeneratedAt = fromMillis(generated)
	return &b, nil
}

// parseBriefDate returns local midnight of date in tz, or UTC midnight when
// the zone cannot be loaded.
func parseBriefDate(date, tz string) time.Time {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(briefDateLayout, date, loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

// --- subscriptions ---

func (r *SQLiteRecorder) UpsertSubscription(ctx context.Context, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.Status == "" {
		s.Status = model.SubscriptionActive
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO subscriptions
		(id, user_id, email, status, due_at, overdue_stage, last_overdue_notified_at)
		VALUES (?,?,?,?,?,?,?)
		ON CONFLICT (email) DO UPDATE SET
			user_id = excluded.user_id, status = excluded.status, due_at = excluded.due_at`,
		s.ID, s.UserID, s.Email, string(s.Status), nullMillis(s.DueAt), s.OverdueStage, nullMillis(s.LastOverdueNotifiedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert subscription %s: %w", s.Email, err)
	}
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM subscriptions WHERE email = ?`, s.Email).Scan(&s.ID); err != nil {
		return fmt.Errorf("read subscription id: %w", err)
	}
	return nil
}

func (r *SQLiteRecorder) ListSubscriptions(ctx context.Context) ([]model.Subscription, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, COALESCE(user_id, ''), email, status, due_at,
		overdue_stage, last_overdue_notified_at FROM subscriptions ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("query subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []model.Subscription
	for rows.Next() {
		var s model.Subscription
		var status string
		var due, notified sql.NullInt64
		if err := rows.Scan(&s.ID, &s.UserID, &s.Email, &status, &due, &s.OverdueStage, &notified); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		s.Status = model.SubscriptionStatus(status)
		s.DueAt = timePtr(due)
		s.LastOverdueNotifiedAt = timePtr(notified)
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

func (r *SQLiteRecorder) UpdateSubscription(ctx context.Context, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `UPDATE subscriptions SET
		status = ?, due_at = ?, overdue_stage = ?, last_overdue_notified_at = ?
		WHERE id = ?`,
		string(s.Status), nullMillis(s.DueAt), s.OverdueStage, nullMillis(s.LastOverdueNotifiedAt), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteRecorder) RecordNotification(ctx context.Context, n *model.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	var meta any
	if n.Metadata != nil {
		b, err := json.Marshal(n.Metadata)
		if err != nil {
			return fmt.Errorf("encode notification metadata: %w", err)
		}
		meta = string(b)
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO notifications
		(id, role, type, title, body, metadata, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		n.ID, string(n.Role), n.Type, n.Title, n.Body, meta, millis(n.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// --- leases ---

func (r *SQLiteRecorder) AcquireLease(ctx context.Context, name, owner string, now time.Time, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.ExecContext(ctx, `INSERT INTO job_leases (name, owner, expires_at) VALUES (?,?,?)
		ON CONFLICT (name) DO UPDATE SET owner = excluded.owner, expires_at = excluded.expires_at
		WHERE job_leases.owner = excluded.owner OR job_leases.expires_at <= ?`,
		name, owner, millis(now.Add(ttl)), millis(now),
	)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	return n > 0, nil
}

func (r *SQLiteRecorder) ReleaseLease(ctx context.Context, name, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, `DELETE FROM job_leases WHERE name = ? AND owner = ?`, name, owner); err != nil {
		return fmt.Errorf("release lease %s: %w", name, err)
	}
	return nil
}

func (r *SQLiteRecorder) Close() error {
	r.logger.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
