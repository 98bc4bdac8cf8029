package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Watchtower/internal/recorder"
)

// ErrBusy is returned when another runner holds the job's lease, for example
// a `watchtower refresh` started while `serve` is refreshing.
var ErrBusy = errors.New("job already running")

// Lease names shared by every process using the same database.
const (
	LeaseRefresh = "market-refresh"
	LeaseOverdue = "overdue-check"
)

// DefaultLeaseTTL bounds how long a crashed runner can block the next one.
const DefaultLeaseTTL = 30 * time.Minute

// withLease runs fn while holding the named lease in rec.
func withLease(ctx context.Context, rec recorder.Recorder, name, owner string, now time.Time, fn func() error) error {
	ok, err := rec.AcquireLease(ctx, name, owner, now, DefaultLeaseTTL)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s: %w", name, ErrBusy)
	}
	defer func() {
		_ = rec.ReleaseLease(context.WithoutCancel(ctx), name, owner)
	}()
	return fn()
}
