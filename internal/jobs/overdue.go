package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"Watchtower/internal/common"
	"Watchtower/internal/model"
	"Watchtower/internal/notifier"
	"Watchtower/internal/overdue"
	"Watchtower/internal/recorder"
)

// NotificationTypeOverdue tags overdue notifications.
const NotificationTypeOverdue = "subscription_overdue"

// OverdueResult counts what one overdue check did.
type OverdueResult struct {
	Scanned       int
	Flagged       int
	Notifications int
}

// OverdueChecker escalates overdue subscriptions and notifies owners and
// admins.
type OverdueChecker struct {
	rec      recorder.Recorder
	notifier notifier.Notifier
	owner    string
	logger   *common.Logger
}

// NewOverdueChecker creates an OverdueChecker. n may be nil.
func NewOverdueChecker(rec recorder.Recorder, n notifier.Notifier, logger *common.Logger) *OverdueChecker {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &OverdueChecker{rec: rec, notifier: n, owner: uuid.NewString(), logger: logger.Component("overdue")}
}

// OverdueNotice returns the notification title and body for a subscriber
// who is days past due.
func OverdueNotice(email string, days int) (title, body string) {
	title = fmt.Sprintf("Subscription overdue: %s", email)
	body = fmt.Sprintf("%s is overdue by %d day(s). Stage D+%d.", email, days, days)
	return title, body
}

// Run checks every active or overdue subscription with a due date at now.
// It returns ErrBusy while another process holds the overdue lease.
func (c *OverdueChecker) Run(ctx context.Context, now time.Time) (*OverdueResult, error) {
	var result *OverdueResult
	err := withLease(ctx, c.rec, LeaseOverdue, c.owner, now, func() error {
		var err error
		result, err = c.run(ctx, now)
		return err
	})
	return result, err
}

func (c *OverdueChecker) run(ctx context.Context, now time.Time) (*OverdueResult, error) {
	subs, err := c.rec.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	result := &OverdueResult{}
	for _, sub := range subs {
		if sub.DueAt == nil {
			continue
		}
		if sub.Status != model.SubscriptionActive && sub.Status != model.SubscriptionOverdue {
			continue
		}
		result.Scanned++

		d := overdue.Decide(sub, now)
		if d.Stage > 0 {
			result.Flagged++
		}
		if !d.Changed && !d.Notify {
			continue
		}

		// status and stage are saved before any notification is written
		sub.Status = d.Status
		sub.OverdueStage = d.Stage
		if d.Changed {
			if err := c.rec.UpdateSubscription(ctx, &sub); err != nil {
				c.logger.Error().Err(err).Str("email", sub.Email).Msg("update subscription")
				continue
			}
		}
		if !d.Notify {
			continue
		}
		if err := c.notify(ctx, sub, d, now); err != nil {
			c.logger.Error().Err(err).Str("email", sub.Email).Msg("record overdue notification")
			continue
		}
		result.Notifications++
		at := now
		sub.LastOverdueNotifiedAt = &at
		if err := c.rec.UpdateSubscription(ctx, &sub); err != nil {
			c.logger.Error().Err(err).Str("email", sub.Email).Msg("record overdue notified time")
		}
	}

	c.logger.Info().
		Int("scanned", result.Scanned).
		Int("flagged", result.Flagged).
		Int("notifications", result.Notifications).
		Msg("overdue check complete")
	return result, nil
}

func (c *OverdueChecker) notify(ctx context.Context, sub model.Subscription, d overdue.Decision, now time.Time) error {
	title, body := OverdueNotice(sub.Email, d.Days)
	for _, role := range []model.Role{model.RoleOwner, model.RoleAdmin} {
		n := &model.Notification{
			Role:  role,
			Type:  NotificationTypeOverdue,
			Title: title,
			Body:  body,
			Metadata: map[string]any{
				"userId": sub.UserID,
				"stage":  d.Stage,
				"dueAt":  sub.DueAt.UTC().Format(time.RFC3339),
			},
			CreatedAt: now,
		}
		if err := c.rec.RecordNotification(ctx, n); err != nil {
			return err
		}
	}

	if c.notifier != nil {
		if err := c.notifier.Send(ctx, notifier.FormatOverdueNotice(title, body)); err != nil {
			c.logger.Warn().Err(err).Str("email", sub.Email).Msg("send overdue notice")
		}
	}
	return nil
}
