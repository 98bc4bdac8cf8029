package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Watchtower/internal/model"
	"Watchtower/internal/recorder"
)

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestOverdueNotice(t *testing.T) {
	title, body := OverdueNotice("ana@example.com", 4)
	assert.Equal(t, "Subscription overdue: ana@example.com", title)
	assert.Equal(t, "ana@example.com is overdue by 4 day(s). Stage D+4.", body)
}

func TestOverdueChecker_Run(t *testing.T) {
	ctx := context.Background()
	rec := recorder.NewMemoryRecorder()
	now := *at("2026-02-19T12:00:00Z")

	seed := []*model.Subscription{
		{UserID: "u-a", Email: "a@example.com", Status: model.SubscriptionActive, DueAt: at("2026-02-18T00:00:00Z")},
		{UserID: "u-b", Email: "b@example.com", Status: model.SubscriptionActive, DueAt: at("2026-02-19T00:00:00Z")},
		{UserID: "u-c", Email: "c@example.com", Status: model.SubscriptionCancelled, DueAt: at("2025-01-01T00:00:00Z")},
		{UserID: "u-d", Email: "d@example.com", Status: model.SubscriptionActive},
		{UserID: "u-e", Email: "e@example.com", Status: model.SubscriptionOverdue, DueAt: at("2026-03-01T00:00:00Z")},
		{UserID: "u-f", Email: "f@example.com", Status: model.SubscriptionOverdue, DueAt: at("2026-01-01T00:00:00Z")},
	}
	for _, s := range seed {
		require.NoError(t, rec.UpsertSubscription(ctx, s))
	}
	// e and f carry escalation state from earlier runs
	seed[4].OverdueStage = 2
	seed[5].OverdueStage = 3
	seed[5].LastOverdueNotifiedAt = at("2026-02-16T12:00:00Z")
	require.NoError(t, rec.UpdateSubscription(ctx, seed[4]))
	require.NoError(t, rec.UpdateSubscription(ctx, seed[5]))

	n := &fakeNotifier{}
	checker := NewOverdueChecker(rec, n, nil)

	res, err := checker.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, &OverdueResult{Scanned: 4, Flagged: 2, Notifications: 1}, res)

	notes := rec.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, model.RoleOwner, notes[0].Role)
	assert.Equal(t, model.RoleAdmin, notes[1].Role)
	for _, note := range notes {
		assert.Equal(t, NotificationTypeOverdue, note.Type)
		assert.Equal(t, "Subscription overdue: a@example.com", note.Title)
		assert.Equal(t, "a@example.com is overdue by 1 day(s). Stage D+1.", note.Body)
		assert.Equal(t, 1, note.Metadata["stage"])
		assert.Equal(t, "u-a", note.Metadata["userId"])
	}
	require.Len(t, n.messages(), 1)

	subs, err := rec.ListSubscriptions(ctx)
	require.NoError(t, err)
	byEmail := make(map[string]model.Subscription)
	for _, s := range subs {
		byEmail[s.Email] = s
	}
	a := byEmail["a@example.com"]
	assert.Equal(t, model.SubscriptionOverdue, a.Status)
	assert.Equal(t, 1, a.OverdueStage)
	require.NotNil(t, a.LastOverdueNotifiedAt)
	assert.True(t, a.LastOverdueNotifiedAt.Equal(now))

	e := byEmail["e@example.com"]
	assert.Equal(t, model.SubscriptionActive, e.Status)
	assert.Equal(t, 0, e.OverdueStage)

	assert.Equal(t, model.SubscriptionActive, byEmail["b@example.com"].Status)
	assert.Equal(t, model.SubscriptionCancelled, byEmail["c@example.com"].Status)

	// same day again: nothing new to say
	res, err = checker.Run(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Notifications)
	assert.Len(t, rec.Notifications(), 2)
}

func TestOverdueChecker_WeeklyReminder(t *testing.T) {
	ctx := context.Background()
	rec := recorder.NewMemoryRecorder()
	now := *at("2026-02-19T12:00:00Z")

	s := &model.Subscription{Email: "f@example.com", Status: model.SubscriptionOverdue, DueAt: at("2026-01-01T00:00:00Z")}
	require.NoError(t, rec.UpsertSubscription(ctx, s))
	s.OverdueStage = 3
	s.LastOverdueNotifiedAt = at("2026-02-12T12:00:00Z")
	require.NoError(t, rec.UpdateSubscription(ctx, s))

	res, err := NewOverdueChecker(rec, nil, nil).Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications)
	notes := rec.Notifications()
	require.Len(t, notes, 2)
	assert.Equal(t, "f@example.com is overdue by 49 day(s). Stage D+49.", notes[0].Body)
}

// adminRejectingRecorder fails every ADMIN notification write.
type adminRejectingRecorder struct {
	*recorder.MemoryRecorder
}

func (r adminRejectingRecorder) RecordNotification(ctx context.Context, n *model.Notification) error {
	if n.Role == model.RoleAdmin {
		return errors.New("notifications table locked")
	}
	return r.MemoryRecorder.RecordNotification(ctx, n)
}

func TestOverdueChecker_NotificationFailureKeepsStage(t *testing.T) {
	ctx := context.Background()
	rec := adminRejectingRecorder{recorder.NewMemoryRecorder()}
	now := *at("2026-02-19T12:00:00Z")

	s := &model.Subscription{UserID: "u-a", Email: "a@example.com", Status: model.SubscriptionActive, DueAt: at("2026-02-16T00:00:00Z")}
	require.NoError(t, rec.UpsertSubscription(ctx, s))

	checker := NewOverdueChecker(rec, nil, nil)
	for i := 0; i < 3; i++ {
		res, err := checker.Run(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 0, res.Notifications)
		assert.Equal(t, 1, res.Flagged)
	}

	subs, err := rec.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, model.SubscriptionOverdue, subs[0].Status)
	assert.Equal(t, 2, subs[0].OverdueStage)
	assert.Nil(t, subs[0].LastOverdueNotifiedAt)

	notes := rec.Notifications()
	require.Len(t, notes, 1)
	assert.Equal(t, model.RoleOwner, notes[0].Role)
}

func TestOverdueChecker_BusyWhileAnotherRunnerHoldsLease(t *testing.T) {
	ctx := context.Background()
	rec := recorder.NewMemoryRecorder()
	now := *at("2026-02-19T12:00:00Z")
	require.NoError(t, rec.UpsertSubscription(ctx, &model.Subscription{Email: "a@example.com", DueAt: at("2026-02-16T00:00:00Z")}))

	ok, err := rec.AcquireLease(ctx, LeaseOverdue, "other-process", now, DefaultLeaseTTL)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = NewOverdueChecker(rec, nil, nil).Run(ctx, now)
	require.ErrorIs(t, err, ErrBusy)
	assert.Empty(t, rec.Notifications())

	// an expired lease no longer blocks
	res, err := NewOverdueChecker(rec, nil, nil).Run(ctx, now.Add(DefaultLeaseTTL))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Notifications)
}
