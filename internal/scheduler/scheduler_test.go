package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Watchtower/internal/brief"
	"Watchtower/internal/collector"
	"Watchtower/internal/jobs"
	"Watchtower/internal/model"
	"Watchtower/internal/recorder"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (c *captureNotifier) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}

func (c *captureNotifier) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func newTestScheduler(t *testing.T) (*Scheduler, *recorder.MemoryRecorder, *captureNotifier) {
	t.Helper()
	ctx := context.Background()
	rec := recorder.NewMemoryRecorder()
	require.NoError(t, rec.UpsertAsset(ctx, &model.Asset{
		Symbol: "VOD.L", Name: "Vodafone", AssetType: model.AssetTypeEquity, Currency: "GBX", IsActive: true,
		TargetEntry: model.Float(70),
	}))
	due := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, rec.UpsertSubscription(ctx, &model.Subscription{Email: "ana@example.com", DueAt: &due}))

	mock := &collector.MockFetcher{Rates: model.FxRates{USD: 1.27, EUR: 1.17}}
	mock.SetQuote("VOD.L", &model.Quote{CurrentPrice: model.Float(72), DailyLow: model.Float(69), DailyHigh: model.Float(73), Source: "mock"})
	col := collector.NewCollector(mock, nil, mock, 6000, nil)

	n := &captureNotifier{}
	refresh := jobs.NewRefresher(rec, col, n, 5000, nil)
	briefJob := jobs.NewBriefJob(rec, brief.NewGenerator(nil, nil), n, time.UTC, nil)
	overdue := jobs.NewOverdueChecker(rec, n, nil)

	s := NewScheduler(ctx, refresh, briefJob, overdue, rec, n, time.UTC, nil)
	s.now = func() time.Time { return time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC) }
	return s, rec, n
}

func TestRegisterAll(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterAll(DefaultRefreshCron, DefaultBriefCron, DefaultOverdueCron))
	assert.Len(t, s.Cron.Entries(), 3)
}

func TestRegisterAll_InvalidSpec(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	err := s.RegisterAll("not a cron", DefaultBriefCron, DefaultOverdueCron)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register refresh task")

	s, _, _ = newTestScheduler(t)
	// five fields are rejected once seconds are enabled
	err = s.RegisterAll(DefaultRefreshCron, "30 7 * * *", DefaultOverdueCron)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register brief task")
}

func TestStartStop(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	require.NoError(t, s.RegisterAll(DefaultRefreshCron, DefaultBriefCron, DefaultOverdueCron))
	s.Start()
	s.Stop()
}

func TestHandleCommand(t *testing.T) {
	ctx := context.Background()
	s, rec, n := newTestScheduler(t)

	assert.Equal(t, "✅ No active signals.", s.HandleCommand(ctx, "/signals"))

	reply := s.HandleCommand(ctx, "/refresh@WatchtowerBot")
	assert.Contains(t, reply, "processed 1 | updated 1 | skipped 0 | events 1")

	reply = s.HandleCommand(ctx, " /SIGNALS ")
	assert.Contains(t, reply, "<b>VOD.L</b> BUY")

	assert.Empty(t, s.HandleCommand(ctx, "/brief"))
	latest, err := rec.LatestBrief(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"VOD.L"}, latest.Payload.Buy)

	reply = s.HandleCommand(ctx, "/overdue")
	assert.Contains(t, reply, "scanned 1 | flagged 1 | notified 1")

	assert.Contains(t, s.HandleCommand(ctx, "hello"), "Watchtower commands")
	assert.Contains(t, s.HandleCommand(ctx, ""), "Watchtower commands")

	// signal events, the brief and the overdue notice were all posted
	msgs := n.messages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0], "ENTER_BUY")
	assert.Contains(t, msgs[1], "Daily brief")
	assert.Contains(t, msgs[2], "Subscription overdue: ana@example.com")
}

func TestRefreshSkippedWhileLeaseHeldElsewhere(t *testing.T) {
	ctx := context.Background()
	s, rec, n := newTestScheduler(t)

	ok, err := rec.AcquireLease(ctx, jobs.LeaseRefresh, "cli-run", time.Now().UTC(), time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	// the cron task stays quiet, the chat command says why
	s.refreshTask()
	assert.Empty(t, n.messages())
	assert.Contains(t, s.HandleCommand(ctx, "/refresh"), "job already running")

	require.NoError(t, rec.ReleaseLease(ctx, jobs.LeaseRefresh, "cli-run"))
	assert.Contains(t, s.HandleCommand(ctx, "/refresh"), "processed 1")
}

func TestNormalizeCommand(t *testing.T) {
	assert.Equal(t, "/brief", normalizeCommand("/Brief@bot extra"))
	assert.Equal(t, "", normalizeCommand("   "))
	assert.Equal(t, "@x", normalizeCommand("@x"))
}
