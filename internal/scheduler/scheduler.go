// Package scheduler runs the Watchtower jobs on cron schedules and answers
// chat commands.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"Watchtower/internal/common"
	"Watchtower/internal/jobs"
	"Watchtower/internal/notifier"
	"Watchtower/internal/recorder"
)

// Default cron specs, with a leading seconds field.
const (
	DefaultRefreshCron = "0 */15 7-22 * * 1-5"
	DefaultBriefCron   = "0 30 7 * * *"
	DefaultOverdueCron = "0 0 9 * * *"
)

// sendRetries is how many times a scheduled report is retried.
const sendRetries = 3

type retrySender interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Refresh  *jobs.Refresher
	Brief    *jobs.BriefJob
	Overdue  *jobs.OverdueChecker
	Recorder recorder.Recorder
	Notifier notifier.Notifier
	Ctx      context.Context

	// mu keeps job runs from overlapping so each asset has one writer.
	mu     sync.Mutex
	logger *common.Logger
	now    func() time.Time
}

// NewScheduler creates a new Scheduler whose cron specs are read in loc.
func NewScheduler(ctx context.Context, refresh *jobs.Refresher, brief *jobs.BriefJob, overdue *jobs.OverdueChecker,
	rec recorder.Recorder, n notifier.Notifier, loc *time.Location, logger *common.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Refresh:  refresh,
		Brief:    brief,
		Overdue:  overdue,
		Recorder: rec,
		Notifier: n,
		Ctx:      ctx,
		logger:   logger.Component("scheduler"),
		now:      time.Now,
	}
}

// RegisterAll registers the refresh, brief and overdue tasks.
func (s *Scheduler) RegisterAll(refreshCron, briefCron, overdueCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, s.refreshTask); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	if _, err := s.Cron.AddFunc(briefCron, s.briefTask); err != nil {
		return fmt.Errorf("register brief task: %w", err)
	}
	if _, err := s.Cron.AddFunc(overdueCron, s.overdueTask); err != nil {
		return fmt.Errorf("register overdue task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("tasks", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.logger.Info().Msg("scheduler stopped")
}

// RunRefreshNow executes the refresh task immediately (for RUN_ON_START).
func (s *Scheduler) RunRefreshNow() {
	s.refreshTask()
}

func (s *Scheduler) refreshTask() {
	_, err := s.runRefresh(s.Ctx)
	if errors.Is(err, jobs.ErrBusy) {
		s.logger.Info().Msg("market refresh already running elsewhere, skipped")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("market refresh")
		s.trySend(fmt.Sprintf("❌ Market refresh failed: %v", err))
	}
}

func (s *Scheduler) briefTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.Brief.Run(s.Ctx, s.now()); err != nil {
		s.logger.Error().Err(err).Msg("daily brief")
		s.trySend(fmt.Sprintf("❌ Daily brief failed: %v", err))
	}
}

func (s *Scheduler) overdueTask() {
	_, err := s.runOverdue(s.Ctx)
	if errors.Is(err, jobs.ErrBusy) {
		s.logger.Info().Msg("overdue check already running elsewhere, skipped")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("overdue check")
	}
}

func (s *Scheduler) runRefresh(ctx context.Context) (*jobs.RefreshResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Refresh.Run(ctx)
}

func (s *Scheduler) runOverdue(ctx context.Context) (*jobs.OverdueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Overdue.Run(ctx, s.now())
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch normalizeCommand(command) {
	case "/signals":
		rows, err := jobs.ActiveSignals(ctx, s.Recorder)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatActiveSignals(rows)
	case "/brief":
		// the job posts the brief itself
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, err := s.Brief.Run(ctx, s.now()); err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return ""
	case "/refresh":
		res, err := s.runRefresh(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatRefresh(res.Processed, res.Updated, res.Skipped, res.EventsCreated)
	case "/overdue":
		res, err := s.runOverdue(ctx)
		if err != nil {
			return fmt.Sprintf("❌ %v", err)
		}
		return notifier.FormatOverdueSummary(res.Scanned, res.Flagged, res.Notifications)
	default:
		return notifier.FormatHelp()
	}
}

// normalizeCommand lower-cases the first word and drops a @botname suffix.
func normalizeCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	cmd := strings.ToLower(fields[0])
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}
	return cmd
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	var err error
	if rs, ok := s.Notifier.(retrySender); ok {
		err = rs.SendWithRetry(s.Ctx, text, sendRetries)
	} else {
		err = s.Notifier.Send(s.Ctx, text)
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("send notification")
	}
}
