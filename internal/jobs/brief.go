package jobs

import (
	"context"
	"fmt"
	"time"

	"Watchtower/internal/brief"
	"Watchtower/internal/common"
	"Watchtower/internal/model"
	"Watchtower/internal/notifier"
	"Watchtower/internal/recorder"
	"Watchtower/internal/summary"
)

// BriefJob builds, stores and announces the daily brief.
type BriefJob struct {
	rec       recorder.Recorder
	generator *brief.Generator
	notifier  notifier.Notifier
	loc       *time.Location
	logger    *common.Logger
	now       func() time.Time
}

// NewBriefJob creates a BriefJob for days in loc. n may be nil.
func NewBriefJob(rec recorder.Recorder, gen *brief.Generator, n notifier.Notifier, loc *time.Location, logger *common.Logger) *BriefJob {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &BriefJob{
		rec:       rec,
		generator: gen,
		notifier:  n,
		loc:       loc,
		logger:    logger.Component("brief"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Summary aggregates the calendar day containing day, in the job's zone.
func (j *BriefJob) Summary(ctx context.Context, day time.Time) (model.DailySignalSummary, error) {
	start, end := summary.DayWindow(day, j.loc)

	views, err := LoadAssetViews(ctx, j.rec)
	if err != nil {
		return model.DailySignalSummary{}, err
	}
	events, err := j.rec.SignalEventsBetween(ctx, start, end)
	if err != nil {
		return model.DailySignalSummary{}, fmt.Errorf("load signal events: %w", err)
	}
	return summary.Summarize(start, views, events), nil
}

// Run generates the brief for the day containing day and upserts it.
func (j *BriefJob) Run(ctx context.Context, day time.Time) (*model.DailyBrief, error) {
	s, err := j.Summary(ctx, day)
	if err != nil {
		return nil, err
	}
	payload := j.generator.Generate(ctx, s)

	start, _ := summary.DayWindow(day, j.loc)
	b := &model.DailyBrief{
		BriefDate:   start,
		Timezone:    j.loc.String(),
		Payload:     payload,
		GeneratedAt: j.now(),
	}
	if err := j.rec.SaveBrief(ctx, b); err != nil {
		return nil, fmt.Errorf("save brief: %w", err)
	}

	j.logger.Info().
		Str("date", s.Date).
		Str("model", payload.Model).
		Bool("fallback", payload.IsFallback).
		Int("insights", len(payload.Insights)).
		Msg("daily brief generated")

	if j.notifier != nil {
		if err := j.notifier.Send(ctx, notifier.FormatBrief(s.Date, payload)); err != nil {
			j.logger.Warn().Err(err).Msg("send daily brief")
		}
	}
	return b, nil
}
