package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"Watchtower/internal/brief"
	"Watchtower/internal/collector"
	"Watchtower/internal/common"
	"Watchtower/internal/config"
	"Watchtower/internal/jobs"
	"Watchtower/internal/notifier"
	"Watchtower/internal/recorder"
)

// app holds the wired components shared by every subcommand.
type app struct {
	cfg      *config.Config
	loc      *time.Location
	logger   *common.Logger
	rec      recorder.Recorder
	telegram *notifier.TelegramNotifier
	notifier notifier.Notifier
	quotes   *collector.Collector
	refresh  *jobs.Refresher
	brief    *jobs.BriefJob
	overdue  *jobs.OverdueChecker
}

func newApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:    cfg,
		loc:    loc,
		logger: common.NewLogger(cfg.LogLevel),
	}
	log := a.logger.Component("main")

	// Init recorder
	a.rec = a.openRecorder()
	if err := a.seed(ctx); err != nil {
		a.rec.Close()
		return nil, err
	}

	// Init notifier
	if cfg.TelegramEnabled() {
		a.telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, a.logger)
		a.notifier = a.telegram
	} else {
		log.Warn().Msg("telegram not configured, messages go to the log")
		a.notifier = notifier.NewLogNotifier(a.logger)
	}

	// Init market data
	a.quotes = collector.NewCollector(
		collector.NewYahooFetcher(cfg.Market.YahooURL, cfg.Proxy),
		collector.NewCoinGeckoFetcher(cfg.Market.CoinGeckoURL, cfg.Proxy),
		collector.NewFxFetcher(cfg.Market.FxURL, cfg.Proxy),
		cfg.Market.RequestsPerMinute,
		a.logger,
	)

	// Init brief generator
	var summarizer brief.Summarizer
	if cfg.AI.GeminiAPIKey != "" {
		g, err := brief.NewGeminiSummarizer(ctx, cfg.AI.GeminiAPIKey,
			brief.WithModel(cfg.AI.Model), brief.WithLogger(a.logger))
		if err != nil {
			log.Warn().Err(err).Msg("init gemini failed, briefs use the fallback")
		} else {
			summarizer = g
			log.Info().Str("model", g.Model()).Msg("ai brief enabled")
		}
	}
	gen := brief.NewGenerator(summarizer, a.logger)

	a.refresh = jobs.NewRefresher(a.rec, a.quotes, a.notifier, cfg.App.PortfolioSize, a.logger)
	a.brief = jobs.NewBriefJob(a.rec, gen, a.notifier, loc, a.logger)
	a.overdue = jobs.NewOverdueChecker(a.rec, a.notifier, a.logger)
	return a, nil
}

func (a *app) openRecorder() recorder.Recorder {
	log := a.logger.Component("main")
	path := a.cfg.Database.SQLitePath
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("create data dir failed")
		}
	}
	sr, err := recorder.NewSQLiteRecorder(path, a.logger)
	if err != nil {
		log.Warn().Err(err).Msg("init sqlite recorder failed, using memory")
		return recorder.NewMemoryRecorder()
	}
	return sr
}

// seed upserts the configured watchlist and subscriptions.
func (a *app) seed(ctx context.Context) error {
	for _, s := range a.cfg.Watchlist {
		asset := s.Asset()
		if err := a.rec.UpsertAsset(ctx, &asset); err != nil {
			return fmt.Errorf("seed asset %s: %w", s.Symbol, err)
		}
	}
	for _, s := range a.cfg.Subscriptions {
		sub, err := s.Subscription()
		if err != nil {
			return err
		}
		if err := a.rec.UpsertSubscription(ctx, &sub); err != nil {
			return fmt.Errorf("seed subscription %s: %w", s.Email, err)
		}
	}
	if n := len(a.cfg.Watchlist) + len(a.cfg.Subscriptions); n > 0 {
		a.logger.Component("main").Info().
			Int("assets", len(a.cfg.Watchlist)).
			Int("subscriptions", len(a.cfg.Subscriptions)).
			Msg("seeded from config")
	}
	return nil
}

func (a *app) Close() {
	if err := a.rec.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close recorder")
	}
}

// shorten cuts s to n runes.
func shorten(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) > n {
		return string(r[:n]) + "..."
	}
	return string(r)
}
