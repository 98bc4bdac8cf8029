// Package config loads Watchtower settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"Watchtower/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		BriefCron   string `yaml:"brief_cron"`
		OverdueCron string `yaml:"overdue_cron"`
		RunOnStart  bool   `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	App struct {
		Timezone      string  `yaml:"timezone"`
		PortfolioSize float64 `yaml:"portfolio_size" validate:"gt=0"`
		BaseCurrency  string  `yaml:"base_currency"`
	} `yaml:"app"`
	AI struct {
		GeminiAPIKey string `yaml:"gemini_api_key"`
		Model        string `yaml:"model"`
	} `yaml:"ai"`
	Market struct {
		RequestsPerMinute int    `yaml:"requests_per_minute" validate:"gte=0"`
		FxURL             string `yaml:"fx_url"`
		YahooURL          string `yaml:"yahoo_url"`
		CoinGeckoURL      string `yaml:"coingecko_url"`
	} `yaml:"market"`
	Proxy         string             `yaml:"proxy"`
	LogLevel      string             `yaml:"log_level"`
	Watchlist     []AssetSeed        `yaml:"watchlist" validate:"dive"`
	Subscriptions []SubscriptionSeed `yaml:"subscriptions" validate:"dive"`
}

// AssetSeed is a watchlist entry and its trading rule.
type AssetSeed struct {
	Symbol      string   `yaml:"symbol" validate:"required"`
	Name        string   `yaml:"name"`
	Reason      string   `yaml:"reason"`
	AssetType   string   `yaml:"asset_type"`
	Currency    string   `yaml:"currency"`
	Active      *bool    `yaml:"active"`
	Shares      *float64 `yaml:"shares" validate:"omitempty,gte=0"`
	EntryPrice  *float64 `yaml:"entry_price" validate:"omitempty,gte=0"`
	TargetEntry *float64 `yaml:"target_entry" validate:"omitempty,gte=0"`
	TargetExit  *float64 `yaml:"target_exit" validate:"omitempty,gte=0"`
}

// Asset converts the seed into a model.Asset. Assets are active unless
// marked otherwise.
func (s AssetSeed) Asset() model.Asset {
	active := s.Active == nil || *s.Active
	assetType := strings.ToUpper(s.AssetType)
	if assetType == "" {
		assetType = model.AssetTypeEquity
	}
	name := s.Name
	if name == "" {
		name = s.Symbol
	}
	return model.Asset{
		Symbol:      s.Symbol,
		Name:        name,
		Reason:      s.Reason,
		AssetType:   assetType,
		Currency:    strings.ToUpper(s.Currency),
		IsActive:    active,
		Shares:      s.Shares,
		EntryPrice:  s.EntryPrice,
		TargetEntry: s.TargetEntry,
		TargetExit:  s.TargetExit,
	}
}

// SubscriptionSeed is a subscriber with a due date (RFC 3339 or YYYY-MM-DD).
type SubscriptionSeed struct {
	UserID string `yaml:"user_id"`
	Email  string `yaml:"email" validate:"required"`
	Status string `yaml:"status"`
	DueAt  string `yaml:"due_at"`
}

// Subscription converts the seed into a model.Subscription.
func (s SubscriptionSeed) Subscription() (model.Subscription, error) {
	sub := model.Subscription{
		UserID: s.UserID,
		Email:  s.Email,
		Status: model.SubscriptionStatus(strings.ToUpper(s.Status)),
	}
	if sub.Status == "" {
		sub.Status = model.SubscriptionActive
	}
	switch sub.Status {
	case model.SubscriptionActive, model.SubscriptionOverdue, model.SubscriptionCancelled:
	default:
		return model.Subscription{}, fmt.Errorf("subscription %s: unknown status %q", s.Email, s.Status)
	}
	if s.DueAt != "" {
		due, err := parseDue(s.DueAt)
		if err != nil {
			return model.Subscription{}, fmt.Errorf("subscription %s: %w", s.Email, err)
		}
		sub.DueAt = &due
	}
	return sub, nil
}

func parseDue(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse due_at %q: %w", v, err)
	}
	return t, nil
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("APP_TIMEZONE"); v != "" {
		cfg.App.Timezone = v
	}
	if v := os.Getenv("PORTFOLIO_SIZE"); v != "" {
		var size float64
		if _, err := fmt.Sscanf(v, "%f", &size); err == nil {
			cfg.App.PortfolioSize = size
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("CRON_BRIEF"); v != "" {
		cfg.Schedule.BriefCron = v
	}
	if v := os.Getenv("CRON_OVERDUE"); v != "" {
		cfg.Schedule.OverdueCron = v
	}
	if v := os.Getenv("RUN_ON_START"); v == "true" || v == "1" {
		cfg.Schedule.RunOnStart = true
	}

	// Defaults
	if cfg.Schedule.RefreshCron == "" {
		cfg.Schedule.RefreshCron = "0 */15 7-22 * * 1-5"
	}
	if cfg.Schedule.BriefCron == "" {
		cfg.Schedule.BriefCron = "0 30 7 * * *"
	}
	if cfg.Schedule.OverdueCron == "" {
		cfg.Schedule.OverdueCron = "0 0 9 * * *"
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/watchtower.db"
	}
	if cfg.App.Timezone == "" {
		cfg.App.Timezone = "Europe/London"
	}
	if cfg.App.PortfolioSize == 0 {
		cfg.App.PortfolioSize = 5000
	}
	if cfg.App.BaseCurrency == "" {
		cfg.App.BaseCurrency = "GBP"
	}
	if cfg.Market.RequestsPerMinute == 0 {
		cfg.Market.RequestsPerMinute = 60
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}

// Validate checks that the configuration is usable. Field rules live in the
// validate tags; cross-field rules are checked here.
func (c *Config) Validate() error {
	if err := validateFields(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if !strings.EqualFold(c.App.BaseCurrency, "GBP") {
		return fmt.Errorf("app.base_currency %q is not supported, only GBP", c.App.BaseCurrency)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}

	seen := make(map[string]bool)
	for i, s := range c.Watchlist {
		key := strings.ToUpper(s.Symbol)
		if seen[key] {
			return fmt.Errorf("watchlist[%d]: duplicate symbol %s", i, s.Symbol)
		}
		seen[key] = true
		switch strings.ToUpper(s.AssetType) {
		case "", model.AssetTypeEquity, model.AssetTypeCrypto:
		default:
			return fmt.Errorf("watchlist[%d]: unknown asset_type %q", i, s.AssetType)
		}
	}
	for _, s := range c.Subscriptions {
		if _, err := s.Subscription(); err != nil {
			return err
		}
	}
	return nil
}

// validateFields runs the struct tag rules and reports the first failure by
// its YAML path, e.g. "watchlist[0].symbol is required".
func validateFields(c *Config) error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	err := validate.Struct(c)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	path := strings.TrimPrefix(fe.Namespace(), "Config.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "gt":
		return fmt.Errorf("%s must be greater than %s", path, fe.Param())
	case "gte":
		return fmt.Errorf("%s must be at least %s", path, fe.Param())
	default:
		return fmt.Errorf("%s fails %s validation", path, fe.Tag())
	}
}

// TelegramEnabled reports whether chat delivery is configured.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}

// Location loads the app time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("app.timezone %q: %w", c.App.Timezone, err)
	}
	return loc, nil
}
