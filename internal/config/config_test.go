package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Watchtower/internal/model"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "HTTPS_PROXY", "SQLITE_PATH", "APP_TIMEZONE",
		"PORTFOLIO_SIZE", "GEMINI_API_KEY", "AI_MODEL", "LOG_LEVEL", "CRON_REFRESH", "CRON_BRIEF",
		"CRON_OVERDUE", "RUN_ON_START",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "0 */15 7-22 * * 1-5", cfg.Schedule.RefreshCron)
	assert.Equal(t, "0 30 7 * * *", cfg.Schedule.BriefCron)
	assert.Equal(t, "0 0 9 * * *", cfg.Schedule.OverdueCron)
	assert.Equal(t, "Europe/London", cfg.App.Timezone)
	assert.Equal(t, 5000.0, cfg.App.PortfolioSize)
	assert.Equal(t, "GBP", cfg.App.BaseCurrency)
	assert.Equal(t, "data/watchtower.db", cfg.Database.SQLitePath)
	assert.Equal(t, 60, cfg.Market.RequestsPerMinute)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.TelegramEnabled())
	require.NoError(t, cfg.Validate())
}

func TestLoad_FileAndEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
telegram:
  bot_token: file-token
  chat_id: "100"
app:
  timezone: America/New_York
  portfolio_size: 10000
watchlist:
  - symbol: VOD.L
    name: Vodafone
    currency: gbx
    shares: 100
    entry_price: 200
    target_entry: 70
    target_exit: 90
  - symbol: BTC
    asset_type: crypto
    currency: USD
    active: false
    target_entry: 40000
subscriptions:
  - user_id: u1
    email: ana@example.com
    due_at: "2026-02-18"
`)
	t.Setenv("TELEGRAM_BOT_TOKEN", "env-token")
	t.Setenv("PORTFOLIO_SIZE", "7500.5")
	t.Setenv("CRON_BRIEF", "0 0 8 * * *")
	t.Setenv("RUN_ON_START", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "env-token", cfg.Telegram.BotToken)
	assert.Equal(t, "100", cfg.Telegram.ChatID)
	assert.True(t, cfg.TelegramEnabled())
	assert.Equal(t, 7500.5, cfg.App.PortfolioSize)
	assert.Equal(t, "0 0 8 * * *", cfg.Schedule.BriefCron)
	assert.True(t, cfg.Schedule.RunOnStart)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "America/New_York", loc.String())

	require.Len(t, cfg.Watchlist, 2)
	vod := cfg.Watchlist[0].Asset()
	assert.Equal(t, "GBX", vod.Currency)
	assert.Equal(t, model.AssetTypeEquity, vod.AssetType)
	assert.True(t, vod.IsActive)
	assert.InDelta(t, 70, *vod.TargetEntry, 1e-9)

	btc := cfg.Watchlist[1].Asset()
	assert.Equal(t, model.AssetTypeCrypto, btc.AssetType)
	assert.False(t, btc.IsActive)
	assert.Equal(t, "BTC", btc.Name)
	assert.Nil(t, btc.Shares)

	sub, err := cfg.Subscriptions[0].Subscription()
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, sub.Status)
	require.NotNil(t, sub.DueAt)
	assert.True(t, sub.DueAt.Equal(time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)))
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "telegram: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad timezone", func(c *Config) { c.App.Timezone = "Mars/Olympus" }, "app.timezone"},
		{"negative portfolio", func(c *Config) { c.App.PortfolioSize = -1 }, "portfolio_size"},
		{"other base currency", func(c *Config) { c.App.BaseCurrency = "USD" }, "base_currency"},
		{"token without chat", func(c *Config) { c.Telegram.BotToken = "x" }, "must be set together"},
		{"missing symbol", func(c *Config) { c.Watchlist = []AssetSeed{{Name: "x"}} }, "watchlist[0].symbol is required"},
		{"duplicate symbol", func(c *Config) { c.Watchlist = []AssetSeed{{Symbol: "VOD.L"}, {Symbol: "vod.l"}} }, "duplicate symbol"},
		{"negative shares", func(c *Config) { c.Watchlist = []AssetSeed{{Symbol: "X", Shares: model.Float(-1)}} }, "watchlist[0].shares must be at least 0"},
		{"negative rate limit", func(c *Config) { c.Market.RequestsPerMinute = -5 }, "market.requests_per_minute"},
		{"bad asset type", func(c *Config) { c.Watchlist = []AssetSeed{{Symbol: "X", AssetType: "BOND"}} }, "asset_type"},
		{"missing email", func(c *Config) { c.Subscriptions = []SubscriptionSeed{{DueAt: "2026-01-01"}} }, "email is required"},
		{"bad due date", func(c *Config) { c.Subscriptions = []SubscriptionSeed{{Email: "a@b", DueAt: "soon"}} }, "due_at"},
		{"bad status", func(c *Config) { c.Subscriptions = []SubscriptionSeed{{Email: "a@b", Status: "late"}} }, "unknown status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
