package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/futuresbot/notify"
	"github.com/rustyeddy/futuresbot/runner"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"TELEGRAM_TOKEN", "TELEGRAM_CHAT_ID", "LOG_LEVEL", "LOG_FORMAT", "METRICS_ADDR", "FEED_DIR"} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "BNBUSDT", cfg.Market.Symbol)
	assert.Equal(t, 100.0, cfg.Account.Bankroll)
	assert.Equal(t, 0.05, cfg.Account.MaxDailyLoss)
	assert.Equal(t, 10.0, cfg.Strategy.Leverage)
	assert.Equal(t, 0.01, cfg.Strategy.RiskPerTrade)
	assert.Equal(t, 5.0, cfg.Strategy.StopLossUSD)
	assert.Equal(t, 0.005, cfg.Strategy.TakeProfit)
	assert.Equal(t, 0.0002, cfg.Strategy.MakerFee)
	assert.Equal(t, 1.5, cfg.Strategy.BBStdDev)
	assert.Equal(t, 0.001, cfg.Execution.Slippage)
	assert.Equal(t, 10*time.Second, cfg.TickInterval())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"zero bankroll", func(c *Config) { c.Account.Bankroll = 0 }, "account.bankroll must be positive"},
		{"loss cap above bankroll", func(c *Config) { c.Account.MaxDailyLoss = 1.5 }, "account.max_daily_loss"},
		{"leverage below one", func(c *Config) { c.Strategy.Leverage = 0.5 }, "strategy.leverage"},
		{"negative stop loss", func(c *Config) { c.Strategy.StopLossUSD = -5 }, "strategy.stop_loss_usd must be positive"},
		{"bb period one", func(c *Config) { c.Strategy.BBPeriod = 1 }, "strategy.bb_period"},
		{"bad tick", func(c *Config) { c.Loop.Tick = "soon" }, "loop.tick"},
		{"short history below warm-up", func(c *Config) { c.Loop.MinShort = 10 }, "loop.min_short must be at least 20"},
		{"atr warm-up raises minimum", func(c *Config) { c.Strategy.ATRPeriod = 30 }, "loop.min_short must be at least 31"},
		{"long window below lookback", func(c *Config) { c.Loop.LongWindow = 2 }, "strategy.trend_lookback"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "postgres" }, "journal.type"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "db_path required"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "trades_file and equity_file"},
		{"unknown overflow", func(c *Config) { c.Notify.Overflow = "spill" }, "notify.overflow"},
		{"token without chat", func(c *Config) { c.Notify.TelegramToken = "abc" }, "set together"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Account.Bankroll = 250
			cfg.Strategy.MakerFee = 0
			path := filepath.Join(tmpDir, "test"+tt.ext)

			require.NoError(t, cfg.SaveToFile(path))
			_, err := os.Stat(path)
			require.NoError(t, err)

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account:\n  bankroll: 500\nlog:\n  level: debug\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500.0, cfg.Account.Bankroll)
	assert.Equal(t, 0.05, cfg.Account.MaxDailyLoss)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "10s", cfg.Loop.Tick)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "6619397516")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("METRICS_ADDR", ":9100")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Notify.TelegramToken)
	assert.Equal(t, int64(6619397516), cfg.Notify.TelegramChatID)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)

	t.Setenv("TELEGRAM_CHAT_ID", "not-a-number")
	_, err = Load("")
	assert.ErrorContains(t, err, "TELEGRAM_CHAT_ID")
}

func TestLoadInvalidFile(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("account: [oops"), 0o644))
	_, err = Load(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestDerivedSettings(t *testing.T) {
	cfg := Default()

	e := cfg.Engine()
	assert.Equal(t, 20, e.MinShortBars())
	assert.Equal(t, cfg.Strategy.TakeProfit, e.TakeProfit)
	assert.Equal(t, 0.001, cfg.Executor().Slippage)
	assert.Equal(t, 5*time.Second, cfg.FeedPoll())

	q := cfg.Queue()
	assert.Equal(t, notify.DropOldest, q.Overflow)
	assert.Equal(t, 64, q.Capacity)
	assert.Equal(t, 2*time.Second, q.RetryDelay)

	r := cfg.Runner()
	assert.Equal(t, runner.DefaultConfig(), r)
}
