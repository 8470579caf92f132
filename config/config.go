package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/futuresbot/engine"
	"github.com/rustyeddy/futuresbot/notify"
	"github.com/rustyeddy/futuresbot/runner"
	"github.com/rustyeddy/futuresbot/sim"
)

// Config represents the complete bot configuration
type Config struct {
	Market    MarketConfig    `json:"market" yaml:"market"`
	Account   AccountConfig   `json:"account" yaml:"account"`
	Strategy  StrategyConfig  `json:"strategy" yaml:"strategy"`
	Execution ExecutionConfig `json:"execution" yaml:"execution"`
	Loop      LoopConfig      `json:"loop" yaml:"loop"`
	Feed      FeedConfig      `json:"feed" yaml:"feed"`
	Journal   JournalConfig   `json:"journal" yaml:"journal"`
	Notify    NotifyConfig    `json:"notify" yaml:"notify"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
}

// MarketConfig names the traded contract.
type MarketConfig struct {
	Symbol    string `json:"symbol" yaml:"symbol"`
	BaseAsset string `json:"base_asset" yaml:"base_asset"`
}

// AccountConfig contains the bankroll and the daily loss cap.
type AccountConfig struct {
	Bankroll     float64 `json:"bankroll" yaml:"bankroll"`
	MaxDailyLoss float64 `json:"max_daily_loss" yaml:"max_daily_loss"` // fraction of bankroll
}

// StrategyConfig contains the entry, exit and indicator parameters
type StrategyConfig struct {
	Leverage      float64 `json:"leverage" yaml:"leverage"`
	RiskPerTrade  float64 `json:"risk_per_trade" yaml:"risk_per_trade"`
	StopLossUSD   float64 `json:"stop_loss_usd" yaml:"stop_loss_usd"`
	TakeProfit    float64 `json:"take_profit" yaml:"take_profit"`
	MakerFee      float64 `json:"maker_fee" yaml:"maker_fee"`
	ATRPeriod     int     `json:"atr_period" yaml:"atr_period"`
	BBPeriod      int     `json:"bb_period" yaml:"bb_period"`
	BBStdDev      float64 `json:"bb_stddev" yaml:"bb_stddev"`
	TrendLookback int     `json:"trend_lookback" yaml:"trend_lookback"`
}

// ExecutionConfig contains simulated fill parameters
type ExecutionConfig struct {
	Slippage float64 `json:"slippage" yaml:"slippage"`
}

// LoopConfig controls the strategy loop cadence and bar windows
type LoopConfig struct {
	Tick        string `json:"tick" yaml:"tick"` // e.g. "10s"
	ShortWindow int    `json:"short_window" yaml:"short_window"`
	MidWindow   int    `json:"mid_window" yaml:"mid_window"`
	LongWindow  int    `json:"long_window" yaml:"long_window"`
	MinShort    int    `json:"min_short" yaml:"min_short"`
	MinMid      int    `json:"min_mid" yaml:"min_mid"`
	MinLong     int    `json:"min_long" yaml:"min_long"`
}

// FeedConfig locates the streamer's CSV files
type FeedConfig struct {
	Dir    string `json:"dir" yaml:"dir"`
	Prefix string `json:"prefix" yaml:"prefix"`
	Poll   string `json:"poll" yaml:"poll"` // wait-for-files poll interval
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite" or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	PerfLog    string `json:"perf_log" yaml:"perf_log"`
}

// NotifyConfig controls the notification queue and its sinks
type NotifyConfig struct {
	Console        bool    `json:"console" yaml:"console"`
	TelegramToken  string  `json:"telegram_token,omitempty" yaml:"telegram_token,omitempty"`
	TelegramChatID int64   `json:"telegram_chat_id,omitempty" yaml:"telegram_chat_id,omitempty"`
	QueueSize      int     `json:"queue_size" yaml:"queue_size"`
	Overflow       string  `json:"overflow" yaml:"overflow"` // drop_oldest | block | reject
	PerSecond      float64 `json:"per_second" yaml:"per_second"`
	Attempts       int     `json:"attempts" yaml:"attempts"`
	RetryDelay     string  `json:"retry_delay" yaml:"retry_delay"`
}

// LogConfig controls the format and level of logging
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug | info | warn | error
	Format string `json:"format" yaml:"format"` // text | json
}

// MetricsConfig controls the Prometheus endpoint; empty Addr disables it
type MetricsConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// Load reads .env if present, then the config file at path (YAML, falling
// back to JSON) over Default, then environment overrides. An empty path
// loads Default plus the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		// Try YAML first, fall back to JSON
		if err := yaml.Unmarshal(data, cfg); err != nil {
			cfg = Default()
			if jerr := json.Unmarshal(data, cfg); jerr != nil {
				return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides replaces values with environment variables when present.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TELEGRAM_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID: %w", err)
		}
		cfg.Notify.TelegramChatID = id
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("FEED_DIR"); v != "" {
		cfg.Feed.Dir = v
	}
	return nil
}

// setDefaults fills string settings left empty by the file.
func setDefaults(cfg *Config) {
	d := Default()
	if cfg.Market.Symbol == "" {
		cfg.Market.Symbol = d.Market.Symbol
	}
	if cfg.Market.BaseAsset == "" {
		cfg.Market.BaseAsset = d.Market.BaseAsset
	}
	if cfg.Loop.Tick == "" {
		cfg.Loop.Tick = d.Loop.Tick
	}
	if cfg.Feed.Prefix == "" {
		cfg.Feed.Prefix = d.Feed.Prefix
	}
	if cfg.Feed.Poll == "" {
		cfg.Feed.Poll = d.Feed.Poll
	}
	if cfg.Journal.Type == "" {
		cfg.Journal.Type = "none"
	}
	if cfg.Notify.RetryDelay == "" {
		cfg.Notify.RetryDelay = d.Notify.RetryDelay
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Market.Symbol != "", "market.symbol is required")
	check(c.Account.Bankroll > 0, "account.bankroll must be positive")
	check(c.Account.MaxDailyLoss > 0 && c.Account.MaxDailyLoss <= 1, "account.max_daily_loss must be in (0, 1]")

	s := c.Strategy
	check(s.Leverage >= 1, "strategy.leverage must be at least 1")
	check(s.RiskPerTrade > 0 && s.RiskPerTrade <= 1, "strategy.risk_per_trade must be in (0, 1]")
	check(s.StopLossUSD > 0, "strategy.stop_loss_usd must be positive")
	check(s.TakeProfit > 0 && s.TakeProfit < 1, "strategy.take_profit must be in (0, 1)")
	check(s.MakerFee >= 0 && s.MakerFee < 1, "strategy.maker_fee must be in [0, 1)")
	check(s.ATRPeriod >= 1, "strategy.atr_period must be at least 1")
	check(s.BBPeriod >= 2, "strategy.bb_period must be at least 2")
	check(s.BBStdDev > 0, "strategy.bb_stddev must be positive")
	check(s.TrendLookback >= 2, "strategy.trend_lookback must be at least 2")

	check(c.Execution.Slippage >= 0 && c.Execution.Slippage < 1, "execution.slippage must be in [0, 1)")

	l := c.Loop
	if d, err := time.ParseDuration(l.Tick); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("loop.tick %q must be a positive duration", l.Tick))
	}
	need := c.Engine().MinShortBars()
	check(l.MinShort >= need, "loop.min_short must be at least %d for the indicator periods", need)
	check(l.ShortWindow >= l.MinShort, "loop.short_window must be at least loop.min_short")
	check(l.MinMid >= 1 && l.MidWindow >= l.MinMid, "loop.mid_window must be at least loop.min_mid (>= 1)")
	check(l.MinLong >= 1 && l.LongWindow >= l.MinLong, "loop.long_window must be at least loop.min_long (>= 1)")
	check(l.LongWindow >= s.TrendLookback, "loop.long_window must cover strategy.trend_lookback")

	if _, err := time.ParseDuration(c.Feed.Poll); err != nil {
		errs = append(errs, fmt.Errorf("feed.poll: %w", err))
	}

	switch c.Journal.Type {
	case "none":
	case "csv":
		check(c.Journal.TradesFile != "" && c.Journal.EquityFile != "", "journal trades_file and equity_file required for CSV type")
	case "sqlite":
		check(c.Journal.DBPath != "", "journal db_path required for SQLite type")
	default:
		errs = append(errs, fmt.Errorf("journal.type must be 'csv', 'sqlite' or 'none'"))
	}

	n := c.Notify
	check(n.QueueSize > 0, "notify.queue_size must be positive")
	check(n.Attempts > 0, "notify.attempts must be positive")
	if _, err := notify.ParseOverflow(n.Overflow); err != nil {
		errs = append(errs, fmt.Errorf("notify.overflow: %w", err))
	}
	if _, err := time.ParseDuration(n.RetryDelay); err != nil {
		errs = append(errs, fmt.Errorf("notify.retry_delay: %w", err))
	}
	check((n.TelegramToken == "") == (n.TelegramChatID == 0), "notify telegram_token and telegram_chat_id must be set together")

	return errors.Join(errs...)
}

// Engine returns the strategy parameters for the position engine.
func (c *Config) Engine() engine.Config {
	s := c.Strategy
	return engine.Config{
		Leverage:      s.Leverage,
		RiskPerTrade:  s.RiskPerTrade,
		StopLossUSD:   s.StopLossUSD,
		TakeProfit:    s.TakeProfit,
		MakerFee:      s.MakerFee,
		ATRPeriod:     s.ATRPeriod,
		BBPeriod:      s.BBPeriod,
		BBStdDev:      s.BBStdDev,
		TrendLookback: s.TrendLookback,
	}
}

// Executor returns the simulated fill model.
func (c *Config) Executor() sim.Executor {
	return sim.Executor{Slippage: c.Execution.Slippage}
}

// Runner returns the loop cadence, windows and market names.
func (c *Config) Runner() runner.Config {
	return runner.Config{
		Tick:        c.TickInterval(),
		ShortWindow: c.Loop.ShortWindow,
		MidWindow:   c.Loop.MidWindow,
		LongWindow:  c.Loop.LongWindow,
		MinShort:    c.Loop.MinShort,
		MinMid:      c.Loop.MinMid,
		MinLong:     c.Loop.MinLong,
		Symbol:      c.Market.Symbol,
		BaseAsset:   c.Market.BaseAsset,
	}
}

// TickInterval is the parsed loop.tick. Call after Validate.
func (c *Config) TickInterval() time.Duration {
	d, _ := time.ParseDuration(c.Loop.Tick)
	return d
}

// FeedPoll is the parsed feed.poll. Call after Validate.
func (c *Config) FeedPoll() time.Duration {
	d, _ := time.ParseDuration(c.Feed.Poll)
	return d
}

// Queue returns the notification queue settings. Call after Validate.
func (c *Config) Queue() notify.QueueConfig {
	overflow, _ := notify.ParseOverflow(c.Notify.Overflow)
	delay, _ := time.ParseDuration(c.Notify.RetryDelay)
	return notify.QueueConfig{
		Capacity:   c.Notify.QueueSize,
		Overflow:   overflow,
		PerSecond:  c.Notify.PerSecond,
		Burst:      notify.DefaultQueueConfig().Burst,
		Attempts:   c.Notify.Attempts,
		RetryDelay: delay,
	}
}

// Default returns the reference configuration: a 100 USDT bankroll on
// BNB/USDT at 10x with a 5% daily loss cap.
func Default() *Config {
	e := engine.DefaultConfig()
	q := notify.DefaultQueueConfig()
	return &Config{
		Market: MarketConfig{
			Symbol:    "BNBUSDT",
			BaseAsset: "BNB",
		},
		Account: AccountConfig{
			Bankroll:     100,
			MaxDailyLoss: 0.05,
		},
		Strategy: StrategyConfig{
			Leverage:      e.Leverage,
			RiskPerTrade:  e.RiskPerTrade,
			StopLossUSD:   e.StopLossUSD,
			TakeProfit:    e.TakeProfit,
			MakerFee:      e.MakerFee,
			ATRPeriod:     e.ATRPeriod,
			BBPeriod:      e.BBPeriod,
			BBStdDev:      e.BBStdDev,
			TrendLookback: e.TrendLookback,
		},
		Execution: ExecutionConfig{
			Slippage: sim.DefaultSlippage,
		},
		Loop: LoopConfig{
			Tick:        "10s",
			ShortWindow: 50,
			MidWindow:   20,
			LongWindow:  5,
			MinShort:    20,
			MinMid:      5,
			MinLong:     2,
		},
		Feed: FeedConfig{
			Dir:    ".",
			Prefix: "bnb_usdt",
			Poll:   "5s",
		},
		Journal: JournalConfig{
			Type:    "sqlite",
			DBPath:  "./trades.db",
			PerfLog: "./bot_performance.txt",
		},
		Notify: NotifyConfig{
			Console:    true,
			QueueSize:  q.Capacity,
			Overflow:   q.Overflow.String(),
			PerSecond:  q.PerSecond,
			Attempts:   q.Attempts,
			RetryDelay: q.RetryDelay.String(),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
