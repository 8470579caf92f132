// Package runner drives the position engine from the candle feed on a fixed
// cadence, runs the daily report and reset, and fans decisions out to the
// notifier, journal, performance log and metrics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/engine"
	"github.com/rustyeddy/futuresbot/feed"
	"github.com/rustyeddy/futuresbot/journal"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/metrics"
	"github.com/rustyeddy/futuresbot/notify"
	"github.com/rustyeddy/futuresbot/risk"
	"github.com/rustyeddy/futuresbot/sim"
)

var (
	// ErrHalted is returned by Run when the daily loss limit stops the loop.
	ErrHalted = errors.New("trading halted")
	// ErrAlreadyRunning is returned by Run when another Run is active.
	ErrAlreadyRunning = errors.New("loop already running")
)

// Config controls the loop cadence and the bar windows handed to the engine.
type Config struct {
	Tick time.Duration

	ShortWindow int
	MidWindow   int
	LongWindow  int

	// Minimum raw history per timeframe before any step is attempted.
	MinShort int
	MinMid   int
	MinLong  int

	Symbol    string
	BaseAsset string
}

// DefaultConfig returns the reference cadence and windows.
func DefaultConfig() Config {
	return Config{
		Tick:        10 * time.Second,
		ShortWindow: 50,
		MidWindow:   20,
		LongWindow:  5,
		MinShort:    20,
		MinMid:      5,
		MinLong:     2,
		Symbol:      "BNBUSDT",
		BaseAsset:   "BNB",
	}
}

// Deps are the collaborators of a Loop. Feed, Engine and Risk are required;
// Risk must be the controller the Engine was built with.
type Deps struct {
	Feed     feed.Feed
	Engine   *engine.Engine
	Risk     *risk.Controller
	Notifier notify.Notifier
	Journal  journal.Journal
	PerfLog  *journal.PerfLog
	Metrics  *metrics.Recorder
	Logger   *zap.Logger
	Now      func() time.Time
}

// Loop is the single owner of the engine and risk state.
type Loop struct {
	cfg  Config
	deps Deps
	log  *zap.Logger

	sizes      [3]int
	lastReport time.Time
	lastPrice  float64
	lastBar    time.Time

	running atomic.Bool
	status  atomic.Pointer[Status]
}

// New creates a loop. The report date starts at the current day.
func New(cfg Config, deps Deps) *Loop {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Journal == nil {
		deps.Journal = journal.Discard{}
	}
	l := &Loop{
		cfg:        cfg,
		deps:       deps,
		log:        deps.Logger.With(zap.String("symbol", cfg.Symbol)),
		lastReport: dayOf(deps.Now()),
	}
	l.publish(deps.Now())
	return l
}

// Run ticks immediately and then every cfg.Tick until ctx is cancelled or
// the loop halts. A tick in progress always completes its step; only a
// notification still waiting for queue room is abandoned on cancellation.
// Run returns nil on cancellation and ErrHalted when the daily loss limit
// stops trading.
func (l *Loop) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer func() {
		l.running.Store(false)
		l.publish(l.deps.Now())
	}()

	l.log.Info("strategy loop started",
		zap.Float64("bankroll", l.deps.Risk.Bankroll()),
		zap.Float64("leverage", l.deps.Engine.Config().Leverage),
		zap.Duration("tick", l.cfg.Tick))

	ticker := time.NewTicker(l.cfg.Tick)
	defer ticker.Stop()

	for {
		if err := l.Tick(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			l.log.Info("strategy loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one iteration: fetch, maybe step, daily pass, publish status.
// It returns ErrHalted when the loop must stop. Cancelling ctx does not
// interrupt the step; it only bounds notification enqueueing.
func (l *Loop) Tick(ctx context.Context) error {
	now := l.deps.Now()
	halted := false

	bars, err := l.fetch(context.WithoutCancel(ctx))
	switch {
	case err != nil:
		l.log.Warn("feed unavailable", zap.Error(err))
		l.deps.Metrics.Skip("feed_unavailable")
	default:
		sizes := [3]int{len(bars[0]), len(bars[1]), len(bars[2])}
		if l.grew(sizes) {
			halted = l.evaluate(ctx, bars)
		}
		l.sizes = sizes
	}

	l.dailyPass(ctx, now)

	// a rollover in the same tick lifts the gate
	if halted {
		if err := l.deps.Risk.Check(); err != nil {
			l.deps.Metrics.Halted(true)
			l.notify(ctx, haltedMessage(l.lastBar, l.deps.Risk.Limit()))
			l.log.Warn("stopping", zap.Error(err))
			l.publish(now)
			return fmt.Errorf("%w: %w", ErrHalted, err)
		}
	}
	l.deps.Metrics.Halted(false)
	l.publish(now)
	return nil
}

func (l *Loop) fetch(ctx context.Context) ([3][]market.Bar, error) {
	var out [3][]market.Bar
	for i, tf := range market.Timeframes {
		bars, err := l.deps.Feed.Bars(ctx, tf)
		if err != nil {
			return out, fmt.Errorf("%s: %w", tf, err)
		}
		out[i] = bars
	}
	return out, nil
}

func (l *Loop) grew(sizes [3]int) bool {
	for i := range sizes {
		if sizes[i] > l.sizes[i] {
			return true
		}
	}
	return false
}

// evaluate slices the windows and runs one engine step. It reports whether
// the engine is flat with trading denied.
func (l *Loop) evaluate(ctx context.Context, bars [3][]market.Bar) bool {
	short, mid, long := bars[0], bars[1], bars[2]
	if len(short) < l.cfg.MinShort || len(mid) < l.cfg.MinMid || len(long) < l.cfg.MinLong {
		l.log.Info("insufficient data",
			zap.Int("short", len(short)), zap.Int("mid", len(mid)), zap.Int("long", len(long)))
		l.deps.Metrics.Skip("insufficient_history")
		return false
	}

	cur := short[len(short)-1].Time
	in := engine.Snapshot{
		Short: market.Tail(short, l.cfg.ShortWindow),
		Mid:   market.Tail(market.UpTo(mid, cur), l.cfg.MidWindow),
		Long:  market.Tail(market.UpTo(long, cur), l.cfg.LongWindow),
	}

	d, err := l.deps.Engine.Step(in)
	if d.Dropped > 0 {
		l.log.Warn("dropped duplicate or out-of-order bars", zap.Int("dropped", d.Dropped))
		l.deps.Metrics.DroppedBars(d.Dropped)
	}
	switch {
	case errors.Is(err, engine.ErrInsufficientHistory):
		l.log.Info("skipping step", zap.Error(err))
		l.deps.Metrics.Skip("insufficient_history")
		return false
	case errors.Is(err, market.ErrMalformedBar):
		l.log.Warn("skipping step", zap.Error(err))
		l.deps.Metrics.Skip("malformed_bar")
		return false
	case err != nil:
		l.log.Error("engine step failed", zap.Error(err))
		l.deps.Metrics.Skip("error")
		return false
	}
	if d.Duplicate {
		l.log.Debug("bars already evaluated", zap.Time("bar", d.At))
		return false
	}

	l.lastPrice, l.lastBar = d.Price, d.At
	l.deps.Metrics.Tick(d.Price)
	l.log.Info("tick",
		zap.Time("bar", d.At),
		zap.Float64("price", d.Price),
		zap.Float64("upper", d.Indicators.Band.Upper),
		zap.Float64("middle", d.Indicators.Band.Middle),
		zap.Float64("lower", d.Indicators.Band.Lower),
		zap.Float64("atr", d.Indicators.ATR),
		zap.Bool("bullish", d.Indicators.Trend.Bullish),
		zap.Bool("bearish", d.Indicators.Trend.Bearish))

	if d.Opened != nil {
		l.onOpened(ctx, *d.Opened)
	}
	if d.Closed != nil {
		l.onClosed(ctx, *d.Closed)
	}
	l.deps.Metrics.Risk(l.deps.Risk.Loss(), l.deps.Risk.Available())
	return d.Halted
}

func (l *Loop) onOpened(ctx context.Context, p engine.Position) {
	target := sim.TakeProfitPrice(p.Side == engine.Long, p.EntryPrice, l.deps.Engine.Config().TakeProfit)
	l.log.Info("position opened",
		zap.Stringer("side", p.Side),
		zap.Float64("entry", p.EntryPrice),
		zap.Float64("size", p.Size),
		zap.Float64("stop", p.StopLoss),
		zap.Float64("target", target),
		zap.Float64("planned_risk", risk.PlannedRisk(p.Size, p.EntryPrice, p.StopLoss)),
		zap.Float64("rr", risk.RR(p.EntryPrice, p.StopLoss, target)))
	l.deps.Metrics.Opened(p.Side.String())
	l.notify(ctx, openedMessage(p, l.cfg.BaseAsset))
	l.appendPerf(p.EntryTime, nil)
}

func (l *Loop) onClosed(ctx context.Context, t engine.Trade) {
	l.log.Info("position closed",
		zap.String("trade_id", t.ID),
		zap.Stringer("side", t.Side),
		zap.Float64("exit", t.ExitPrice),
		zap.Float64("profit", t.Profit),
		zap.String("reason", string(t.Reason)))
	stats := l.deps.Engine.Stats()
	l.deps.Metrics.Closed(string(t.Reason), stats.TotalProfit)
	l.notify(ctx, closedMessage(t))
	if err := l.deps.Journal.RecordTrade(journal.FromTrade(l.cfg.Symbol, t)); err != nil {
		l.log.Error("journal trade", zap.String("trade_id", t.ID), zap.Error(err))
	}
	l.appendPerf(t.ExitTime, &t)
}

func (l *Loop) appendPerf(at time.Time, last *engine.Trade) {
	if l.deps.PerfLog == nil {
		return
	}
	if last == nil {
		if trades := l.deps.Engine.Trades(); len(trades) > 0 {
			last = &trades[len(trades)-1]
		}
	}
	if err := l.deps.PerfLog.Append(at, l.deps.Engine.Stats(), l.deps.Risk.Loss(), last); err != nil {
		l.log.Error("performance log", zap.Error(err))
	}
}

// dailyPass reports on the finished day and resets the risk accumulator
// once the wall-clock date moves past the last report date.
func (l *Loop) dailyPass(ctx context.Context, now time.Time) {
	today := dayOf(now)
	if !today.After(l.lastReport) {
		return
	}
	finished := l.lastReport
	rc := l.deps.Risk

	trades := l.deps.Engine.TradesOn(finished)
	if len(trades) > 0 {
		l.notify(ctx, dailyReportMessage(finished, engine.Summarize(trades), rc.Available()))
	}
	snap := journal.EquitySnapshot{
		Time:      finished,
		Bankroll:  rc.Bankroll(),
		DailyLoss: rc.Loss(),
		Available: rc.Available(),
		Trades:    len(trades),
	}
	if err := l.deps.Journal.RecordEquity(snap); err != nil {
		l.log.Error("journal equity", zap.Error(err))
	}
	l.log.Info("daily reset",
		zap.Time("day", finished),
		zap.Int("trades", len(trades)),
		zap.Float64("daily_loss", rc.Loss()))

	rc.Reset()
	l.deps.Metrics.Risk(rc.Loss(), rc.Available())
	l.lastReport = today
}

func (l *Loop) notify(ctx context.Context, text string) {
	if l.deps.Notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, l.notifyTimeout())
	defer cancel()
	if err := l.deps.Notifier.Notify(ctx, text); err != nil {
		l.log.Warn("notification not queued", zap.Error(err))
	}
}

// notifyTimeout bounds how long a tick waits for queue room.
func (l *Loop) notifyTimeout() time.Duration {
	if l.cfg.Tick > 0 {
		return l.cfg.Tick
	}
	return DefaultConfig().Tick
}

// dayOf is the calendar date of t's wall clock. Bar timestamps carry no
// zone, so dates compare on the wall-clock fields alone.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
