// Package engine is the single-position state machine. One Step is run per
// new confirmed bar; it reads indicators, consults the risk controller and
// opens or closes at most one position.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/id"
	"github.com/rustyeddy/futuresbot/indicators"
	"github.com/rustyeddy/futuresbot/market"
	"github.com/rustyeddy/futuresbot/risk"
	"github.com/rustyeddy/futuresbot/sim"
)

// ErrInsufficientHistory means the short timeframe cannot yet warm up the
// indicators. The caller skips the step and retries on the next bar.
var ErrInsufficientHistory = errors.New("insufficient history")

// Config holds the strategy parameters.
type Config struct {
	Leverage      float64
	RiskPerTrade  float64 // fraction of bankroll committed as margin per trade
	StopLossUSD   float64 // quote-currency loss when the stop is hit
	TakeProfit    float64 // fixed take-profit fraction of entry
	MakerFee      float64
	ATRPeriod     int
	BBPeriod      int
	BBStdDev      float64
	TrendLookback int
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		Leverage:      10,
		RiskPerTrade:  0.01,
		StopLossUSD:   5,
		TakeProfit:    0.005,
		MakerFee:      0.0002,
		ATRPeriod:     14,
		BBPeriod:      20,
		BBStdDev:      1.5,
		TrendLookback: indicators.DefaultTrendLookback,
	}
}

// MinShortBars is the number of short-timeframe bars the indicators need.
func (c Config) MinShortBars() int {
	return max(c.BBPeriod, c.ATRPeriod+1)
}

// Snapshot is the bar windows for one decision step. The current price and
// time are the close and timestamp of the last Short bar.
type Snapshot struct {
	Short []market.Bar
	Mid   []market.Bar
	Long  []market.Bar
}

// Indicators are the values a step decided on.
type Indicators struct {
	ATR   float64
	Band  indicators.Band
	Trend indicators.TrendSignal
}

// Decision is the outcome of one Step. At most one of Opened and Closed is set.
type Decision struct {
	At         time.Time
	Price      float64
	Indicators Indicators
	Opened     *Position
	Closed     *Trade
	Halted     bool // flat and the risk controller denies new entries
	Duplicate  bool // the same bars were already evaluated; nothing was done
	Dropped    int  // duplicate or out-of-order input bars discarded
}

type stepKey struct {
	short, mid, long time.Time
}

// Engine owns the position, the trade log and the risk controller it was
// given. It is not safe for concurrent use.
type Engine struct {
	cfg  Config
	risk *risk.Controller
	exec sim.Executor

	pos    *Position
	trades []Trade

	lastKey stepKey
	stepped bool
}

// New creates a flat engine.
func New(cfg Config, rc *risk.Controller, exec sim.Executor) *Engine {
	return &Engine{cfg: cfg, risk: rc, exec: exec}
}

// Config returns the strategy parameters.
func (e *Engine) Config() Config { return e.cfg }

// Position returns the open position, if any.
func (e *Engine) Position() (Position, bool) {
	if e.pos == nil {
		return Position{}, false
	}
	return *e.pos, true
}

// State reports Flat, Open or Halted.
func (e *Engine) State() State {
	switch {
	case e.pos != nil:
		return Open
	case !e.risk.CanTrade():
		return Halted
	}
	return Flat
}

// Trades returns a copy of the trade log.
func (e *Engine) Trades() []Trade {
	out := make([]Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// TradesOn returns the trades entered on the calendar day of day.
func (e *Engine) TradesOn(day time.Time) []Trade {
	var out []Trade
	for _, t := range e.trades {
		if sameDay(t.EntryTime, day) {
			out = append(out, t)
		}
	}
	return out
}

// Stats summarises every trade of the session.
func (e *Engine) Stats() Stats { return Summarize(e.trades) }

// Step runs one decision step: risk gate, then entry evaluation when flat or
// exit evaluation when open. A step with the same last bars as the previous
// one is a no-op.
func (e *Engine) Step(in Snapshot) (Decision, error) {
	short, shortStats, err := market.Sanitize(in.Short)
	if err != nil {
		return Decision{}, fmt.Errorf("short timeframe: %w", err)
	}
	mid, midStats, err := market.Sanitize(in.Mid)
	if err != nil {
		return Decision{}, fmt.Errorf("mid timeframe: %w", err)
	}
	long, longStats, err := market.Sanitize(in.Long)
	if err != nil {
		return Decision{}, fmt.Errorf("long timeframe: %w", err)
	}
	dropped := shortStats.Dropped() + midStats.Dropped() + longStats.Dropped()
	if len(short) < e.cfg.MinShortBars() {
		return Decision{}, fmt.Errorf("%w: %d short bars, need %d", ErrInsufficientHistory, len(short), e.cfg.MinShortBars())
	}

	cur := short[len(short)-1]
	d := Decision{At: cur.Time, Price: cur.Close, Dropped: dropped}

	key := stepKey{short: cur.Time, mid: lastTime(mid), long: lastTime(long)}
	if e.stepped && key == e.lastKey {
		d.Duplicate = true
		return d, nil
	}

	ind, err := e.indicators(short, long)
	if err != nil {
		return Decision{}, err
	}
	d.Indicators = ind
	e.lastKey, e.stepped = key, true

	if e.pos != nil {
		d.Closed = e.evaluateExit(cur)
		return d, nil
	}
	if !e.risk.CanTrade() {
		d.Halted = true
		return d, nil
	}
	d.Opened, err = e.evaluateEntry(cur, ind)
	return d, err
}

func (e *Engine) indicators(short, long []market.Bar) (Indicators, error) {
	atr, err := indicators.LastATR(short, e.cfg.ATRPeriod)
	if err != nil {
		return Indicators{}, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	bands, err := indicators.Bollinger(short, e.cfg.BBPeriod, e.cfg.BBStdDev)
	if err != nil {
		return Indicators{}, fmt.Errorf("%w: %v", ErrInsufficientHistory, err)
	}
	return Indicators{
		ATR:   atr,
		Band:  bands.Last(),
		Trend: indicators.Trend(long, e.cfg.TrendLookback),
	}, nil
}

func (e *Engine) evaluateEntry(cur market.Bar, ind Indicators) (*Position, error) {
	var side Side
	switch {
	case ind.Trend.Bullish && cur.Close > ind.Band.Upper:
		side = Long
	case ind.Trend.Bearish && cur.Close < ind.Band.Lower:
		side = Short
	default:
		return nil, nil
	}

	size, err := risk.PositionSize(e.risk.Bankroll(), e.cfg.RiskPerTrade, e.cfg.Leverage, cur.Close)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", side, err)
	}
	stop, err := risk.StopPrice(side == Long, cur.Close, size, e.cfg.StopLossUSD)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", side, err)
	}
	fill := e.exec.Resolve(side.entryOrder(), cur.Close, size, cur.Close)

	e.pos = &Position{
		Side:       side,
		EntryPrice: fill.Price,
		Size:       size,
		StopLoss:   stop,
		EntryTime:  cur.Time,
	}
	opened := *e.pos
	return &opened, nil
}

// evaluateExit checks take-profit before stop-loss; when both hold in the
// same step the take-profit exit wins.
func (e *Engine) evaluateExit(cur market.Bar) *Trade {
	p := *e.pos
	isLong := p.Side == Long
	target := sim.TakeProfitPrice(isLong, p.EntryPrice, e.cfg.TakeProfit)

	switch {
	case sim.HitTakeProfit(isLong, cur.Close, target):
		return e.close(p, cur, target, TakeProfit)
	case sim.HitStopLoss(isLong, cur.Close, p.StopLoss):
		return e.close(p, cur, p.StopLoss, StopLoss)
	}
	return nil
}

func (e *Engine) close(p Position, cur market.Bar, trigger float64, reason ExitReason) *Trade {
	fill := e.exec.Resolve(p.Side.exitOrder(), trigger, p.Size, cur.Close)
	profit := sim.RealizedProfit(p.Side == Long, p.EntryPrice, fill.Price, p.Size, e.cfg.MakerFee)

	t := Trade{
		ID:           id.NewAt(cur.Time),
		Side:         p.Side,
		EntryTime:    p.EntryTime,
		ExitTime:     cur.Time,
		EntryPrice:   p.EntryPrice,
		ExitPrice:    fill.Price,
		TriggerPrice: trigger,
		Size:         p.Size,
		Profit:       profit,
		Reason:       reason,
	}
	e.trades = append(e.trades, t)
	e.pos = nil
	e.risk.RecordTradeResult(profit)
	return &t
}

func lastTime(bars []market.Bar) time.Time {
	if b, ok := market.Last(bars); ok {
		return b.Time
	}
	return time.Time{}
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
