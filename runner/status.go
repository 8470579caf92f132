package runner

import (
	"time"

	"github.com/rustyeddy/futuresbot/engine"
	"github.com/rustyeddy/futuresbot/sim"
)

// Status is an immutable snapshot published after every tick. Readers on
// other goroutines never see partially updated state.
type Status struct {
	Running      bool
	State        engine.State
	Bankroll     float64
	DailyLoss    float64
	Available    float64 // bankroll minus daily loss
	OpenPosition bool
	Position     engine.Position // zero unless OpenPosition
	TradesToday  int
	TotalTrades  int
	LastPrice    float64
	Unrealized   float64 // open position marked at LastPrice, before fees
	LastBar      time.Time
	At           time.Time
}

// Status returns the latest snapshot.
func (l *Loop) Status() Status {
	if s := l.status.Load(); s != nil {
		return *s
	}
	return Status{}
}

// Running reports whether Run is active.
func (l *Loop) Running() bool { return l.running.Load() }

func (l *Loop) publish(now time.Time) {
	rc := l.deps.Risk
	pos, open := l.deps.Engine.Position()
	prev := l.Status()
	s := &Status{
		Running:      l.running.Load(),
		State:        l.deps.Engine.State(),
		Bankroll:     rc.Bankroll(),
		DailyLoss:    rc.Loss(),
		Available:    rc.Available(),
		OpenPosition: open,
		Position:     pos,
		TradesToday:  len(l.deps.Engine.TradesOn(dayOf(now))),
		TotalTrades:  len(l.deps.Engine.Trades()),
		LastPrice:    prev.LastPrice,
		LastBar:      prev.LastBar,
		At:           now,
	}
	if l.lastPrice > 0 {
		s.LastPrice = l.lastPrice
		s.LastBar = l.lastBar
	}
	if open && s.LastPrice > 0 {
		s.Unrealized = sim.UnrealizedPL(pos.Side == engine.Long, pos.EntryPrice, s.LastPrice, pos.Size)
	}
	l.status.Store(s)
}
