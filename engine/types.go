package engine

import (
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/sim"
)

// Side is the direction of a position.
type Side int

const (
	Long Side = iota
	Short
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	}
	return fmt.Sprintf("Side(%d)", int(s))
}

// Label is the operator-facing name of the side.
func (s Side) Label() string {
	if s == Long {
		return "Buy"
	}
	return "Sell Short"
}

func (s Side) entryOrder() sim.OrderSide {
	if s == Long {
		return sim.Buy
	}
	return sim.Sell
}

func (s Side) exitOrder() sim.OrderSide {
	if s == Long {
		return sim.Sell
	}
	return sim.Buy
}

// ExitReason records which rule closed a position.
type ExitReason string

const (
	TakeProfit ExitReason = "take_profit"
	StopLoss   ExitReason = "stop_loss"
)

// Label is the operator-facing name of the reason.
func (r ExitReason) Label() string {
	switch r {
	case TakeProfit:
		return "Fixed TP"
	case StopLoss:
		return "Stop Loss"
	}
	return string(r)
}

// State is the position state machine state.
type State int

const (
	Flat State = iota
	Open
	Halted
)

func (s State) String() string {
	switch s {
	case Flat:
		return "flat"
	case Open:
		return "open"
	case Halted:
		return "halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Position is the single open position. It is never mutated; closing it
// produces a Trade.
type Position struct {
	Side       Side
	EntryPrice float64 // simulated fill
	Size       float64 // base-asset units
	StopLoss   float64
	EntryTime  time.Time
}

// Trade is an immutable record of a closed position.
type Trade struct {
	ID           string
	Side         Side
	EntryTime    time.Time
	ExitTime     time.Time
	EntryPrice   float64
	ExitPrice    float64 // simulated fill
	TriggerPrice float64 // the take-profit or stop level that fired
	Size         float64
	Profit       float64 // quote currency, fee-inclusive
	Reason       ExitReason
}

// Stats aggregates closed trades.
type Stats struct {
	Count       int
	Wins        int
	TotalProfit float64
}

// WinRate is the fraction of profitable trades, 0 with no trades.
func (s Stats) WinRate() float64 {
	if s.Count == 0 {
		return 0
	}
	return float64(s.Wins) / float64(s.Count)
}

// Summarize computes Stats over trades.
func Summarize(trades []Trade) Stats {
	var s Stats
	for _, t := range trades {
		s.Count++
		s.TotalProfit += t.Profit
		if t.Profit > 0 {
			s.Wins++
		}
	}
	return s
}
