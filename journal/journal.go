// Package journal persists closed trades and risk snapshots, and keeps the
// human-readable performance log.
package journal

import (
	"time"

	"github.com/rustyeddy/futuresbot/engine"
)

// TradeRecord is the persisted form of a closed trade.
type TradeRecord struct {
	TradeID      string
	Symbol       string
	Side         string
	Size         float64
	EntryPrice   float64
	ExitPrice    float64
	TriggerPrice float64
	OpenTime     time.Time
	CloseTime    time.Time
	Profit       float64
	Reason       string
}

// EquitySnapshot is the risk state recorded at the end of a trading day.
// Time is the day it summarises.
type EquitySnapshot struct {
	Time      time.Time
	Bankroll  float64
	DailyLoss float64
	Available float64
	Trades    int
}

// Journal records trades and equity snapshots.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// FromTrade converts an engine trade for persistence.
func FromTrade(symbol string, t engine.Trade) TradeRecord {
	return TradeRecord{
		TradeID:      t.ID,
		Symbol:       symbol,
		Side:         t.Side.String(),
		Size:         t.Size,
		EntryPrice:   t.EntryPrice,
		ExitPrice:    t.ExitPrice,
		TriggerPrice: t.TriggerPrice,
		OpenTime:     t.EntryTime,
		CloseTime:    t.ExitTime,
		Profit:       t.Profit,
		Reason:       string(t.Reason),
	}
}

// Trade converts the record back to an engine trade.
func (r TradeRecord) Trade() engine.Trade {
	side := engine.Long
	if r.Side == engine.Short.String() {
		side = engine.Short
	}
	return engine.Trade{
		ID:           r.TradeID,
		Side:         side,
		EntryTime:    r.OpenTime,
		ExitTime:     r.CloseTime,
		EntryPrice:   r.EntryPrice,
		ExitPrice:    r.ExitPrice,
		TriggerPrice: r.TriggerPrice,
		Size:         r.Size,
		Profit:       r.Profit,
		Reason:       engine.ExitReason(r.Reason),
	}
}

// Discard is a Journal that records nothing.
type Discard struct{}

func (Discard) RecordTrade(TradeRecord) error     { return nil }
func (Discard) RecordEquity(EquitySnapshot) error { return nil }
func (Discard) Close() error                      { return nil }
