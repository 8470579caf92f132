package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrTradeNotFound is returned by GetTrade for an unknown ID.
var ErrTradeNotFound = errors.New("trade not found")

// SQLite is a Journal backed by a SQLite database file.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, size, entry_price, exit_price, trigger_price, open_time, close_time, profit, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Side, t.Size, t.EntryPrice, t.ExitPrice, t.TriggerPrice,
		t.OpenTime.UTC(), t.CloseTime.UTC(), t.Profit, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, bankroll, daily_loss, available, trades)
		VALUES (?, ?, ?, ?, ?)`,
		e.Time.UTC(), e.Bankroll, e.DailyLoss, e.Available, e.Trades,
	)
	return err
}

const tradeColumns = `trade_id, symbol, side, size, entry_price, exit_price, trigger_price, open_time, close_time, profit, reason`

type scanner interface {
	Scan(dest ...any) error
}

func scanTrade(s scanner) (TradeRecord, error) {
	var rec TradeRecord
	err := s.Scan(
		&rec.TradeID,
		&rec.Symbol,
		&rec.Side,
		&rec.Size,
		&rec.EntryPrice,
		&rec.ExitPrice,
		&rec.TriggerPrice,
		&rec.OpenTime,
		&rec.CloseTime,
		&rec.Profit,
		&rec.Reason,
	)
	return rec, err
}

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(tradeID string) (TradeRecord, error) {
	rec, err := scanTrade(j.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE trade_id = ?`, tradeID))
	if errors.Is(err, sql.ErrNoRows) {
		return TradeRecord{}, fmt.Errorf("%w: %q", ErrTradeNotFound, tradeID)
	}
	return rec, err
}

// ListTrades returns trades opened within [from, to), oldest first. A zero
// bound is open.
func (j *SQLite) ListTrades(from, to time.Time) ([]TradeRecord, error) {
	from, to = bounds(from, to)
	rows, err := j.db.Query(`
		SELECT `+tradeColumns+`
		FROM trades
		WHERE open_time >= ? AND open_time < ?
		ORDER BY open_time ASC, trade_id ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns equity snapshots within [from, to), oldest first. A
// zero bound is open.
func (j *SQLite) ListEquity(from, to time.Time) ([]EquitySnapshot, error) {
	from, to = bounds(from, to)
	rows, err := j.db.Query(`
		SELECT time, bankroll, daily_loss, available, trades
		FROM equity
		WHERE time >= ? AND time < ?
		ORDER BY time ASC`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.Time, &e.Bankroll, &e.DailyLoss, &e.Available, &e.Trades); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func bounds(from, to time.Time) (time.Time, time.Time) {
	if from.IsZero() {
		from = time.Unix(0, 0)
	}
	if to.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return from, to
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
