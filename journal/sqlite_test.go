package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/futuresbot/engine"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleRecord(id string, open time.Time) TradeRecord {
	return TradeRecord{
		TradeID:      id,
		Symbol:       "BNBUSDT",
		Side:         "long",
		Size:         10.0 / 600.0,
		EntryPrice:   600,
		ExitPrice:    603,
		TriggerPrice: 603,
		OpenTime:     open,
		CloseTime:    open.Add(30 * time.Minute),
		Profit:       0.04799,
		Reason:       "take_profit",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
}

func TestSQLiteRecordAndGetTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	rec := sampleRecord("T1", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)
	assert.Equal(t, rec.TradeID, got.TradeID)
	assert.Equal(t, rec.Symbol, got.Symbol)
	assert.Equal(t, rec.Side, got.Side)
	assert.InDelta(t, rec.Size, got.Size, 1e-12)
	assert.InDelta(t, rec.EntryPrice, got.EntryPrice, 1e-9)
	assert.InDelta(t, rec.TriggerPrice, got.TriggerPrice, 1e-9)
	assert.True(t, got.OpenTime.Equal(rec.OpenTime))
	assert.True(t, got.CloseTime.Equal(rec.CloseTime))
	assert.InDelta(t, rec.Profit, got.Profit, 1e-9)
	assert.Equal(t, rec.Reason, got.Reason)

	_, err = j.GetTrade("nope")
	assert.ErrorIs(t, err, ErrTradeNotFound)

	// trade IDs are unique
	assert.Error(t, j.RecordTrade(rec))
}

func TestSQLiteListTrades(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordTrade(sampleRecord("C", day.Add(20*time.Hour))))
	require.NoError(t, j.RecordTrade(sampleRecord("A", day.Add(-time.Hour))))
	require.NoError(t, j.RecordTrade(sampleRecord("B", day)))
	require.NoError(t, j.RecordTrade(sampleRecord("D", day.AddDate(0, 0, 1))))

	got, err := j.ListTrades(day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].TradeID, "lower bound inclusive")
	assert.Equal(t, "C", got[1].TradeID)

	all, err := j.ListTrades(time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.Equal(t, "A", all[0].TradeID)

	none, err := j.ListTrades(day.AddDate(1, 0, 0), day.AddDate(2, 0, 0))
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	ts := time.Date(2024, 2, 3, 0, 0, 0, 0, time.UTC)
	snap := EquitySnapshot{Time: ts, Bankroll: 100, DailyLoss: 5.2, Available: 94.8, Trades: 3}
	require.NoError(t, j.RecordEquity(snap))

	got, err := j.ListEquity(ts.Add(-time.Hour), ts.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Time.Equal(ts))
	assert.InDelta(t, 5.2, got[0].DailyLoss, 1e-9)
	assert.Equal(t, 3, got[0].Trades)
}

func TestRecordRoundTripsEngineTrade(t *testing.T) {
	t.Parallel()

	tr := engine.Trade{
		ID:           "01J0000000000000000000000",
		Side:         engine.Short,
		EntryTime:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		ExitTime:     time.Date(2024, 1, 2, 4, 4, 5, 0, time.UTC),
		EntryPrice:   580,
		ExitPrice:    577.1,
		TriggerPrice: 577.1,
		Size:         10.0 / 580.0,
		Profit:       0.048,
		Reason:       engine.TakeProfit,
	}
	rec := FromTrade("BNBUSDT", tr)
	assert.Equal(t, "short", rec.Side)
	assert.Equal(t, "take_profit", rec.Reason)
	assert.Equal(t, tr, rec.Trade())
}
