package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/futuresbot/engine"
)

func TestPerfLogAppendOnly(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bot_performance.txt")
	require.NoError(t, os.WriteFile(path, []byte("previous session\n"), 0o644))
	p := NewPerfLog(path, "BNB")
	assert.Equal(t, path, p.Path())

	at := time.Date(2025, 3, 1, 9, 24, 0, 0, time.UTC)
	require.NoError(t, p.Append(at, engine.Stats{}, 0, nil))

	tr := engine.Trade{
		EntryTime:    at,
		ExitTime:     at.Add(5 * time.Minute),
		EntryPrice:   600,
		ExitPrice:    603,
		TriggerPrice: 603,
		Size:         10.0 / 600.0,
		Profit:       0.04799,
		Reason:       engine.TakeProfit,
	}
	stats := engine.Summarize([]engine.Trade{tr})
	require.NoError(t, p.Append(tr.ExitTime, stats, -0.04799, &tr))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 4)

	assert.Equal(t, "previous session", lines[0])
	assert.Equal(t, "[2025-03-01 09:24:00] Total Profit: 0.00 USDT | Win Rate: 0.00% | Trades: 0 | Daily Loss: 0.00", lines[1])
	assert.Equal(t, "[2025-03-01 09:29:00] Total Profit: 0.05 USDT | Win Rate: 100.00% | Trades: 1 | Daily Loss: -0.05", lines[2])
	assert.Equal(t, "Last Trade - Entry: 2025-03-01 09:24:00 @ 600 | Exit: 2025-03-01 09:29:00 @ 603 | Size: 0.0167 BNB | Profit: 0.05 USDT | Type: Fixed TP", lines[3])
}
