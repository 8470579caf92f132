package journal

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/futuresbot/engine"
)

// TimeLayout formats timestamps in the performance log and messages.
const TimeLayout = "2006-01-02 15:04:05"

// PerfLog appends a performance summary after every position change. The
// file is opened in append mode for each entry and never truncated.
type PerfLog struct {
	mu     sync.Mutex
	path   string
	symbol string
}

// NewPerfLog logs to path. Sizes are labelled with the base asset.
func NewPerfLog(path, baseAsset string) *PerfLog {
	return &PerfLog{path: path, symbol: baseAsset}
}

// Path is the log file location.
func (p *PerfLog) Path() string { return p.path }

// Append writes the cumulative stats at at and, when last is set, a line
// describing the most recent closed trade.
func (p *PerfLog) Append(at time.Time, stats engine.Stats, dailyLoss float64, last *engine.Trade) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	f, err := os.OpenFile(p.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open performance log: %w", err)
	}
	defer f.Close()

	_, err = f.WriteString(p.format(at, stats, dailyLoss, last))
	return err
}

func (p *PerfLog) format(at time.Time, stats engine.Stats, dailyLoss float64, last *engine.Trade) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s] Total Profit: %.2f USDT | Win Rate: %.2f%% | Trades: %d | Daily Loss: %.2f\n",
		at.Format(TimeLayout), stats.TotalProfit, stats.WinRate()*100, stats.Count, dailyLoss)
	if last != nil {
		fmt.Fprintf(&sb, "Last Trade - Entry: %s @ %v | Exit: %s @ %v | Size: %.4f %s | Profit: %.2f USDT | Type: %s\n",
			last.EntryTime.Format(TimeLayout), last.EntryPrice,
			last.ExitTime.Format(TimeLayout), last.TriggerPrice,
			last.Size, p.symbol, last.Profit, last.Reason.Label())
	}
	return sb.String()
}
