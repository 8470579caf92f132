package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/rustyeddy/futuresbot/market"
)

// Memory is an in-memory Feed used for replays and tests.
type Memory struct {
	mu   sync.RWMutex
	bars map[market.Timeframe][]market.Bar
	errs map[market.Timeframe]error
}

func NewMemory() *Memory {
	return &Memory{
		bars: make(map[market.Timeframe][]market.Bar),
		errs: make(map[market.Timeframe]error),
	}
}

// Set replaces the history of tf.
func (m *Memory) Set(tf market.Timeframe, bars []market.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[tf] = append([]market.Bar(nil), bars...)
}

// Append adds bars to the end of tf's history.
func (m *Memory) Append(tf market.Timeframe, bars ...market.Bar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[tf] = append(m.bars[tf], bars...)
}

// Fail makes reads of tf return err until it is cleared with a nil err.
func (m *Memory) Fail(tf market.Timeframe, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, tf)
		return
	}
	m.errs[tf] = err
}

func (m *Memory) Bars(ctx context.Context, tf market.Timeframe) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.errs[tf]; err != nil {
		return nil, err
	}
	bars, ok := m.bars[tf]
	if !ok {
		return nil, fmt.Errorf("%w: no %s bars", ErrFeedUnavailable, tf)
	}
	return append([]market.Bar(nil), bars...), nil
}
