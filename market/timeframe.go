package market

import (
	"fmt"
	"time"
)

// Timeframe identifies one of the candle intervals the bot trades on.
type Timeframe int

const (
	M1 Timeframe = iota
	M5
	M15
)

// Timeframes lists every supported timeframe, shortest first.
var Timeframes = []Timeframe{M1, M5, M15}

func (tf Timeframe) String() string {
	switch tf {
	case M1:
		return "1m"
	case M5:
		return "5m"
	case M15:
		return "15m"
	}
	return fmt.Sprintf("Timeframe(%d)", int(tf))
}

// Duration is the length of one candle.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case M1:
		return time.Minute
	case M5:
		return 5 * time.Minute
	case M15:
		return 15 * time.Minute
	}
	return 0
}
