package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/futuresbot/market"
)

// TrueRange calculates the True Range for a bar given the previous bar.
func TrueRange(current, previous market.Bar) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}

// ATR calculates the Average True Range series for the given period.
//
// The output has one entry per bar. The first period entries are NaN; entry
// i >= period is the simple mean of the true ranges of bars i-period+1..i.
// At least period+1 bars are required.
func ATR(bars []market.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, fmt.Errorf("period must be positive, got %d", period)
	}
	if len(bars) < period+1 {
		return nil, fmt.Errorf("atr(%d): %w: need %d, got %d", period, ErrInsufficientData, period+1, len(bars))
	}

	out := nanSeries(len(bars))
	trueRanges := make([]float64, len(bars))
	sum := 0.0
	for i := 1; i < len(bars); i++ {
		trueRanges[i] = TrueRange(bars[i], bars[i-1])
		sum += trueRanges[i]
		if i > period {
			sum -= trueRanges[i-period]
		}
		if i >= period {
			out[i] = sum / float64(period)
		}
	}
	return out, nil
}

// LastATR returns the most recent ATR value.
func LastATR(bars []market.Bar, period int) (float64, error) {
	series, err := ATR(bars, period)
	if err != nil {
		return 0, err
	}
	return last(series), nil
}
