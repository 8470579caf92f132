package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/futuresbot/market"
)

// Bands holds the Bollinger Band series. All three slices have one entry per
// input bar and are NaN during warm-up.
type Bands struct {
	Upper  []float64
	Middle []float64
	Lower  []float64
}

// Band is a single Bollinger reading.
type Band struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Last returns the most recent band values.
func (b Bands) Last() Band {
	return Band{Upper: last(b.Upper), Middle: last(b.Middle), Lower: last(b.Lower)}
}

// Bollinger calculates Bollinger Bands over the close price. The middle band
// is the simple moving average of the close and the half-width is mult times
// the sample standard deviation (n-1 denominator) over the same window.
func Bollinger(bars []market.Bar, period int, mult float64) (Bands, error) {
	if period < 2 {
		return Bands{}, fmt.Errorf("bollinger period must be at least 2, got %d", period)
	}
	if len(bars) < period {
		return Bands{}, fmt.Errorf("bollinger(%d): %w: need %d, got %d", period, ErrInsufficientData, period, len(bars))
	}

	closes := market.Closes(bars)
	bands := Bands{
		Upper:  nanSeries(len(bars)),
		Middle: SMA(closes, period),
		Lower:  nanSeries(len(bars)),
	}

	for i := period - 1; i < len(closes); i++ {
		mid := bands.Middle[i]
		sq := 0.0
		for _, c := range closes[i-period+1 : i+1] {
			sq += (c - mid) * (c - mid)
		}
		half := mult * math.Sqrt(sq/float64(period-1))
		bands.Upper[i] = mid + half
		bands.Lower[i] = mid - half
	}
	return bands, nil
}
