package market

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedBar is returned when a bar carries a non-finite or negative
// price or volume.
var ErrMalformedBar = errors.New("malformed bar")

// Bar represents one confirmed OHLCV candle. Time is the candle open time
// as wall clock, without a meaningful zone.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Validate checks the non-negativity and finiteness of every field.
func (b Bar) Validate() error {
	fields := [...]struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s is not finite at %s", ErrMalformedBar, f.name, b.Time.Format(time.DateTime))
		}
		if f.v < 0 {
			return fmt.Errorf("%w: %s %.8f is negative at %s", ErrMalformedBar, f.name, f.v, b.Time.Format(time.DateTime))
		}
	}
	if b.Time.IsZero() {
		return fmt.Errorf("%w: missing timestamp", ErrMalformedBar)
	}
	return nil
}

// SanitizeStats counts the bars dropped by Sanitize.
type SanitizeStats struct {
	Duplicates int
	OutOfOrder int
}

// Dropped is the total number of bars Sanitize discarded.
func (s SanitizeStats) Dropped() int { return s.Duplicates + s.OutOfOrder }

// Sanitize validates every bar and returns the strictly increasing
// subsequence of bars, keeping the first bar seen for any timestamp.
// The input slice is not modified.
func Sanitize(bars []Bar) ([]Bar, SanitizeStats, error) {
	var stats SanitizeStats
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return nil, stats, err
		}
		if n := len(out); n > 0 {
			last := out[n-1].Time
			switch {
			case b.Time.Equal(last):
				stats.Duplicates++
				continue
			case b.Time.Before(last):
				stats.OutOfOrder++
				continue
			}
		}
		out = append(out, b)
	}
	return out, stats, nil
}

// Closes returns the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
