package market

import "time"

// Tail returns the last n bars (all bars when n <= 0 or n >= len).
func Tail(bars []Bar, n int) []Bar {
	if n <= 0 || n >= len(bars) {
		return bars
	}
	return bars[len(bars)-n:]
}

// UpTo returns the prefix of time-ordered bars whose timestamp is not after t.
func UpTo(bars []Bar, t time.Time) []Bar {
	i := len(bars)
	for i > 0 && bars[i-1].Time.After(t) {
		i--
	}
	return bars[:i]
}

// Last returns the most recent bar.
func Last(bars []Bar) (Bar, bool) {
	if len(bars) == 0 {
		return Bar{}, false
	}
	return bars[len(bars)-1], true
}
