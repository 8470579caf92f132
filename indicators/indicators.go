// Package indicators provides the technical indicators the position engine
// trades on. Every function is a pure computation over time-ordered bars.
package indicators

import (
	"errors"
	"math"
)

// ErrInsufficientData is returned when fewer bars are supplied than an
// indicator needs to produce a single defined value.
var ErrInsufficientData = errors.New("not enough bars")

// Valid reports whether an indicator output is defined.
// Undefined (warm-up) entries are NaN.
func Valid(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	return xs[len(xs)-1]
}
