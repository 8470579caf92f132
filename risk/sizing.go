package risk

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSizing is returned for non-positive prices or sizes.
var ErrInvalidSizing = errors.New("invalid sizing input")

// PositionSize is the base-asset quantity for a leveraged position worth
// bankroll * riskFraction * leverage in quote currency.
func PositionSize(bankroll, riskFraction, leverage, price float64) (float64, error) {
	if price <= 0 || math.IsNaN(price) {
		return 0, fmt.Errorf("%w: price %v", ErrInvalidSizing, price)
	}
	size := bankroll * riskFraction * leverage / price
	if size <= 0 {
		return 0, fmt.Errorf("%w: size %v", ErrInvalidSizing, size)
	}
	return size, nil
}

// StopPrice places the stop so that a position of size loses maxLoss quote
// currency when it is hit: below entry for longs, above entry for shorts.
func StopPrice(long bool, entry, size, maxLoss float64) (float64, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: size %v", ErrInvalidSizing, size)
	}
	dist := maxLoss / size
	if long {
		return entry - dist, nil
	}
	return entry + dist, nil
}

// PlannedRisk computes the absolute quote-currency loss if the stop is hit.
func PlannedRisk(size, entry, stop float64) float64 {
	return size * math.Abs(entry-stop)
}

// RR is the reward-to-risk ratio of a planned trade.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}
