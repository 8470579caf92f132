package sim

// HitStopLoss reports whether price has reached the stop for the side.
func HitStopLoss(long bool, price, stop float64) bool {
	if long {
		return price <= stop
	}
	return price >= stop
}

// HitTakeProfit reports whether price has reached the target for the side.
func HitTakeProfit(long bool, price, target float64) bool {
	if long {
		return price >= target
	}
	return price <= target
}

// TakeProfitPrice is the fixed-fraction target from the entry price.
func TakeProfitPrice(long bool, entry, fraction float64) float64 {
	if long {
		return entry * (1 + fraction)
	}
	return entry * (1 - fraction)
}
