package sim

// RealizedProfit is the fee-inclusive quote-currency profit of closing a
// position. The fee is charged on the exit notional.
func RealizedProfit(long bool, entry, exit, size, feeRate float64) float64 {
	gross := (exit - entry) * size
	if !long {
		gross = (entry - exit) * size
	}
	return gross - feeRate*exit*size
}

// UnrealizedPL marks an open position to the current price, before fees.
func UnrealizedPL(long bool, entry, current, size float64) float64 {
	if long {
		return (current - entry) * size
	}
	return (entry - current) * size
}
