// Package sim resolves simulated limit orders into deterministic fills.
// Nothing here touches an order book or performs I/O.
package sim

import "fmt"

// DefaultSlippage is the price adjustment applied when a limit order has to
// cross the spread.
const DefaultSlippage = 0.001

// OrderSide is the direction of a simulated order.
type OrderSide int

const (
	Buy OrderSide = iota
	Sell
)

func (s OrderSide) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	}
	return fmt.Sprintf("OrderSide(%d)", int(s))
}

// Fill is the outcome of a simulated order.
type Fill struct {
	Price   float64
	Size    float64
	Slipped bool // true when the limit was not satisfied and slippage applied
}

// ResolveLimitOrder fills a limit order against the current market price
// using DefaultSlippage.
func ResolveLimitOrder(side OrderSide, limit, size, market float64) Fill {
	return Executor{Slippage: DefaultSlippage}.Resolve(side, limit, size, market)
}

// Executor resolves limit orders with a fixed slippage fraction.
type Executor struct {
	Slippage float64
}

// DefaultExecutor uses DefaultSlippage.
func DefaultExecutor() Executor { return Executor{Slippage: DefaultSlippage} }

// Resolve fills at the limit when the market already satisfies it (buy
// limit at or above market, sell limit at or below market). Otherwise the
// fill is moved against the requester by the slippage fraction.
func (e Executor) Resolve(side OrderSide, limit, size, market float64) Fill {
	switch side {
	case Buy:
		if market <= limit {
			return Fill{Price: limit, Size: size}
		}
		return Fill{Price: limit * (1 + e.Slippage), Size: size, Slipped: true}
	default:
		if market >= limit {
			return Fill{Price: limit, Size: size}
		}
		return Fill{Price: limit * (1 - e.Slippage), Size: size, Slipped: true}
	}
}
