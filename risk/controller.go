// Package risk tracks realized losses against the daily cap and sizes
// positions so a stop-out costs a fixed amount.
package risk

import (
	"errors"
	"fmt"
)

// ErrDailyLossLimit is reported once cumulative realized loss reaches the cap.
var ErrDailyLossLimit = errors.New("daily loss limit reached")

// Controller is the session risk state. It is not safe for concurrent use;
// the strategy loop owns it.
type Controller struct {
	bankroll     float64
	maxDailyLoss float64 // fraction of bankroll
	loss         float64 // cumulative realized loss, negative when the session is net profitable
}

// NewController creates a controller for a constant session bankroll.
func NewController(bankroll, maxDailyLossFraction float64) *Controller {
	return &Controller{bankroll: bankroll, maxDailyLoss: maxDailyLossFraction}
}

// Limit is the loss amount at which trading stops.
func (c *Controller) Limit() float64 { return c.maxDailyLoss * c.bankroll }

// CanTrade reports whether new positions may be opened.
func (c *Controller) CanTrade() bool { return c.loss < c.Limit() }

// Check returns ErrDailyLossLimit when trading is no longer permitted.
func (c *Controller) Check() error {
	if c.CanTrade() {
		return nil
	}
	return fmt.Errorf("%w: loss %.2f >= limit %.2f", ErrDailyLossLimit, c.loss, c.Limit())
}

// RecordTradeResult folds a realized, fee-inclusive profit into the loss
// accumulator. Profits reduce it, losses increase it.
func (c *Controller) RecordTradeResult(profit float64) { c.loss -= profit }

// Reset zeroes the accumulator at a calendar-day rollover.
func (c *Controller) Reset() { c.loss = 0 }

// Loss is the cumulative realized loss since the last reset.
func (c *Controller) Loss() float64 { return c.loss }

// Bankroll is the constant session bankroll.
func (c *Controller) Bankroll() float64 { return c.bankroll }

// Available is the bankroll net of the realized loss.
func (c *Controller) Available() float64 { return c.bankroll - c.loss }
