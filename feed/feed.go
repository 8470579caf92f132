// Package feed supplies confirmed bars per timeframe to the strategy loop.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/futuresbot/market"
)

// ErrFeedUnavailable means a timeframe's bars could not be read at all.
// The loop logs it and polls again on the next tick.
var ErrFeedUnavailable = errors.New("feed unavailable")

// Feed returns the full ordered bar history it currently holds for a
// timeframe. Implementations must be safe for concurrent reads.
type Feed interface {
	Bars(ctx context.Context, tf market.Timeframe) ([]market.Bar, error)
}

// WaitReady polls f until every timeframe can be read or ctx is done.
// Unavailable and malformed data are retried; the streamer may still be
// writing the files.
func WaitReady(ctx context.Context, f Feed, poll time.Duration) error {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		err := ready(ctx, f)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrFeedUnavailable) && !errors.Is(err, market.ErrMalformedBar) {
			return err
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for feed: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func ready(ctx context.Context, f Feed) error {
	for _, tf := range market.Timeframes {
		if _, err := f.Bars(ctx, tf); err != nil {
			return err
		}
	}
	return nil
}
