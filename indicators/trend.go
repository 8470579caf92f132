package indicators

import "github.com/rustyeddy/futuresbot/market"

// DefaultTrendLookback is the number of higher-timeframe bars classified.
const DefaultTrendLookback = 3

// TrendSignal is the higher-timeframe confirmation. Bullish and Bearish are
// evaluated independently; both false means no confirmation.
type TrendSignal struct {
	Bullish bool
	Bearish bool
}

// Trend classifies the last lookback bars. Bullish requires the final close
// above the window's mean close and strictly rising highs; bearish requires
// the final close below the mean and strictly falling lows.
func Trend(bars []market.Bar, lookback int) TrendSignal {
	if lookback <= 0 || len(bars) < lookback {
		return TrendSignal{}
	}
	window := bars[len(bars)-lookback:]
	sma := Mean(market.Closes(window))
	closeV := window[len(window)-1].Close

	higherHighs, lowerLows := true, true
	for i := 1; i < len(window); i++ {
		if window[i].High <= window[i-1].High {
			higherHighs = false
		}
		if window[i].Low >= window[i-1].Low {
			lowerLows = false
		}
	}

	return TrendSignal{
		Bullish: closeV > sma && higherHighs,
		Bearish: closeV < sma && lowerLows,
	}
}
