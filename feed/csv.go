package feed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/market"
)

// DefaultSymbol is the file prefix the streamer writes.
const DefaultSymbol = "bnb_usdt"

// TimeLayout is the streamer's timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

var csvColumns = [...]string{"timestamp", "open", "high", "low", "close", "volume"}

// ReadStats counts the rows ReadBars did not turn into bars.
type ReadStats struct {
	Rows       int // data rows seen, header excluded
	Partial    int // short rows, usually a tail still being written
	Malformed  int // unparseable or invalid rows
	Superseded int // earlier updates of a candle written again later
}

// CSV reads the per-timeframe files written by the candle streamer:
//
//	<dir>/<symbol>_<tf>_stream.csv
//
// Each file has a header naming timestamp,open,close,high,low,volume in any
// order. The streamer appends a row on every kline update, so a candle is
// repeated until it closes. Bars collapses each candle to its last row and
// drops the candle still in progress. The whole file is read on every call.
type CSV struct {
	Dir    string
	Symbol string
	// Now is the wall clock used to decide which candles have closed.
	// Defaults to time.Now.
	Now    func() time.Time
	Logger *zap.Logger

	mu        sync.Mutex
	malformed map[market.Timeframe]int
}

// NewCSV returns a CSV feed over dir using DefaultSymbol.
func NewCSV(dir string) *CSV {
	return &CSV{Dir: dir, Symbol: DefaultSymbol}
}

// Path returns the file backing tf.
func (c *CSV) Path(tf market.Timeframe) string {
	sym := c.Symbol
	if sym == "" {
		sym = DefaultSymbol
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s_%s_stream.csv", sym, tf))
}

// Bars returns the confirmed candles of tf, oldest first.
func (c *CSV) Bars(ctx context.Context, tf market.Timeframe) ([]market.Bar, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := c.Path(tf)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFeedUnavailable, tf, err)
	}
	defer f.Close()

	bars, stats, err := ReadBars(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.report(tf, path, stats)

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return Confirmed(bars, tf, now()), nil
}

// report logs malformed rows once per new occurrence; the file is re-read
// on every tick.
func (c *CSV) report(tf market.Timeframe, path string, stats ReadStats) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.malformed == nil {
		c.malformed = make(map[market.Timeframe]int)
	}
	if stats.Malformed <= c.malformed[tf] {
		return
	}
	c.malformed[tf] = stats.Malformed
	if c.Logger != nil {
		c.Logger.Warn("skipped malformed candle rows",
			zap.String("file", path),
			zap.Int("malformed", stats.Malformed),
			zap.Int("rows", stats.Rows))
	}
}

// Confirmed returns the prefix of time-ordered bars whose period ended by
// now. Bar times are zone-less wall clock, so now is compared by its wall
// clock too.
func Confirmed(bars []market.Bar, tf market.Timeframe, now time.Time) []market.Bar {
	wall := time.Date(now.Year(), now.Month(), now.Day(),
		now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	i := len(bars)
	for i > 0 && bars[i-1].Time.Add(tf.Duration()).After(wall) {
		i--
	}
	return bars[:i]
}

// ReadBars parses streamer CSV rows from r and returns one bar per
// timestamp, sorted by time. When a timestamp repeats, the row written last
// wins. Short rows and malformed rows are skipped and counted. Only an
// unreadable header or stream is an error.
func ReadBars(r io.Reader) ([]market.Bar, ReadStats, error) {
	var stats ReadStats
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, fmt.Errorf("%w: header: %v", ErrFeedUnavailable, err)
	}
	idx, err := columnIndex(header)
	if err != nil {
		return nil, stats, err
	}

	var bars []market.Bar
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		switch {
		case errors.As(err, &perr):
			stats.Rows++
			stats.Malformed++
			continue
		case err != nil:
			return nil, stats, fmt.Errorf("%w: %v", ErrFeedUnavailable, err)
		}
		stats.Rows++
		if len(row) < len(header) || strings.TrimSpace(row[0]) == "" {
			stats.Partial++
			continue
		}
		b, err := parseBarRow(row, idx)
		if err != nil {
			stats.Malformed++
			continue
		}
		bars = append(bars, b)
	}

	slices.SortStableFunc(bars, func(a, b market.Bar) int { return a.Time.Compare(b.Time) })

	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Time.Equal(b.Time) {
			out[n-1] = b
			stats.Superseded++
			continue
		}
		out = append(out, b)
	}
	return out, stats, nil
}

func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrFeedUnavailable, col)
		}
	}
	return idx, nil
}

func parseBarRow(row []string, idx map[string]int) (market.Bar, error) {
	ts := strings.TrimSpace(row[idx["timestamp"]])
	t, err := parseTime(ts)
	if err != nil {
		return market.Bar{}, fmt.Errorf("%w: bad timestamp %q", market.ErrMalformedBar, ts)
	}

	var vals [5]float64
	for i, col := range csvColumns[1:] {
		raw := strings.TrimSpace(row[idx[col]])
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return market.Bar{}, fmt.Errorf("%w: bad %s %q", market.ErrMalformedBar, col, raw)
		}
		vals[i] = v
	}

	b := market.Bar{Time: t, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3], Volume: vals[4]}
	return b, b.Validate()
}

func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(TimeLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t.UTC(), err
}
