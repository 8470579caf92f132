// Package metrics exposes the bot's state as Prometheus collectors.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "futuresbot"

// Recorder owns a private registry so several loops (and tests) can coexist.
// A nil *Recorder records nothing.
type Recorder struct {
	reg *prometheus.Registry

	ticks        prometheus.Counter
	skipped      *prometheus.CounterVec
	opened       *prometheus.CounterVec
	closed       *prometheus.CounterVec
	profit       prometheus.Gauge
	dailyLoss    prometheus.Gauge
	available    prometheus.Gauge
	positionOpen prometheus.Gauge
	halted       prometheus.Gauge
	lastPrice    prometheus.Gauge
	barsDropped  prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Strategy loop ticks processed.",
		}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Ticks that did not reach a decision step, by reason.",
		}, []string{"reason"}),
		opened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Positions opened, by side.",
		}, []string{"side"}),
		closed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_closed_total",
			Help:      "Trades closed, by exit reason.",
		}, []string{"reason"}),
		profit: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_profit_usdt",
			Help:      "Fee-inclusive profit of all trades this session.",
		}),
		dailyLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "daily_loss_usdt",
			Help:      "Net realised loss since the last daily reset.",
		}),
		available: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bankroll_available_usdt",
			Help:      "Bankroll minus the daily loss.",
		}),
		positionOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_open",
			Help:      "1 while a position is open.",
		}),
		halted: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "halted",
			Help:      "1 once the daily loss limit stopped the loop.",
		}),
		lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Close of the latest short-timeframe bar evaluated.",
		}),
		barsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bars_dropped_total",
			Help:      "Duplicate or out-of-order input bars discarded before a step.",
		}),
	}
	r.reg.MustRegister(
		r.ticks, r.skipped, r.opened, r.closed, r.profit, r.dailyLoss,
		r.available, r.positionOpen, r.halted, r.lastPrice, r.barsDropped,
		collectors.NewGoCollector(),
	)
	return r
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// QueueStats is implemented by the notification queue.
type QueueStats interface {
	Len() int
	Dropped() int64
}

// WatchQueue exports the depth and drop count of q.
func (r *Recorder) WatchQueue(q QueueStats) {
	if r == nil {
		return
	}
	r.reg.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "notifications_queued",
			Help:      "Messages waiting for delivery.",
		}, func() float64 { return float64(q.Len()) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Messages discarded by the queue overflow policy.",
		}, func() float64 { return float64(q.Dropped()) }),
	)
}

func (r *Recorder) Tick(price float64) {
	if r == nil {
		return
	}
	r.ticks.Inc()
	if price > 0 {
		r.lastPrice.Set(price)
	}
}

func (r *Recorder) DroppedBars(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.barsDropped.Add(float64(n))
}

func (r *Recorder) Skip(reason string) {
	if r == nil {
		return
	}
	r.skipped.WithLabelValues(reason).Inc()
}

func (r *Recorder) Opened(side string) {
	if r == nil {
		return
	}
	r.opened.WithLabelValues(side).Inc()
	r.positionOpen.Set(1)
}

func (r *Recorder) Closed(reason string, sessionProfit float64) {
	if r == nil {
		return
	}
	r.closed.WithLabelValues(reason).Inc()
	r.positionOpen.Set(0)
	r.profit.Set(sessionProfit)
}

func (r *Recorder) Risk(dailyLoss, available float64) {
	if r == nil {
		return
	}
	r.dailyLoss.Set(dailyLoss)
	r.available.Set(available)
}

func (r *Recorder) Halted(h bool) {
	if r == nil {
		return
	}
	if h {
		r.halted.Set(1)
		return
	}
	r.halted.Set(0)
}

// Serve exposes h on addr under /metrics until ctx is done.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
