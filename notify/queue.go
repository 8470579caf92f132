package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrQueueFull is returned by Notify under the Reject policy when the queue
// is at capacity.
var ErrQueueFull = errors.New("notification queue full")

// Overflow selects what Notify does when the queue is at capacity.
type Overflow int

const (
	// DropOldest discards the oldest queued message to make room.
	DropOldest Overflow = iota
	// Block waits for room or for the caller's context.
	Block
	// Reject returns ErrQueueFull and keeps the queue unchanged.
	Reject
)

func (o Overflow) String() string {
	switch o {
	case DropOldest:
		return "drop_oldest"
	case Block:
		return "block"
	case Reject:
		return "reject"
	}
	return "unknown"
}

// ParseOverflow maps a config string to an Overflow. Empty means DropOldest.
func ParseOverflow(s string) (Overflow, error) {
	switch s {
	case "", "drop_oldest":
		return DropOldest, nil
	case "block":
		return Block, nil
	case "reject":
		return Reject, nil
	}
	return 0, errors.New("unknown overflow policy " + s)
}

// QueueConfig sizes and throttles a Queue.
type QueueConfig struct {
	Capacity   int
	Overflow   Overflow
	PerSecond  float64 // delivery rate limit; <= 0 means unlimited
	Burst      int
	Attempts   int // delivery attempts per message
	RetryDelay time.Duration
}

// DefaultQueueConfig returns the settings used by the bot.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Capacity:   64,
		Overflow:   DropOldest,
		PerSecond:  1,
		Burst:      5,
		Attempts:   3,
		RetryDelay: 2 * time.Second,
	}
}

// Queue is a bounded FIFO of messages drained by Run.
type Queue struct {
	cfg     QueueConfig
	sink    Sink
	ch      chan string
	limiter *rate.Limiter
	log     *zap.Logger

	dropped   atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
}

// NewQueue creates a queue in front of sink.
func NewQueue(sink Sink, cfg QueueConfig, log *zap.Logger) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	limit := rate.Inf
	if cfg.PerSecond > 0 {
		limit = rate.Limit(cfg.PerSecond)
	}
	burst := max(cfg.Burst, 1)
	return &Queue{
		cfg:     cfg,
		sink:    sink,
		ch:      make(chan string, cfg.Capacity),
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

// Notify enqueues text according to the overflow policy.
func (q *Queue) Notify(ctx context.Context, text string) error {
	switch q.cfg.Overflow {
	case Block:
		select {
		case q.ch <- text:
			return nil
		default:
		}
		select {
		case q.ch <- text:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case Reject:
		select {
		case q.ch <- text:
			return nil
		default:
			q.dropped.Add(1)
			return ErrQueueFull
		}
	}

	for {
		select {
		case q.ch <- text:
			return nil
		default:
		}
		select {
		case old := <-q.ch:
			q.dropped.Add(1)
			q.log.Warn("notification dropped", zap.String("text", old))
		default:
		}
	}
}

// Len is the number of queued messages.
func (q *Queue) Len() int { return len(q.ch) }

// Dropped counts messages discarded by the overflow policy.
func (q *Queue) Dropped() int64 { return q.dropped.Load() }

// Delivered counts messages the sink accepted.
func (q *Queue) Delivered() int64 { return q.delivered.Load() }

// Failed counts messages that exhausted their attempts.
func (q *Queue) Failed() int64 { return q.failed.Load() }

// Run delivers queued messages until ctx is done.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-q.ch:
			q.deliver(ctx, text)
		}
	}
}

// Flush delivers everything currently queued, or stops when ctx is done.
func (q *Queue) Flush(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-q.ch:
			q.deliver(ctx, text)
		default:
			return
		}
	}
}

func (q *Queue) deliver(ctx context.Context, text string) {
	var err error
	for attempt := 1; attempt <= q.cfg.Attempts; attempt++ {
		if err = q.limiter.Wait(ctx); err != nil {
			break
		}
		if err = q.sink.Send(ctx, text); err == nil {
			q.delivered.Add(1)
			return
		}
		q.log.Warn("notification send failed", zap.Int("attempt", attempt), zap.Error(err))
		if attempt < q.cfg.Attempts && !sleep(ctx, q.cfg.RetryDelay) {
			break
		}
	}
	q.failed.Add(1)
	q.log.Error("notification not delivered", zap.String("text", text), zap.Error(err))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
