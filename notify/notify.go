// Package notify delivers operator messages. The strategy loop hands text to
// a bounded Queue and never waits on the network; a single dispatcher drains
// the queue into a Sink.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Sink delivers one message. Implementations may block on I/O.
type Sink interface {
	Send(ctx context.Context, text string) error
}

// Notifier accepts messages for later delivery.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Console writes each message followed by a blank line.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleWriter writes to w.
func NewConsoleWriter(w io.Writer) *Console { return &Console{out: w} }

func (c *Console) Send(_ context.Context, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.out, "%s\n\n", text)
	return err
}

// Multi sends to every sink and joins their errors.
type Multi []Sink

func (m Multi) Send(ctx context.Context, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
