// Package operator is the start/stop/status surface over a strategy loop.
// Commands may arrive on any goroutine; the loop itself is only ever driven
// by the goroutine Start launches.
package operator

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/rustyeddy/futuresbot/runner"
)

// Loop is the part of *runner.Loop the service drives.
type Loop interface {
	Run(ctx context.Context) error
	Status() runner.Status
}

// Service runs a Loop in the background on request.
type Service struct {
	loop Loop
	log  *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
}

func NewService(loop Loop, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{loop: loop, log: log}
}

// Start launches the loop under ctx. It reports false when the loop was
// already running.
func (s *Service) Start(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return false, nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done, s.lastErr = cancel, done, nil

	go func() {
		defer close(done)
		err := s.loop.Run(runCtx)
		cancel()
		switch {
		case errors.Is(err, runner.ErrHalted):
			s.log.Warn("strategy loop halted", zap.Error(err))
		case err != nil:
			s.log.Error("strategy loop failed", zap.Error(err))
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.lastErr = err
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
	}()
	return true, nil
}

// Stop asks the loop to finish after its current tick. It reports false when
// the loop was not running. An open position is left open.
func (s *Service) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return false
	}
	s.cancel()
	return true
}

// Wait blocks until the running loop exits, or ctx is done, and returns the
// loop's result. It returns immediately when nothing is running.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()
	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Running reports whether a loop goroutine is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done != nil
}

// Status returns the loop's latest snapshot with Running reflecting the
// service state.
func (s *Service) Status() runner.Status {
	st := s.loop.Status()
	st.Running = s.Running()
	return st
}

// StatusText renders Status for the operator.
func (s *Service) StatusText() string {
	return runner.StatusText(s.Status())
}
