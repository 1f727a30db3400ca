package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/rs/zerolog"
)

// Supervisor runs named background loops under one context. The first
// error (or panic) recorded by any loop cancels the whole group.
type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger

	wg sync.WaitGroup

	mu  sync.Mutex
	err error
}

func NewSupervisor(parent context.Context, log zerolog.Logger) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	return &Supervisor{ctx: ctx, cancel: cancel, log: log.With().Str("comp", "supervisor").Logger()}
}

func (s *Supervisor) Context() context.Context { return s.ctx }

func (s *Supervisor) Cancel() { s.cancel() }

// Err returns the first fatal error observed (if any).
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Go starts fn as a supervised loop. fn returning a non-context error is
// fatal to the group.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.fail(fmt.Errorf("panic in %s: %v", name, r))
				s.log.Error().Str("name", name).Interface("panic", r).
					Str("stack", string(debug.Stack())).Msg("supervised loop panicked")
			}
		}()
		if err := fn(s.ctx); err != nil && s.ctx.Err() == nil {
			s.fail(fmt.Errorf("%s: %w", name, err))
			s.log.Error().Str("name", name).Err(err).Msg("supervised loop failed")
		}
	}()
}

func (s *Supervisor) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every loop has returned or ctx expires.
func (s *Supervisor) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
