// Package resilient decorates a document.Store with conflict retries and a
// circuit breaker.
package resilient

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/pkg/circuitbreaker"
	"github.com/alem-hub/school-records/pkg/retry"
)

// Config controls the decorator.
type Config struct {
	// MaxAttempts bounds how many times a conflicting Update is re-run.
	MaxAttempts int

	// BreakerThreshold is the number of consecutive backend failures that
	// opens the circuit. Zero disables the breaker.
	BreakerThreshold int

	// BreakerTimeout is how long the circuit stays open.
	BreakerTimeout time.Duration
}

// DefaultConfig returns defaults suited to a remote backend.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      3,
		BreakerThreshold: 3,
		BreakerTimeout:   10 * time.Second,
	}
}

// Store wraps another document.Store.
type Store struct {
	next    document.Store
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
	logger  *slog.Logger
}

var _ document.Store = (*Store)(nil)

// callbackError marks an error that came out of the caller's own callback
// rather than from the backend.
type callbackError struct{ err error }

func (e callbackError) Error() string { return e.err.Error() }
func (e callbackError) Unwrap() error { return e.err }

// Wrap builds the decorator around next.
func Wrap(next document.Store, name string, cfg Config, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "resilient_store", "backend", name)

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	s := &Store{next: next, logger: logger}
	s.retrier = retry.TransactionRetrier(cfg.MaxAttempts, func(err error) bool {
		return errors.Is(err, document.ErrConflict)
	}).OnRetry(func(attempt int, _ error, wait time.Duration) {
		logger.Debug("retrying conflicting transaction", "attempt", attempt, "wait", wait)
	})
	if cfg.BreakerThreshold > 0 {
		s.breaker = circuitbreaker.StoreBreaker(name, cfg.BreakerThreshold, cfg.BreakerTimeout, isBackendFailure,
			func(name string, from, to circuitbreaker.State) {
				logger.Warn("store circuit state changed", "from", from.String(), "to", to.String())
			})
	}
	return s
}

func isBackendFailure(err error) bool {
	var cbErr callbackError
	if errors.As(err, &cbErr) {
		return false
	}
	return !errors.Is(err, document.ErrConflict) &&
		!errors.Is(err, context.Canceled)
}

// Breaker exposes the circuit breaker, nil when disabled.
func (s *Store) Breaker() *circuitbreaker.CircuitBreaker {
	return s.breaker
}

// View runs fn through the breaker.
func (s *Store) View(ctx context.Context, fn func(tx document.Tx) error) error {
	return unwrap(s.guard(ctx, func(ctx context.Context) error {
		return s.next.View(ctx, tagged(fn))
	}))
}

// Update runs fn through the breaker and re-runs it on write conflicts.
func (s *Store) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		return s.guard(ctx, func(ctx context.Context) error {
			return s.next.Update(ctx, tagged(fn))
		})
	})
	return unwrap(err)
}

// Close closes the wrapped store.
func (s *Store) Close() error {
	return s.next.Close()
}

func (s *Store) guard(ctx context.Context, op func(context.Context) error) error {
	if s.breaker == nil {
		return op(ctx)
	}
	return s.breaker.Execute(ctx, op)
}

func tagged(fn func(tx document.Tx) error) func(tx document.Tx) error {
	return func(tx document.Tx) error {
		if err := fn(tx); err != nil {
			return callbackError{err: err}
		}
		return nil
	}
}

func unwrap(err error) error {
	var cbErr callbackError
	if errors.As(err, &cbErr) {
		return cbErr.err
	}
	return err
}
