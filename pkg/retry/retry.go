// Package retry re-runs an operation with exponential backoff. The store
// decorator uses it to replay transactions whose commit lost a write race.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// stopError marks an error that must end the loop even if the retry
// predicate would accept it.
type stopError struct {
	err error
}

func (e *stopError) Error() string { return e.err.Error() }
func (e *stopError) Unwrap() error { return e.err }

// Stop wraps err so that Do returns it at once.
func Stop(err error) error {
	if err == nil {
		return nil
	}
	return &stopError{err: err}
}

// Policy describes how many attempts run and how long to wait between them.
type Policy struct {
	// Attempts includes the first run. Values below 1 mean 1.
	Attempts int

	// BaseDelay is the wait after the first failure.
	BaseDelay time.Duration

	// MaxDelay caps every wait.
	MaxDelay time.Duration

	// Factor multiplies the wait after each failure.
	Factor float64

	// Jitter spreads each wait by up to ±Jitter of its value (0..1).
	Jitter float64
}

// TransactionPolicy is tuned for short local transactions: a conflicting
// writer usually finishes within a few milliseconds.
func TransactionPolicy(attempts int) Policy {
	return Policy{
		Attempts:  attempts,
		BaseDelay: 20 * time.Millisecond,
		MaxDelay:  500 * time.Millisecond,
		Factor:    2,
		Jitter:    0.2,
	}
}

// Backoff returns the wait after failed attempt n (1-based), before jitter.
func (p Policy) Backoff(n int) time.Duration {
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}
	d := float64(p.BaseDelay) * math.Pow(factor, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}

// Retrier runs operations under a Policy.
type Retrier struct {
	policy      Policy
	shouldRetry func(error) bool
	onRetry     func(attempt int, err error, wait time.Duration)
}

// New returns a Retrier that repeats an operation while shouldRetry accepts
// its error. A nil shouldRetry never retries.
func New(policy Policy, shouldRetry func(error) bool) *Retrier {
	if policy.Attempts < 1 {
		policy.Attempts = 1
	}
	if shouldRetry == nil {
		shouldRetry = func(error) bool { return false }
	}
	return &Retrier{policy: policy, shouldRetry: shouldRetry}
}

// TransactionRetrier repeats a transaction only when isConflict reports that
// its commit was discarded.
func TransactionRetrier(attempts int, isConflict func(error) bool) *Retrier {
	return New(TransactionPolicy(attempts), isConflict)
}

// OnRetry installs a hook called before every wait.
func (r *Retrier) OnRetry(fn func(attempt int, err error, wait time.Duration)) *Retrier {
	r.onRetry = fn
	return r
}

// Do runs op until it succeeds, fails with an error that is not retried,
// the attempts run out, or ctx is done. The last error of op is returned.
func (r *Retrier) Do(ctx context.Context, op func(ctx context.Context) error) error {
	var last error
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			if last != nil {
				return last
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		var stop *stopError
		if errors.As(err, &stop) {
			return stop.err
		}
		last = err
		if attempt >= r.policy.Attempts || !r.shouldRetry(err) {
			return err
		}

		wait := r.wait(attempt)
		if r.onRetry != nil {
			r.onRetry(attempt, err, wait)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return last
		case <-timer.C:
		}
	}
}

func (r *Retrier) wait(attempt int) time.Duration {
	d := float64(r.policy.Backoff(attempt))
	if j := r.policy.Jitter; j > 0 && j <= 1 {
		d += d * j * (rand.Float64()*2 - 1)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}
