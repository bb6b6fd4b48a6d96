// Package circuitbreaker stops calls to a remote document store after
// repeated backend failures, so commands fail fast instead of waiting on
// every dial timeout.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State of a breaker.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown passes.
	StateOpen
	// StateHalfOpen lets a single trial call through.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned instead of calling a backend that is down.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Settings configure a breaker.
type Settings struct {
	// Threshold is the number of consecutive failures that opens the circuit.
	Threshold int

	// Cooldown is how long the circuit stays open before a trial call.
	Cooldown time.Duration

	// IsFailure decides which errors count. Nil counts every error.
	IsFailure func(error) bool

	// OnStateChange is called with the lock held; keep it short.
	OnStateChange func(name string, from, to State)
}

// Stats is a snapshot of the counters.
type Stats struct {
	Calls               int
	Failures            int
	Rejected            int
	ConsecutiveFailures int
}

// CircuitBreaker guards calls to one backend.
type CircuitBreaker struct {
	name     string
	settings Settings

	mu       sync.Mutex
	state    State
	stats    Stats
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// New creates a closed breaker. A threshold below 1 is treated as 1.
func New(name string, settings Settings) *CircuitBreaker {
	if settings.Threshold < 1 {
		settings.Threshold = 1
	}
	return &CircuitBreaker{name: name, settings: settings, now: time.Now}
}

// StoreBreaker returns a breaker for a remote document store. Only errors
// for which isFailure reports true count against the threshold.
func StoreBreaker(name string, threshold int, cooldown time.Duration, isFailure func(error) bool, onStateChange func(name string, from, to State)) *CircuitBreaker {
	return New(name, Settings{
		Threshold:     threshold,
		Cooldown:      cooldown,
		IsFailure:     isFailure,
		OnStateChange: onStateChange,
	})
}

// Execute calls fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn(ctx)
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.Cooldown {
			cb.stats.Rejected++
			return ErrCircuitOpen
		}
		cb.transition(StateHalfOpen)
		cb.probing = true
		return nil
	case StateHalfOpen:
		if cb.probing {
			cb.stats.Rejected++
			return ErrCircuitOpen
		}
		cb.probing = true
		return nil
	default:
		return nil
	}
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.stats.Calls++
	cb.probing = false

	failed := err != nil
	if failed && cb.settings.IsFailure != nil {
		failed = cb.settings.IsFailure(err)
	}

	if !failed {
		cb.stats.ConsecutiveFailures = 0
		if cb.state == StateHalfOpen {
			cb.transition(StateClosed)
		}
		return
	}

	cb.stats.Failures++
	cb.stats.ConsecutiveFailures++
	if cb.state == StateHalfOpen || cb.stats.ConsecutiveFailures >= cb.settings.Threshold {
		cb.openedAt = cb.now()
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	if to != StateOpen {
		cb.stats.ConsecutiveFailures = 0
	}
	if cb.settings.OnStateChange != nil {
		cb.settings.OnStateChange(cb.name, from, to)
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats returns a copy of the counters.
func (cb *CircuitBreaker) Stats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.stats
}

// Name returns the backend name the breaker guards.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}
