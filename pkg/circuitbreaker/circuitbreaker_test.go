package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errDown = errors.New("connection refused")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestOpensAfterThreshold(t *testing.T) {
	cb := New("redis", Settings{Threshold: 2, Cooldown: time.Minute})

	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)
	assert.Equal(t, Stats{Calls: 2, Failures: 2, Rejected: 1, ConsecutiveFailures: 2}, cb.Stats())
}

func TestSuccessResetsConsecutiveFailures(t *testing.T) {
	cb := New("redis", Settings{Threshold: 2, Cooldown: time.Minute})

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), ok)
	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenRecovers(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var transitions []string
	cb := StoreBreaker("postgres", 1, 10*time.Second, nil, func(_ string, from, to State) {
		transitions = append(transitions, from.String()+"->"+to.String())
	})
	cb.now = func() time.Time { return now }

	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(5 * time.Second)
	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)

	now = now.Add(6 * time.Second)
	assert.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestFailedTrialReopens(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cb := New("postgres", Settings{Threshold: 3, Cooldown: time.Second})
	cb.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cb.Execute(context.Background(), fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
}

func TestIsFailureFilter(t *testing.T) {
	rejected := errors.New("not found")
	cb := StoreBreaker("redis", 1, time.Minute, func(err error) bool {
		return !errors.Is(err, rejected)
	}, nil)

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func(context.Context) error { return rejected })
	}
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 5, cb.Stats().Calls)
	assert.Zero(t, cb.Stats().Failures)
}
