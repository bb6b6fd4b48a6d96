package resilient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/school-records/internal/domain/document"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/school-records/internal/infrastructure/persistence/storetest"
	"github.com/alem-hub/school-records/pkg/circuitbreaker"
)

// flaky fails the first n Updates with the configured error.
type flaky struct {
	document.Store
	failures int
	err      error
	calls    int
}

func (f *flaky) Update(ctx context.Context, fn func(tx document.Tx) error) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return f.Store.Update(ctx, fn)
}

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) document.Store {
		return Wrap(memory.NewStore(), "memory", DefaultConfig(), nil)
	})
}

func TestUpdateRetriesConflicts(t *testing.T) {
	inner := &flaky{Store: memory.NewStore(), failures: 2, err: document.ErrConflict}
	s := Wrap(inner, "flaky", Config{MaxAttempts: 3}, nil)

	err := s.Update(context.Background(), func(tx document.Tx) error {
		return tx.Put(document.Courses, "c", []byte(`{}`))
	})
	require.NoError(t, err)
	assert.Equal(t, 3, inner.calls)
}

func TestCallbackErrorsPassThroughUnchanged(t *testing.T) {
	s := Wrap(memory.NewStore(), "memory", Config{MaxAttempts: 3, BreakerThreshold: 1, BreakerTimeout: time.Minute}, nil)
	rejected := errors.New("student already enrolled")

	for i := 0; i < 3; i++ {
		err := s.Update(context.Background(), func(document.Tx) error { return rejected })
		assert.Equal(t, rejected, err)
	}
	assert.Equal(t, circuitbreaker.StateClosed, s.Breaker().State())
}

func TestBackendFailuresOpenCircuit(t *testing.T) {
	down := errors.New("dial tcp: connection refused")
	inner := &flaky{Store: memory.NewStore(), failures: 10, err: down}
	s := Wrap(inner, "flaky", Config{MaxAttempts: 1, BreakerThreshold: 2, BreakerTimeout: time.Minute}, nil)

	noop := func(document.Tx) error { return nil }
	assert.ErrorIs(t, s.Update(context.Background(), noop), down)
	assert.ErrorIs(t, s.Update(context.Background(), noop), down)
	assert.ErrorIs(t, s.Update(context.Background(), noop), circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, 2, inner.calls)
}
