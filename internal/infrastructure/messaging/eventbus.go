// Package messaging carries domain events from command handlers to the
// audit trail and any other subscriber in the same process.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

var (
	ErrEventBusClosed = errors.New("event bus is closed")
	ErrHandlerPanic   = errors.New("handler panicked")
	errNilHandler     = errors.New("handler cannot be nil")
)

// InMemoryEventBusConfig configures NewInMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers on background goroutines. Close drains them.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent handlers in AsyncMode.
	WorkerPoolSize int

	Logger *slog.Logger

	EnableMetrics bool
}

func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{WorkerPoolSize: 4, EnableMetrics: true}
}

// subscription with an empty eventType receives every event.
type subscription struct {
	eventType shared.EventType
	handler   shared.EventHandler
}

// InMemoryEventBus delivers events in subscription order. In the default
// synchronous mode every handler has returned before Publish does, so a
// short-lived CLI process never loses an audit record.
type InMemoryEventBus struct {
	mu     sync.RWMutex
	subs   []subscription
	closed bool

	async    bool
	slots    chan struct{}
	inflight sync.WaitGroup

	logger  *slog.Logger
	metrics *EventBusMetrics
}

func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	log := config.Logger
	if log == nil {
		log = slog.Default()
	}
	size := config.WorkerPoolSize
	if size <= 0 {
		size = 4
	}
	bus := &InMemoryEventBus{
		async:  config.AsyncMode,
		slots:  make(chan struct{}, size),
		logger: log.With("component", "event_bus"),
	}
	if config.EnableMetrics {
		bus.metrics = &EventBusMetrics{}
	}
	return bus
}

func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if eventType == "" {
		return errors.New("event type cannot be empty")
	}
	return b.add(subscription{eventType: eventType, handler: handler})
}

func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.add(subscription{handler: handler})
}

func (b *InMemoryEventBus) add(sub subscription) error {
	if sub.handler == nil {
		return errNilHandler
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}
	b.subs = append(b.subs, sub)
	b.logger.Debug("handler subscribed", "event_type", sub.eventType)
	return nil
}

// Publish hands event to every matching handler. Handler failures are
// logged and counted but never returned: the change that raised the event
// has already been committed.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	var matched []shared.EventHandler
	for _, s := range b.subs {
		if s.eventType == "" || s.eventType == event.EventType() {
			matched = append(matched, s.handler)
		}
	}
	if b.async {
		b.inflight.Add(len(matched))
	}
	b.mu.RUnlock()

	b.metrics.published()

	for _, h := range matched {
		if !b.async {
			b.deliver(event, h)
			continue
		}
		go func() {
			defer b.inflight.Done()
			b.slots <- struct{}{}
			defer func() { <-b.slots }()
			b.deliver(event, h)
		}()
	}
	return nil
}

func (b *InMemoryEventBus) deliver(event shared.Event, h shared.EventHandler) {
	start := time.Now()
	err := invoke(event, h)
	b.metrics.handled(time.Since(start), err)
	if err != nil {
		b.logger.Error("event handler failed", "event_type", event.EventType(), "error", err)
	}
}

func invoke(event shared.Event, h shared.EventHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrHandlerPanic, r)
		}
	}()
	return h(event)
}

// Close stops accepting events and waits for async handlers to finish.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.inflight.Wait()
	b.logger.Debug("event bus closed")
	return nil
}

// Metrics is nil unless EnableMetrics was set.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// EventBusMetrics counts publishes and handler runs. A nil receiver
// records nothing.
type EventBusMetrics struct {
	publishes atomic.Int64
	runs      atomic.Int64
	failures  atomic.Int64
	busy      atomic.Int64
}

func (m *EventBusMetrics) published() {
	if m != nil {
		m.publishes.Add(1)
	}
}

func (m *EventBusMetrics) handled(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.runs.Add(1)
	m.busy.Add(int64(d))
	if err != nil {
		m.failures.Add(1)
	}
}

// EventBusMetricsSnapshot is a copy of the counters.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64
	TotalHandlerExecs      int64
	HandlerFailures        int64
	AverageHandlerDuration time.Duration
}

func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	s := EventBusMetricsSnapshot{
		TotalPublished:    m.publishes.Load(),
		TotalHandlerExecs: m.runs.Load(),
		HandlerFailures:   m.failures.Load(),
	}
	if s.TotalHandlerExecs > 0 {
		s.AverageHandlerDuration = time.Duration(m.busy.Load() / s.TotalHandlerExecs)
	}
	return s
}
