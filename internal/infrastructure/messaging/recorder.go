package messaging

import (
	"sync"

	"github.com/alem-hub/school-records/internal/domain/shared"
)

// Recorder is a shared.EventPublisher that keeps events in memory. Tests
// use it to check which events an operation raised.
type Recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *Recorder) Publish(event shared.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []shared.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]shared.Event(nil), r.events...)
}

// Types lists event types in publish order.
func (r *Recorder) Types() []shared.EventType {
	events := r.Events()
	out := make([]shared.EventType, len(events))
	for i, e := range events {
		out[i] = e.EventType()
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
