package testutil

import (
	"sync"

	"orbit-go/internal/orbit"
)

var allEvents = []string{
	orbit.EventNetwork,
	orbit.EventChannelsUpdated,
	orbit.EventMessage,
	orbit.EventDBLoad,
	orbit.EventDBLoaded,
	orbit.EventError,
}

// EventRecorder captures every event published on a bus.
type EventRecorder struct {
	mu     sync.Mutex
	events []orbit.Event
}

// RecordEvents subscribes a new recorder to every event of bus. The
// subscriptions are removed when the test ends.
func RecordEvents(t interface{ Cleanup(func()) }, bus *orbit.EventBus) *EventRecorder {
	r := &EventRecorder{}
	for _, name := range allEvents {
		unsubscribe := bus.Subscribe(name, r.record)
		t.Cleanup(unsubscribe)
	}
	return r
}

func (r *EventRecorder) record(e orbit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns the recorded events in publish order.
func (r *EventRecorder) Events() []orbit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]orbit.Event(nil), r.events...)
}

// Names returns the names of the recorded events in publish order.
func (r *EventRecorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Named returns the recorded events called name.
func (r *EventRecorder) Named(name string) []orbit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []orbit.Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Count returns how many events called name were recorded.
func (r *EventRecorder) Count(name string) int {
	return len(r.Named(name))
}

// Reset forgets everything recorded so far.
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
