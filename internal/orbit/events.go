package orbit

import "sync"

// Event names published on the EventBus.
const (
	EventNetwork         = "network"
	EventChannelsUpdated = "channels.updated"
	EventMessage         = "message"
	EventDBLoad          = "db.load"
	EventDBLoaded        = "db.loaded"
	EventError           = "orbit.error"
)

// ChannelInfo describes a joined channel.
type ChannelInfo struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Event is a notification published on the EventBus. Only the fields that
// belong to Name are set:
//
//	network           Session (nil when disconnected)
//	channels.updated  Channels
//	message           Channel, Message
//	db.load           Action, Channel
//	db.loaded         Action, Channel
//	orbit.error       Err
type Event struct {
	Name     string
	Session  Session
	Channels []ChannelInfo
	Channel  string
	Message  Entry
	Action   string
	Err      string
}

// Handler receives published events.
type Handler func(Event)

type subscription struct {
	id int
	fn Handler
}

// EventBus is a synchronous publish/subscribe point. Publish invokes every
// handler subscribed to the event name, in subscription order, before it
// returns. Late subscribers do not see earlier events.
type EventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[string][]subscription
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for events named name. The returned function removes
// the registration; calling it more than once is harmless.
func (b *EventBus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[name]
		for i, s := range subs {
			if s.id == id {
				b.subs[name] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
		if len(b.subs[name]) == 0 {
			delete(b.subs, name)
		}
	}
}

// Publish delivers e to the current subscribers of e.Name. Handlers run on
// the caller's goroutine and may themselves subscribe or publish.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[e.Name]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(e)
	}
}
