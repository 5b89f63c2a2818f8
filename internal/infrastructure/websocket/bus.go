package websocket

import "sync"

// Handler receives every envelope published under a subscribed event name.
type Handler func(Envelope)

// Bus is the publish/subscribe fan-out for realtime events. Each event name
// may have zero or more subscribers; unknown event names are still delivered
// so subscribers can opt in defensively.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Handler
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]Handler)}
}

// Subscribe registers a handler for an event name and returns an unsubscribe
// function. Unsubscribing twice is harmless.
func (b *Bus) Subscribe(event string, handler Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[event] == nil {
		b.subs[event] = make(map[int]Handler)
	}
	id := b.nextID
	b.nextID++
	b.subs[event][id] = handler

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[event], id)
	}
}

// Publish delivers the envelope to every subscriber of its event name.
// Handlers run synchronously on the caller's goroutine.
func (b *Bus) Publish(env Envelope) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[env.Event]))
	for _, h := range b.subs[env.Event] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(env)
	}
}
