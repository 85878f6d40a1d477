// Package events is a small observer hub used for cross-component side
// effects, e.g. opening the cart drawer after an item is added.
package events

import "sync"

type CartItemAdded struct {
	LineID    string
	ProductID string
	Quantity  int
	// Merged is true when the add folded into an existing line instead of
	// creating a new one.
	Merged bool
}

type Listener func(event any)

type Hub struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]Listener
}

func NewHub() *Hub {
	return &Hub{listeners: make(map[int]Listener)}
}

// Subscribe registers fn and returns its unsubscribe function. Unsubscribing
// twice is harmless.
func (h *Hub) Subscribe(fn Listener) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	h.listeners[id] = fn

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()

		delete(h.listeners, id)
	}
}

// Publish delivers event to every current listener, synchronously, in
// unspecified order. Listeners registered during delivery do not receive the
// in-flight event.
func (h *Hub) Publish(event any) {
	h.mu.Lock()
	snapshot := make([]Listener, 0, len(h.listeners))

	for _, fn := range h.listeners {
		snapshot = append(snapshot, fn)
	}
	h.mu.Unlock()

	for _, fn := range snapshot {
		fn(event)
	}
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.listeners)
}
