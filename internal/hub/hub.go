package hub

import (
	"sync"
)

// Subscriber receives broadcast frames. Push must not block; it returns true
// once the subscriber is closed, after which the hub drops it.
type Subscriber interface {
	Push(data []byte) (closed bool)
}

// Hub fans broadcast frames out to every registered observer. No acks, no
// cross-observer ordering guarantee, no redelivery.
type Hub struct {
	mu   sync.Mutex
	list map[Subscriber]bool
}

func New() *Hub {
	return &Hub{list: make(map[Subscriber]bool)}
}

func (h *Hub) Subscribe(sub Subscriber) {
	h.mu.Lock()
	h.list[sub] = true
	h.mu.Unlock()
}

func (h *Hub) Unsubscribe(sub Subscriber) {
	h.mu.Lock()
	delete(h.list, sub)
	h.mu.Unlock()
}

func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	for sub := range h.list {
		if sub.Push(data) {
			delete(h.list, sub)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.list)
}
