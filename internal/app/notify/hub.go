// Package notify fans state changes out to in-process subscribers.
package notify

import "sync"

// Hub delivers values to subscribers synchronously, in no particular order.
// Subscribers run on the publishing goroutine and must not block.
type Hub[T any] struct {
	mu   sync.Mutex
	subs map[int]func(T)
	next int
}

// Subscribe registers fn and returns a func that removes it. Calling the returned func
// more than once is harmless.
func (h *Hub[T]) Subscribe(fn func(T)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs == nil {
		h.subs = make(map[int]func(T))
	}
	id := h.next
	h.next++
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	fns := make([]func(T), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
