// Package hub is the broadcast hub: a bounded, non-blocking
// multi-producer/multi-consumer fan-out of enriched flashblock
// payloads to dashboard WebSocket subscribers, mirroring
// tokio::sync::broadcast's drop-the-slow-subscriber semantics.
package hub

import "sync"

// Capacity is the per-subscriber buffer depth. A subscriber whose
// buffer is full when Publish fires is dropped rather than blocking
// the publisher — slow dashboard clients never back-pressure the
// ingestion hot path.
const Capacity = 256

// Hub fans out string payloads to any number of subscribers.
type Hub struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[chan string]struct{})}
}

// Subscribe registers a new subscriber and returns its channel.
// Callers must eventually call Unsubscribe with the same channel.
func (h *Hub) Subscribe() chan string {
	ch := make(chan string, Capacity)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a subscriber channel.
func (h *Hub) Unsubscribe(ch chan string) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

// Publish sends payload to every current subscriber without blocking.
// A subscriber whose buffer is full is dropped on the spot — its
// channel is closed and removed, the same way a lagging
// tokio::sync::broadcast receiver gets a lag error and must
// resubscribe, rather than silently falling behind forever.
func (h *Hub) Publish(payload string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- payload:
		default:
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Subscribers returns the current subscriber count, for diagnostics.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
