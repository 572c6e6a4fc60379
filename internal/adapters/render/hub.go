// Package render fans published board views out to live renderers such as
// SSE streams and the terminal UI.
package render

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/recap/internal/domain/model"
)

// Hub is the board's Renderer. It keeps the latest view and pings every
// subscriber; subscribers re-read Latest on each ping, so missed pings only
// coalesce updates.
type Hub struct {
	mu        sync.RWMutex
	listeners map[chan struct{}]struct{}
	latest    atomic.Pointer[model.View]
}

// NewHub creates a hub holding an empty view.
func NewHub() *Hub {
	h := &Hub{listeners: make(map[chan struct{}]struct{})}
	h.latest.Store(&model.View{TotalDisplay: "+0.00"})
	return h
}

// Render stores v and notifies subscribers without blocking.
func (h *Hub) Render(_ context.Context, v model.View) {
	h.latest.Store(&v)
	h.Broadcast()
}

// Latest returns the most recently rendered view.
func (h *Hub) Latest() model.View {
	return *h.latest.Load()
}

// Subscribe returns a channel that receives a ping after each render.
// The caller must call Unsubscribe when done.
func (h *Hub) Subscribe() chan struct{} {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.listeners[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel. Unknown channels are ignored.
func (h *Hub) Unsubscribe(ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.listeners[ch]; !ok {
		return
	}
	delete(h.listeners, ch)
	close(ch)
}

// Broadcast sends a ping to all listeners, skipping those with a pending ping.
func (h *Hub) Broadcast() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.listeners {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers returns the number of listeners.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}
