// Package notify broadcasts payload-free change signals within a process.
package notify

import (
	"sync"

	"github.com/fwojciec/drip"
)

// Hub fans a change signal out to subscribers. Each subscriber has a buffer
// of one, so bursts of notifications coalesce and Notify never blocks.
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// Interface compliance check.
var _ drip.Notifier = (*Hub)(nil)

// NewHub returns a Hub with no subscribers.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan struct{}]struct{})}
}

// Subscribe returns a channel that receives a value after one or more
// notifications, and a function that unsubscribes and closes it.
func (h *Hub) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Notify signals every subscriber.
func (h *Hub) Notify() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
