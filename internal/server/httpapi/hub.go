// Package httpapi exposes the server's HTTP surface: chi routing, JWT
// bearer auth, the JSON handlers and the websocket change feed.
package httpapi

import (
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/remote"
)

// feedBuffer is the per-subscriber channel capacity; a subscriber that
// falls further behind loses its oldest batches.
const feedBuffer = 8

// Hub fans committed record batches out to the owner's feed subscribers.
// Each device holds one subscription for the lifetime of its websocket.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan []remote.Record]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[string]map[chan []remote.Record]struct{}{}}
}

// Subscribe registers a feed channel for userID. The returned cancel
// function removes the subscription and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe(userID string) (<-chan []remote.Record, func()) {
	ch := make(chan []remote.Record, feedBuffer)

	h.mu.Lock()
	set, ok := h.subs[userID]
	if !ok {
		set = map[chan []remote.Record]struct{}{}
		h.subs[userID] = set
	}
	set[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[userID], ch)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}

	return ch, cancel
}

func (h *Hub) subscriberCount(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Broadcast delivers batch to every subscriber of userID. When a
// subscriber's buffer is full its oldest batch is dropped to make room, so
// one stuck connection cannot stall the others.
func (h *Hub) Broadcast(userID string, batch []remote.Record) {
	if len(batch) == 0 {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs[userID] {
		for {
			select {
			case ch <- batch:
			default:
				select {
				case <-ch:
				default:
				}
				continue
			}
			break
		}
	}
}
