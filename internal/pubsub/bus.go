// Package pubsub provides a small typed publish/subscribe bus used to fan
// out entity lifecycle events to UI layers and other services.
package pubsub

import "sync"

// Bus delivers values of type T to all current subscribers. Publishing never
// blocks: a subscriber that has fallen behind loses the oldest undelivered
// events rather than stalling the mutating call.
type Bus[T any] struct {
	mu   sync.Mutex
	subs map[chan T]struct{}
	size int
}

// NewBus returns a Bus whose subscriber channels buffer up to size events.
func NewBus[T any](size int) *Bus[T] {
	if size < 1 {
		size = 1
	}
	return &Bus[T]{subs: make(map[chan T]struct{}), size: size}
}

// Subscribe registers a new subscriber and returns its channel together with
// a cancel function. The channel is closed on cancel.
func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, b.size)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers v to every subscriber. For a full subscriber buffer the
// oldest event is dropped to make room.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for ch := range b.subs {
		for {
			select {
			case ch <- v:
			default:
				// drop the oldest and retry once
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

// Len returns the current subscriber count.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
