package events

import "sync"

// Bus fans events out to subscribers.
type Bus[T any] struct {
	name string

	mu     sync.Mutex
	subs   map[uint64]chan Event[T]
	nextID uint64
	closed bool
}

// NewBus creates a bus; name labels its metrics.
func NewBus[T any](name string) *Bus[T] {
	return &Bus[T]{name: name, subs: make(map[uint64]chan Event[T])}
}

// Subscribe returns a channel of events and a cancel func that closes it.
// The channel is also closed when the bus is closed.
func (b *Bus[T]) Subscribe() (<-chan Event[T], func()) {
	ch := make(chan Event[T], 1)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	Subscribers.WithLabelValues(b.name).Inc()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
				Subscribers.WithLabelValues(b.name).Dec()
			}
		})
	}
}

// Publish delivers e to every subscriber without blocking.
func (b *Bus[T]) Publish(e Event[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	Published.WithLabelValues(b.name, e.Type).Inc()

	for _, ch := range b.subs {
		select {
		case ch <- e:
			continue
		default:
		}
		// Buffer full: drop the stale event, then deliver. Publishers are
		// serialised by mu so the second send cannot block.
		select {
		case <-ch:
			Superseded.WithLabelValues(b.name).Inc()
		default:
		}
		select {
		case ch <- e:
		default:
		}
	}
}

// Close closes every subscription. Later publishes are ignored.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	// Buses can share a name, so only this bus's subscribers are removed.
	Subscribers.WithLabelValues(b.name).Sub(float64(len(b.subs)))
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
