package pubsub

import (
	"context"
	"sync"
)

// Broker delivers events of type E to subscribers. It is safe for
// concurrent use.
type Broker[E any] struct {
	mu     sync.Mutex
	size   int
	subs   map[chan E]struct{}
	closed bool
}

// NewBroker returns a broker whose subscriber channels buffer size events.
func NewBroker[E any](size int) *Broker[E] {
	if size < 0 {
		size = 0
	}
	return &Broker[E]{size: size, subs: make(map[chan E]struct{})}
}

// Subscribe returns a channel that receives every event published after the
// call. The channel is closed when ctx is done or the broker is closed.
// Subscribing to a closed broker returns a closed channel.
func (b *Broker[E]) Subscribe(ctx context.Context) <-chan E {
	ch := make(chan E, b.size)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	context.AfterFunc(ctx, func() { b.unsubscribe(ch) })
	return ch
}

func (b *Broker[E]) unsubscribe(ch chan E) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Publish delivers events in order and reports how many deliveries were
// dropped because a subscriber's buffer was full.
func (b *Broker[E]) Publish(events ...E) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ev := range events {
		for ch := range b.subs {
			select {
			case ch <- ev:
			default:
				dropped++
			}
		}
	}
	return dropped
}

// Subscribers returns the number of open subscriptions.
func (b *Broker[E]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Close closes every subscriber channel. Later publishes are no-ops and
// later subscriptions receive a closed channel. Close is idempotent.
func (b *Broker[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
