package journal

import (
	"sync"

	"github.com/dlots/foreman/internal/model"
)

// subscriberBufferSize is the channel buffer for each event subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Broker fans lifecycle events out to live subscribers (the SSE endpoint).
// It is safe for concurrent use. After Close, Subscribe returns a closed
// channel so late subscribers do not block forever.
type Broker struct {
	mu     sync.Mutex
	subs   map[int]chan model.Event
	nextID int
	closed bool
}

// NewBroker creates a new event broker.
func NewBroker() *Broker {
	return &Broker{
		subs: make(map[int]chan model.Event),
	}
}

// Subscribe returns a channel that receives lifecycle events and an
// unsubscribe function. If the broker has been closed, the returned channel
// is immediately closed.
func (b *Broker) Subscribe() (<-chan model.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.Event, subscriberBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
		}
	}
}

// Publish sends an event to all subscribers. Events are dropped for
// subscribers whose buffers are full so a slow reader never blocks a
// lifecycle operation.
func (b *Broker) Publish(ev model.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close signals that no more events will be published. All subscriber
// channels are closed and future Subscribe calls return a closed channel.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}
