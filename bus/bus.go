package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/onnwee/overlayd/telemetry"
)

var (
	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("bus closed")
	// ErrSubscriberExists is returned when a subscriber id is already registered.
	ErrSubscriberExists = errors.New("subscriber id already registered")
)

// Event is a named, JSON-serializable payload delivered to subscribers.
type Event struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// defaultBuffer is the per-subscriber channel capacity. A subscriber that
// falls further behind than this starts losing events.
const defaultBuffer = 64

// Subscriber is a single connected consumer. Events arrive on Events();
// the channel is closed when the subscriber is unregistered or the bus shuts
// down.
type Subscriber struct {
	ID string

	ch      chan Event
	sent    atomic.Uint64
	dropped atomic.Uint64
	closed  atomic.Bool
}

// Events returns the receive channel for this subscriber.
func (s *Subscriber) Events() <-chan Event { return s.ch }

// Stats reports delivered and dropped event counts for this subscriber.
func (s *Subscriber) Stats() (sent, dropped uint64) {
	return s.sent.Load(), s.dropped.Load()
}

// Bus fans events out to all registered subscribers.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool
}

// New returns an empty bus ready for subscribers.
func New() *Bus {
	return &Bus{subs: make(map[string]*Subscriber)}
}

// Subscribe registers a new subscriber under id with the default buffer.
func (b *Bus) Subscribe(id string) (*Subscriber, error) {
	return b.SubscribeBuffered(id, defaultBuffer)
}

// SubscribeBuffered registers a new subscriber with an explicit buffer size.
func (b *Bus) SubscribeBuffered(id string, buffer int) (*Subscriber, error) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBusClosed
	}
	if _, ok := b.subs[id]; ok {
		return nil, ErrSubscriberExists
	}
	sub := &Subscriber{ID: id, ch: make(chan Event, buffer)}
	b.subs[id] = sub
	telemetry.SetSubscriberCount(len(b.subs))
	return sub, nil
}

// Unsubscribe removes a subscriber and closes its channel. Unknown ids are a
// no-op.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	telemetry.SetSubscriberCount(len(b.subs))
	if sub.closed.CompareAndSwap(false, true) {
		close(sub.ch)
	}
}

// Publish delivers an event to every subscriber. Slow subscribers with full
// buffers miss the event; publishers never block.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	telemetry.CountEventPublished(topic)
	for _, sub := range b.subs {
		b.deliver(sub, Event{Topic: topic, Payload: payload})
	}
}

// PublishTo delivers an event to a single subscriber, used to replay current
// state snapshots to a newly connected client. Unknown ids are a no-op.
func (b *Bus) PublishTo(id, topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	b.deliver(sub, Event{Topic: topic, Payload: payload})
}

// PublishExcept delivers an event to every subscriber except the named one.
// Used for relay topics where the originator must not receive its own data
// back (avatar rig relay).
func (b *Bus) PublishExcept(exceptID, topic string, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	telemetry.CountEventPublished(topic)
	for id, sub := range b.subs {
		if id == exceptID {
			continue
		}
		b.deliver(sub, Event{Topic: topic, Payload: payload})
	}
}

func (b *Bus) deliver(sub *Subscriber, ev Event) {
	select {
	case sub.ch <- ev:
		sub.sent.Add(1)
	default:
		sub.dropped.Add(1)
		telemetry.CountEventDropped(ev.Topic)
	}
}

// SubscriberCount returns the number of currently connected subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts down the bus and closes all subscriber channels. Publishes
// after Close are silently ignored.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		if sub.closed.CompareAndSwap(false, true) {
			close(sub.ch)
		}
	}
	telemetry.SetSubscriberCount(0)
}
