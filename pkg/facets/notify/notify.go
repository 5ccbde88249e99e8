// Package notify implements the notification facet: in-process topic
// pub/sub so collaborators can observe events about the entity the facet
// is attached to.
package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the notify facet registers under.
const FacetType facet.Type = "notify"

// DefaultBuffer is the per-subscriber channel capacity when New is given
// a non-positive buffer size.
const DefaultBuffer = 16

// ErrClosed indicates the facet has been detached and no longer accepts
// subscriptions or events.
var ErrClosed = errors.New("notifier closed")

// Event is a published notification.
type Event struct {
	Topic   string
	Payload any
	Time    time.Time
}

type subscriber struct {
	id int
	ch chan Event
}

// Notifier fans events out to topic subscribers. Delivery is best-effort:
// a subscriber that falls behind its buffer drops events rather than
// blocking the publisher.
type Notifier struct {
	mu     sync.Mutex
	subs   map[string][]subscriber
	nextID int
	buffer int
	closed bool
}

// New creates a notifier with the given per-subscriber buffer size.
func New(buffer int) *Notifier {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Notifier{
		subs:   make(map[string][]subscriber),
		buffer: buffer,
	}
}

// FacetType implements facet.Facet.
func (n *Notifier) FacetType() facet.Type {
	return FacetType
}

// OnDetached implements facet.DetachObserver: every subscriber channel is
// closed so receivers unblock, and further use fails with ErrClosed.
func (n *Notifier) OnDetached(*facet.Container) {
	n.Close()
}

// Subscribe registers a receiver for topic. The returned cancel func
// removes the subscription and closes the channel; it is safe to call
// more than once.
func (n *Notifier) Subscribe(topic string) (<-chan Event, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return nil, nil, ErrClosed
	}

	sub := subscriber{id: n.nextID, ch: make(chan Event, n.buffer)}
	n.nextID++
	n.subs[topic] = append(n.subs[topic], sub)

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		entries := n.subs[topic]
		for i, existing := range entries {
			if existing.id == sub.id {
				n.subs[topic] = append(entries[:i], entries[i+1:]...)
				close(existing.ch)
				return
			}
		}
	}
	return sub.ch, cancel, nil
}

// Publish delivers an event to every subscriber of topic and returns the
// number of subscribers that received it.
func (n *Notifier) Publish(topic string, payload any) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return 0, ErrClosed
	}

	event := Event{Topic: topic, Payload: payload, Time: time.Now()}
	delivered := 0
	for _, sub := range n.subs[topic] {
		select {
		case sub.ch <- event:
			delivered++
		default:
			// Slow subscriber: drop instead of blocking the publisher.
		}
	}
	return delivered, nil
}

// Close shuts the notifier down, closing every subscriber channel.
// Closing twice is a no-op.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return
	}
	n.closed = true
	for topic, entries := range n.subs {
		for _, sub := range entries {
			close(sub.ch)
		}
		delete(n.subs, topic)
	}
}

// Operation implements facet.Invoker, exposing notify for dynamic
// publication.
func (n *Notifier) Operation(name string) (facet.Operation, bool) {
	if name != "notify" {
		return nil, false
	}
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("notify expects topic and payload, got %d arguments", len(args))
		}
		topic, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("topic must be a string, got %T", args[0])
		}
		return n.Publish(topic, args[1])
	}, true
}

// From returns the notify facet attached to c, if present.
func From(c *facet.Container) (*Notifier, bool) {
	return facet.Lookup[*Notifier](c, FacetType)
}
