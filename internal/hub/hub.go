// Package hub provides the in-process publish/subscribe bus that fans a
// room change out to every live stream connection.
package hub

import (
	"sync"
)

// BufferSize is the per-subscriber event buffer capacity.
const BufferSize = 1024

// Message is a chat message as broadcast to stream subscribers.
type Message struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	RoomID     string `json:"room_id"`
	CreateDate int64  `json:"create_date"`
}

// RoomChange is the event published once per successfully persisted send.
// Events are delivered by value; subscribers never share message state.
type RoomChange struct {
	Message Message
}

// Hub is a bounded multi-subscriber broadcast bus of RoomChange events.
// Publish never blocks: a subscriber whose buffer is full loses its
// oldest unread events instead of stalling the publisher.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

// Subscription is one reader cursor over the hub, starting at "now".
type Subscription struct {
	hub    *Hub
	events chan RoomChange
	lagged int
	once   sync.Once
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a new independent reader. The caller must Close the
// subscription when the connection ends.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{hub: h, events: make(chan RoomChange, BufferSize)}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(sub.events)
		return sub
	}
	h.subs[sub] = struct{}{}
	return sub
}

// Publish fans the event out to every current subscriber. With no
// subscribers it is a no-op.
func (h *Hub) Publish(change RoomChange) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for sub := range h.subs {
		sub.push(change)
	}
}

// Close terminates every subscription. Subsequent publishes are dropped.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		close(sub.events)
	}
	h.subs = make(map[*Subscription]struct{})
}

// push delivers one event, evicting the oldest buffered event on overflow.
// Called with the hub lock held, so eviction and re-send cannot race with
// another publisher.
func (s *Subscription) push(change RoomChange) {
	select {
	case s.events <- change:
		return
	default:
	}
	select {
	case <-s.events:
		s.lagged++
	default:
	}
	select {
	case s.events <- change:
	default:
	}
}

// Events returns the receive channel. It is closed when the subscription
// or the hub closes.
func (s *Subscription) Events() <-chan RoomChange {
	return s.events
}

// Lagged reports how many events this subscriber has dropped so far.
func (s *Subscription) Lagged() int {
	s.hub.mu.Lock()
	defer s.hub.mu.Unlock()
	return s.lagged
}

// Close removes the subscription from the hub and closes its channel.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		defer s.hub.mu.Unlock()
		if _, ok := s.hub.subs[s]; ok {
			delete(s.hub.subs, s)
			close(s.events)
		}
	})
}
