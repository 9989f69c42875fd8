// Package broadcast carries change notifications between same-process
// contexts, the way the browser app relayed them between tabs on a named
// broadcast channel. Every message is tagged with its origin so a context
// never processes its own broadcasts.
package broadcast

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MessageType labels which collection a message is about
type MessageType string

const (
	TaskUpdate    MessageType = "TASK_UPDATE"
	ProjectUpdate MessageType = "PROJECT_UPDATE"
)

// Source marks where a message originated: a local mutation or a relayed
// backing-service change-feed event.
type Source string

const (
	SourceLocal    Source = "local"
	SourceSupabase Source = "supabase"
)

// Message is one broadcast payload
type Message struct {
	Type      MessageType `json:"type"`
	Data      any         `json:"data"`
	Source    Source      `json:"source"`
	Origin    string      `json:"origin"`
	Timestamp time.Time   `json:"timestamp"`
}

// Subscriber is one attached context on the channel. Messages published by
// other subscribers arrive on C; a subscriber never receives its own.
type Subscriber struct {
	id  string
	ch  chan Message
	hub *Hub
}

// C returns the subscriber's receive channel. It is closed on detach.
func (s *Subscriber) C() <-chan Message {
	return s.ch
}

// ID returns the subscriber's origin marker.
func (s *Subscriber) ID() string {
	return s.id
}

// Publish tags msg with the subscriber's origin and a timestamp, then
// delivers it to every other subscriber on the hub.
func (s *Subscriber) Publish(msg Message) {
	msg.Origin = s.id
	msg.Timestamp = time.Now()
	s.hub.publish(msg)
}

// Close detaches the subscriber from the hub.
func (s *Subscriber) Close() {
	s.hub.detach(s)
}

// Hub is a named in-process broadcast channel.
type Hub struct {
	name   string
	logger *zap.Logger

	mu     sync.RWMutex
	subs   map[string]*Subscriber
	closed bool
}

// NewHub creates a hub for the given channel name.
func NewHub(name string, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		name:   name,
		logger: logger,
		subs:   make(map[string]*Subscriber),
	}
}

// Attach registers a new subscriber with the given receive buffer.
func (h *Hub) Attach(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = 16
	}
	s := &Subscriber{
		id:  uuid.New().String(),
		ch:  make(chan Message, buffer),
		hub: h,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(s.ch)
		return s
	}
	h.subs[s.id] = s
	h.logger.Debug("subscriber attached",
		zap.String("channel", h.name),
		zap.String("id", s.id),
		zap.Int("total", len(h.subs)),
	)
	return s
}

func (h *Hub) detach(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.id]; ok {
		delete(h.subs, s.id)
		close(s.ch)
	}
}

func (h *Hub) publish(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, s := range h.subs {
		if id == msg.Origin {
			continue
		}
		select {
		case s.ch <- msg:
		default:
			// Receiver is not draining; drop rather than block the sender.
			h.logger.Warn("broadcast buffer full, message dropped",
				zap.String("channel", h.name),
				zap.String("subscriber", id),
				zap.String("type", string(msg.Type)),
			)
		}
	}
}

// Close detaches every subscriber and refuses further attachments.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		delete(h.subs, id)
		close(s.ch)
	}
}
