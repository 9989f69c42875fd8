// Package realtime keeps the client-side cache coherent with the backing
// service's change feed and relays feed events to other same-process
// contexts over the broadcast hub.
package realtime

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"lumi/backend"
	"lumi/domain/entity"
	"lumi/internal/broadcast"
	"lumi/internal/cache"
)

// Payload is the broadcast message body for relayed change events.
type Payload struct {
	UserID string             `json:"user_id"`
	Table  string             `json:"table"`
	Event  entity.ChangeEvent `json:"event"`
}

// Bridge owns the change-feed subscriptions of one context. It is also a
// broadcast subscriber: relayed events from other contexts invalidate this
// context's cache, while self-authored messages are filtered out by the hub.
type Bridge struct {
	feed   backend.Feed
	cache  *cache.Store
	sub    *broadcast.Subscriber
	logger *zap.Logger

	mu     sync.Mutex
	subs   map[string]backend.Subscription
	closed bool
}

// New creates a bridge attached to the given broadcast hub and starts
// consuming relayed messages.
func New(feed backend.Feed, c *cache.Store, hub *broadcast.Hub, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		feed:   feed,
		cache:  c,
		sub:    hub.Attach(64),
		logger: logger,
		subs:   make(map[string]backend.Subscription),
	}
	go b.consume()
	return b
}

// consume applies cache invalidation for messages relayed from other
// contexts. Only service-sourced messages are processed; a locally tagged
// message from another context means that context already talked to the
// service and the feed will tell us about it.
func (b *Bridge) consume() {
	for msg := range b.sub.C() {
		if msg.Source != broadcast.SourceSupabase {
			continue
		}
		p, ok := msg.Data.(Payload)
		if !ok {
			continue
		}
		switch msg.Type {
		case broadcast.TaskUpdate:
			b.cache.Invalidate(cache.TaskListKey(p.UserID))
		case broadcast.ProjectUpdate:
			b.cache.Invalidate(cache.ProjectListKey(p.UserID))
		}
	}
}

// SubscribeToTasks opens a change-feed subscription for the user's tasks.
// Every insert/update/delete invalidates the task caches, is rebroadcast to
// other contexts tagged with the service source marker, and is handed to
// cb. The returned key tears down exactly this subscription.
func (b *Bridge) SubscribeToTasks(ctx context.Context, userID string, cb func(entity.ChangeEvent)) (string, error) {
	return b.subscribe(ctx, "tasks", userID, broadcast.TaskUpdate, cb)
}

// SubscribeToProjects is SubscribeToTasks for the projects collection.
func (b *Bridge) SubscribeToProjects(ctx context.Context, userID string, cb func(entity.ChangeEvent)) (string, error) {
	return b.subscribe(ctx, "projects", userID, broadcast.ProjectUpdate, cb)
}

func (b *Bridge) subscribe(ctx context.Context, table, userID string, msgType broadcast.MessageType, cb func(entity.ChangeEvent)) (string, error) {
	key := table + ":" + userID

	handler := func(ev entity.ChangeEvent) {
		b.invalidate(table, userID, ev)
		b.sub.Publish(broadcast.Message{
			Type:   msgType,
			Source: broadcast.SourceSupabase,
			Data:   Payload{UserID: userID, Table: table, Event: ev},
		})
		if cb != nil {
			cb(ev)
		}
	}

	sub, err := b.feed.Subscribe(ctx, table, userID, handler)
	if err != nil {
		return "", err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		_ = sub.Close()
		return "", nil
	}
	if prev, ok := b.subs[key]; ok {
		_ = prev.Close()
	}
	b.subs[key] = sub
	b.logger.Info("change feed subscribed",
		zap.String("table", table),
		zap.String("user", userID),
	)
	return key, nil
}

func (b *Bridge) invalidate(table, userID string, ev entity.ChangeEvent) {
	switch table {
	case "tasks":
		keys := []string{cache.TaskListKey(userID)}
		if t, err := ev.Task(); err == nil && t != nil {
			keys = append(keys, cache.TaskKey(t.ID))
		}
		b.cache.Invalidate(keys...)
	case "projects":
		b.cache.Invalidate(cache.ProjectListKey(userID))
	}
}

// Unsubscribe tears down exactly one subscription by its key. Unknown keys
// are a no-op.
func (b *Bridge) Unsubscribe(key string) {
	b.mu.Lock()
	sub, ok := b.subs[key]
	if ok {
		delete(b.subs, key)
	}
	b.mu.Unlock()

	if ok {
		_ = sub.Close()
		b.logger.Info("change feed unsubscribed", zap.String("key", key))
	}
}

// Close tears down every subscription and detaches from the broadcast hub.
func (b *Bridge) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]backend.Subscription)
	b.mu.Unlock()

	for _, sub := range subs {
		_ = sub.Close()
	}
	b.sub.Close()
}
