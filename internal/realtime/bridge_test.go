package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumi/backend"
	"lumi/domain/entity"
	"lumi/internal/broadcast"
	"lumi/internal/cache"
)

// stubFeed hands the registered handler back to the test so events can be
// injected without a socket.
type stubFeed struct {
	mu       sync.Mutex
	handlers map[string]func(entity.ChangeEvent)
	closed   map[string]int
}

func newStubFeed() *stubFeed {
	return &stubFeed{
		handlers: make(map[string]func(entity.ChangeEvent)),
		closed:   make(map[string]int),
	}
}

type stubSubscription struct {
	feed *stubFeed
	key  string
}

func (s *stubSubscription) Close() error {
	s.feed.mu.Lock()
	defer s.feed.mu.Unlock()
	s.feed.closed[s.key]++
	return nil
}

func (f *stubFeed) Subscribe(ctx context.Context, table, userID string, handler func(entity.ChangeEvent)) (backend.Subscription, error) {
	key := table + ":" + userID
	f.mu.Lock()
	f.handlers[key] = handler
	f.mu.Unlock()
	return &stubSubscription{feed: f, key: key}, nil
}

func (f *stubFeed) push(table, userID string, ev entity.ChangeEvent) {
	f.mu.Lock()
	h := f.handlers[table+":"+userID]
	f.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (f *stubFeed) closeCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed[key]
}

func taskInsert(id string) entity.ChangeEvent {
	return entity.ChangeEvent{
		Kind:   entity.EventInsert,
		Table:  "tasks",
		Record: json.RawMessage(`{"id":"` + id + `"}`),
	}
}

func TestFeedEventInvalidatesCachesAndNotifies(t *testing.T) {
	feed := newStubFeed()
	store := cache.New(nil)
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	b := New(feed, store, hub, nil)
	defer b.Close()

	store.Set(cache.TaskListKey("u1"), []entity.Task{})
	store.Set(cache.TaskKey("t1"), &entity.Task{ID: "t1"})

	var got []entity.ChangeEvent
	key, err := b.SubscribeToTasks(context.Background(), "u1", func(ev entity.ChangeEvent) {
		got = append(got, ev)
	})
	assert.NoError(t, err)
	assert.Equal(t, "tasks:u1", key)

	feed.push("tasks", "u1", taskInsert("t1"))

	if _, ok := store.Get(cache.TaskListKey("u1")); ok {
		t.Error("task list entry should be invalidated")
	}
	if _, ok := store.Get(cache.TaskKey("t1")); ok {
		t.Error("task by-id entry should be invalidated")
	}
	assert.Len(t, got, 1)
	assert.Equal(t, entity.EventInsert, got[0].Kind)
}

func TestFeedEventIsRebroadcast(t *testing.T) {
	feed := newStubFeed()
	store := cache.New(nil)
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	other := hub.Attach(4)
	b := New(feed, store, hub, nil)
	defer b.Close()

	_, err := b.SubscribeToTasks(context.Background(), "u1", nil)
	assert.NoError(t, err)

	feed.push("tasks", "u1", taskInsert("t1"))

	select {
	case msg := <-other.C():
		assert.Equal(t, broadcast.TaskUpdate, msg.Type)
		assert.Equal(t, broadcast.SourceSupabase, msg.Source)
		p, ok := msg.Data.(Payload)
		assert.True(t, ok)
		assert.Equal(t, "u1", p.UserID)
	case <-time.After(time.Second):
		t.Fatal("relayed message never reached the hub")
	}
}

func TestRelayedMessageInvalidatesCache(t *testing.T) {
	feed := newStubFeed()
	store := cache.New(nil)
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	b := New(feed, store, hub, nil)
	defer b.Close()

	other := hub.Attach(4)
	store.Set(cache.TaskListKey("u1"), []entity.Task{})

	other.Publish(broadcast.Message{
		Type:   broadcast.TaskUpdate,
		Source: broadcast.SourceSupabase,
		Data:   Payload{UserID: "u1", Table: "tasks"},
	})

	assert.Eventually(t, func() bool {
		_, ok := store.Get(cache.TaskListKey("u1"))
		return !ok
	}, time.Second, 10*time.Millisecond, "relayed service event should invalidate the list")
}

func TestLocallySourcedMessagesAreIgnored(t *testing.T) {
	feed := newStubFeed()
	store := cache.New(nil)
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	b := New(feed, store, hub, nil)
	defer b.Close()

	other := hub.Attach(4)
	store.Set(cache.TaskListKey("u1"), []entity.Task{})

	other.Publish(broadcast.Message{
		Type:   broadcast.TaskUpdate,
		Source: broadcast.SourceLocal,
		Data:   Payload{UserID: "u1", Table: "tasks"},
	})

	time.Sleep(100 * time.Millisecond)
	if _, ok := store.Get(cache.TaskListKey("u1")); !ok {
		t.Error("locally sourced messages must not invalidate the cache")
	}
}

func TestResubscribeReplacesPrevious(t *testing.T) {
	feed := newStubFeed()
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	b := New(feed, cache.New(nil), hub, nil)
	defer b.Close()

	_, err := b.SubscribeToTasks(context.Background(), "u1", nil)
	assert.NoError(t, err)
	_, err = b.SubscribeToTasks(context.Background(), "u1", nil)
	assert.NoError(t, err)

	assert.Equal(t, 1, feed.closeCount("tasks:u1"), "replacing a subscription closes the previous one")
}

func TestUnsubscribe(t *testing.T) {
	feed := newStubFeed()
	hub := broadcast.NewHub("lumi-sync", nil)
	defer hub.Close()

	b := New(feed, cache.New(nil), hub, nil)
	defer b.Close()

	key, err := b.SubscribeToTasks(context.Background(), "u1", nil)
	assert.NoError(t, err)

	b.Unsubscribe(key)
	assert.Equal(t, 1, feed.closeCount(key))

	// Unknown keys are a no-op.
	b.Unsubscribe("nope")
}

func TestCloseTearsDownEverything(t *testing.T) {
	feed := newStubFeed()
	hub := broadcast.NewHub("lumi-sync", nil)

	b := New(feed, cache.New(nil), hub, nil)
	_, err := b.SubscribeToTasks(context.Background(), "u1", nil)
	assert.NoError(t, err)
	_, err = b.SubscribeToProjects(context.Background(), "u1", nil)
	assert.NoError(t, err)

	b.Close()
	assert.Equal(t, 1, feed.closeCount("tasks:u1"))
	assert.Equal(t, 1, feed.closeCount("projects:u1"))

	// Close is idempotent.
	b.Close()
	hub.Close()
}
