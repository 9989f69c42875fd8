// Package cache is the client-side read cache. Entries are fresh for five
// minutes and evicted after ten minutes of inactivity; writers invalidate
// list entries and seed single-entity entries so readers see an update
// before the next list refetch.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultFreshness is how long an entry serves reads without a refetch
	DefaultFreshness = 5 * time.Minute

	// DefaultEviction is how often expired entries are garbage-collected
	DefaultEviction = 10 * time.Minute
)

// Key builders for the cached collections. List entries are scoped per
// user; single-entity entries per id.

func TaskListKey(userID string) string    { return "tasks:list:" + userID }
func TaskKey(id string) string            { return "tasks:id:" + id }
func ProjectListKey(userID string) string { return "projects:list:" + userID }
func ProjectKey(id string) string         { return "projects:id:" + id }
func ProfileKey(userID string) string     { return "profile:" + userID }

// Store is a process-wide cache instance shared by the data access services
// and the realtime bridge.
type Store struct {
	c      *gocache.Cache
	logger *zap.Logger
}

// New creates a store with the default staleness window.
func New(logger *zap.Logger) *Store {
	return NewWithTTL(DefaultFreshness, DefaultEviction, logger)
}

// NewWithTTL creates a store with explicit freshness and eviction windows.
func NewWithTTL(freshness, eviction time.Duration, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		c:      gocache.New(freshness, eviction),
		logger: logger,
	}
}

// Set stores a value under key with the default freshness.
func (s *Store) Set(key string, value any) {
	s.c.SetDefault(key, value)
}

// Invalidate drops the given keys. Dropping an absent key is a no-op, so
// double invalidation (realtime feed plus cross-context echo) is harmless.
func (s *Store) Invalidate(keys ...string) {
	for _, key := range keys {
		s.c.Delete(key)
	}
	s.logger.Debug("cache invalidated", zap.Strings("keys", keys))
}

// Get returns the raw cached value under key if still fresh.
func (s *Store) Get(key string) (any, bool) {
	return s.c.Get(key)
}

// Flush drops everything; used on sign-out.
func (s *Store) Flush() {
	s.c.Flush()
}

// Get returns the value under key typed as T. A fresh entry of the wrong
// type counts as a miss.
func Get[T any](s *Store, key string) (T, bool) {
	var zero T
	v, ok := s.c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
