package cache

import (
	"testing"
	"time"

	"lumi/domain/entity"
)

func TestSetAndTypedGet(t *testing.T) {
	s := New(nil)
	tasks := []entity.Task{{ID: "t1", Title: "Buy milk"}}
	s.Set(TaskListKey("u1"), tasks)

	got, ok := Get[[]entity.Task](s, TaskListKey("u1"))
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("unexpected cached value %+v", got)
	}
}

func TestTypedGetMissesOnWrongType(t *testing.T) {
	s := New(nil)
	s.Set(TaskKey("t1"), "not a task")

	if _, ok := Get[*entity.Task](s, TaskKey("t1")); ok {
		t.Error("wrong-typed entry should count as a miss")
	}
}

func TestGetMissesOnAbsentKey(t *testing.T) {
	s := New(nil)
	if _, ok := Get[[]entity.Task](s, TaskListKey("nobody")); ok {
		t.Error("expected a miss for an absent key")
	}
}

func TestInvalidate(t *testing.T) {
	s := New(nil)
	s.Set(TaskListKey("u1"), []entity.Task{})
	s.Set(TaskKey("t1"), &entity.Task{ID: "t1"})

	s.Invalidate(TaskListKey("u1"), TaskKey("t1"))

	if _, ok := s.Get(TaskListKey("u1")); ok {
		t.Error("list entry should be gone")
	}
	if _, ok := s.Get(TaskKey("t1")); ok {
		t.Error("entity entry should be gone")
	}

	// Invalidating again is harmless.
	s.Invalidate(TaskListKey("u1"))
}

func TestFlush(t *testing.T) {
	s := New(nil)
	s.Set(TaskListKey("u1"), []entity.Task{})
	s.Set(ProfileKey("u1"), &entity.UserProfile{ID: "u1"})

	s.Flush()

	if _, ok := s.Get(TaskListKey("u1")); ok {
		t.Error("flush should drop every entry")
	}
	if _, ok := s.Get(ProfileKey("u1")); ok {
		t.Error("flush should drop every entry")
	}
}

func TestFreshnessWindowExpires(t *testing.T) {
	s := NewWithTTL(20*time.Millisecond, time.Minute, nil)
	s.Set(TaskKey("t1"), &entity.Task{ID: "t1"})

	if _, ok := s.Get(TaskKey("t1")); !ok {
		t.Fatal("entry should be fresh immediately after set")
	}

	time.Sleep(40 * time.Millisecond)
	if _, ok := s.Get(TaskKey("t1")); ok {
		t.Error("entry should expire after the freshness window")
	}
}

func TestKeyBuildersAreScoped(t *testing.T) {
	if TaskListKey("u1") == TaskListKey("u2") {
		t.Error("list keys must differ per user")
	}
	if TaskKey("x") == ProjectKey("x") {
		t.Error("task and project keys must not collide")
	}
	if TaskListKey("u1") == ProjectListKey("u1") {
		t.Error("task and project list keys must not collide")
	}
}
