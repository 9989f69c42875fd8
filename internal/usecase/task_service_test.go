package usecase

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lumi/backend/supabase"
	"lumi/domain"
	"lumi/domain/entity"
	"lumi/internal/cache"
	"lumi/internal/requests"
	"lumi/internal/testutil"
	"lumi/retry"
	"lumi/task"
)

type testEnv struct {
	backend  *testutil.FakeBackend
	client   *supabase.Client
	cache    *cache.Store
	registry *requests.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	f := testutil.NewFakeBackend()
	t.Cleanup(f.Close)

	client, err := supabase.New(supabase.Config{BaseURL: f.URL(), AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return &testEnv{
		backend:  f,
		client:   client,
		cache:    cache.New(nil),
		registry: requests.NewRegistry(),
	}
}

func (e *testEnv) taskService() *TaskService {
	return NewTaskService(e.client, e.cache, e.registry, retry.DefaultMaxAttempts, nil)
}

func TestTaskCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	created, err := svc.Create(context.Background(), "u1", CreateTaskInput{
		Title:    "Buy milk",
		Priority: entity.PriorityHigh,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, entity.PriorityHigh, created.Priority)
	assert.Len(t, env.backend.Rows("tasks"), 1)
}

func TestTaskCreateSanitizesInput(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	created, err := svc.Create(context.Background(), "u1", CreateTaskInput{
		Title:       "<script>alert(1)</script>Hello",
		Description: `<img src=x onerror="alert(1)">plain`,
	})
	assert.NoError(t, err)
	assert.Equal(t, "Hello", created.Title)
	assert.Equal(t, "plain", created.Description)
}

func TestTaskCreateRejectsEmptyAfterSanitizing(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	_, err := svc.Create(context.Background(), "u1", CreateTaskInput{Title: "<script>alert(1)</script>"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Empty(t, env.backend.Rows("tasks"))
}

func TestTaskCreateValidatesLength(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	_, err := svc.Create(context.Background(), "u1", CreateTaskInput{Title: strings.Repeat("x", 201)})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestTaskListServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "Buy milk"})
	svc := env.taskService()

	first, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, first, 1)
	fetches := env.backend.Requests

	second, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, second, 1)
	assert.Equal(t, fetches, env.backend.Requests, "cached list must not refetch")
}

func TestTaskCreateInvalidatesList(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	_, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)

	_, err = svc.Create(context.Background(), "u1", CreateTaskInput{Title: "Buy milk"})
	assert.NoError(t, err)

	tasks, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, tasks, 1, "list must refetch after a create")
}

func TestTaskUpdateSeedsCache(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "old", "completed": false})
	svc := env.taskService()

	done := true
	updated, err := svc.Update(context.Background(), "u1", "t1", UpdateTaskInput{Completed: &done})
	assert.NoError(t, err)
	assert.True(t, updated.Completed)

	fetches := env.backend.Requests
	got, err := svc.Get(context.Background(), "t1")
	assert.NoError(t, err)
	assert.True(t, got.Completed)
	assert.Equal(t, fetches, env.backend.Requests, "get after update must hit the seeded entry")
}

func TestTaskUpdateClearProject(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "x", "project_id": "p1"})
	svc := env.taskService()

	updated, err := svc.Update(context.Background(), "u1", "t1", UpdateTaskInput{ClearProject: true})
	assert.NoError(t, err)
	assert.Nil(t, updated.ProjectID)
}

func TestTaskDeletePurgesCache(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "x"})
	svc := env.taskService()

	// Warm both cache entries.
	_, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	_, err = svc.Get(context.Background(), "t1")
	assert.NoError(t, err)

	assert.NoError(t, svc.Delete(context.Background(), "u1", "t1"))

	tasks, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Empty(t, tasks)

	_, err = svc.Get(context.Background(), "t1")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestTaskListRetriesServerErrors(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "x"})
	svc := env.taskService()

	env.backend.FailNext(1, http.StatusServiceUnavailable)
	tasks, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Equal(t, 2, env.backend.Requests, "a 503 answer should be retried once")
}

func TestTaskListDoesNotRetryValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	svc := env.taskService()

	env.backend.FailNext(1, http.StatusUnprocessableEntity)
	_, err := svc.List(context.Background(), "u1")
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Equal(t, 1, env.backend.Requests, "a 422 answer must not be retried")
}

func TestTaskStats(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "completed": true})
	env.backend.Seed("tasks", map[string]any{"id": "t2", "user_id": "u1", "completed": false})
	env.backend.Seed("tasks", map[string]any{"id": "t3", "user_id": "u1", "completed": false, "due_date": "2020-01-01"})
	svc := env.taskService()

	stats, err := svc.Stats(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 2, stats.Pending)
	assert.Equal(t, 1, stats.Overdue)
}

func TestTaskStatsCountDueTodayAsOverdue(t *testing.T) {
	env := newTestEnv(t)
	today := time.Now().UTC().Format("2006-01-02")
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "completed": false, "due_date": today})
	svc := env.taskService()

	tasks, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	filtered := task.FilterAndSort(tasks, nil, entity.FilterSpec{Status: entity.StatusOverdue})

	stats, err := svc.Stats(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, len(filtered), stats.Overdue, "stats and the overdue filter agree on a task due today")
	assert.Equal(t, 1, stats.Overdue)
}
