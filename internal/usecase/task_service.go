package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"lumi/backend"
	"lumi/domain"
	"lumi/domain/entity"
	"lumi/internal/cache"
	"lumi/internal/requests"
	"lumi/internal/sanitize"
	"lumi/retry"
)

// TaskService handles task reads and writes against the backing service.
type TaskService struct {
	store       backend.TaskStore
	cache       *cache.Store
	requests    *requests.Registry
	maxAttempts int
	logger      *zap.Logger
}

// NewTaskService creates a task service.
func NewTaskService(store backend.TaskStore, c *cache.Store, r *requests.Registry, maxAttempts int, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{
		store:       store,
		cache:       c,
		requests:    r,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// CreateTaskInput is the payload for creating a task.
type CreateTaskInput struct {
	Title           string          `validate:"required,max=200"`
	Description     string          `validate:"max=1000"`
	LongDescription string          `validate:"max=5000"`
	Priority        entity.Priority `validate:"omitempty,oneof=low medium high"`
	ProjectID       *string
	StartDate       *entity.Date
	DueDate         *entity.Date
}

// UpdateTaskInput is a partial update; nil fields are left untouched.
type UpdateTaskInput struct {
	Title           *string          `validate:"omitempty,max=200"`
	Description     *string          `validate:"omitempty,max=1000"`
	LongDescription *string          `validate:"omitempty,max=5000"`
	Priority        *entity.Priority `validate:"omitempty,oneof=low medium high"`
	Completed       *bool
	ProjectID       *string
	ClearProject    bool
	StartDate       *entity.Date
	DueDate         *entity.Date
}

// TaskStats summarizes one user's tasks. Overdue comes from a direct
// service count, not from the cached list.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}

// List returns the user's tasks, from cache when fresh. A repeated List for
// the same user cancels the previous in-flight fetch.
func (s *TaskService) List(ctx context.Context, userID string) ([]entity.Task, error) {
	key := cache.TaskListKey(userID)
	if tasks, ok := cache.Get[[]entity.Task](s.cache, key); ok {
		return tasks, nil
	}

	h := s.requests.Create(ctx, "tasks.list:"+userID)
	defer s.requests.Cleanup(h)

	tasks, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) ([]entity.Task, error) {
		return s.store.ListTasks(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, tasks)
	return tasks, nil
}

// Get returns one task, preferring a freshly seeded cache entry.
func (s *TaskService) Get(ctx context.Context, id string) (*entity.Task, error) {
	if t, ok := cache.Get[*entity.Task](s.cache, cache.TaskKey(id)); ok {
		return t, nil
	}

	key := "tasks.get:" + id
	h := s.requests.Create(ctx, key)
	defer s.requests.Cleanup(h)

	t, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Task, error) {
		return s.store.GetTask(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.TaskKey(id), t)
	return t, nil
}

// Create validates and sanitizes the input, stores the task, and
// invalidates the user's list entry. The returned task carries the stored
// representation including server-assigned fields.
func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput) (*entity.Task, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	title := sanitize.Text(in.Title)
	if title == "" {
		return nil, domain.Validationf("title must not be empty")
	}

	t := entity.NewTask(userID, title)
	t.Description = sanitize.Text(in.Description)
	t.LongDescription = sanitize.Text(in.LongDescription)
	if in.Priority != "" {
		t.Priority = in.Priority
	}
	t.ProjectID = in.ProjectID
	t.StartDate = in.StartDate
	t.DueDate = in.DueDate

	key := "tasks.create"
	h := s.requests.Create(ctx, key)
	defer s.requests.Cleanup(h)

	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Task, error) {
		return s.store.InsertTask(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.TaskListKey(userID))
	s.logger.Info("task created", zap.String("id", stored.ID))
	return stored, nil
}

// Update applies a partial update, seeds the by-id cache entry with the
// stored row, and invalidates the list entry.
func (s *TaskService) Update(ctx context.Context, userID, id string, in UpdateTaskInput) (*entity.Task, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	patch := backend.Patch{"updated_at": time.Now().UTC()}
	if in.Title != nil {
		title := sanitize.Text(*in.Title)
		if title == "" {
			return nil, domain.Validationf("title must not be empty")
		}
		patch["title"] = title
	}
	if in.Description != nil {
		patch["description"] = sanitize.Text(*in.Description)
	}
	if in.LongDescription != nil {
		patch["long_description"] = sanitize.Text(*in.LongDescription)
	}
	if in.Priority != nil {
		patch["priority"] = *in.Priority
	}
	if in.Completed != nil {
		patch["completed"] = *in.Completed
	}
	switch {
	case in.ClearProject:
		patch["project_id"] = nil
	case in.ProjectID != nil:
		patch["project_id"] = *in.ProjectID
	}
	if in.StartDate != nil {
		patch["start_date"] = *in.StartDate
	}
	if in.DueDate != nil {
		patch["due_date"] = *in.DueDate
	}

	key := "tasks.update:" + id
	h := s.requests.Create(ctx, key)
	defer s.requests.Cleanup(h)

	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Task, error) {
		return s.store.UpdateTask(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(cache.TaskKey(id), stored)
	s.cache.Invalidate(cache.TaskListKey(userID))
	return stored, nil
}

// Delete removes a task, purges its by-id entry, and invalidates the list.
func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	key := "tasks.delete:" + id
	h := s.requests.Create(ctx, key)
	defer s.requests.Cleanup(h)

	err := retry.Do(h.Context(), s.maxAttempts, func(ctx context.Context) error {
		return s.store.DeleteTask(ctx, id)
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.TaskKey(id), cache.TaskListKey(userID))
	s.logger.Info("task deleted", zap.String("id", id))
	return nil
}

// Stats derives totals from the task list and asks the service directly for
// the overdue count.
func (s *TaskService) Stats(ctx context.Context, userID string) (*TaskStats, error) {
	tasks, err := s.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &TaskStats{Total: len(tasks)}
	for i := range tasks {
		if tasks[i].Completed {
			stats.Completed++
		} else {
			stats.Pending++
		}
	}

	overdue, err := retry.DoValue(ctx, s.maxAttempts, func(ctx context.Context) (int, error) {
		return s.store.CountOverdueTasks(ctx, userID, "", time.Now())
	})
	if err != nil {
		return nil, err
	}
	stats.Overdue = overdue
	return stats, nil
}
