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

// ProjectService handles project reads and writes against the backing
// service.
type ProjectService struct {
	store       backend.ProjectStore
	tasks       backend.TaskStore
	cache       *cache.Store
	requests    *requests.Registry
	maxAttempts int
	logger      *zap.Logger
}

// NewProjectService creates a project service. The task store is used only
// by the stats read path for direct overdue counts.
func NewProjectService(store backend.ProjectStore, tasks backend.TaskStore, c *cache.Store, r *requests.Registry, maxAttempts int, logger *zap.Logger) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		store:       store,
		tasks:       tasks,
		cache:       c,
		requests:    r,
		maxAttempts: maxAttempts,
		logger:      logger,
	}
}

// CreateProjectInput is the payload for creating a project.
type CreateProjectInput struct {
	Name        string `validate:"required,max=100"`
	Description string `validate:"max=500"`
}

// UpdateProjectInput is a partial update; nil fields are left untouched.
type UpdateProjectInput struct {
	Name        *string `validate:"omitempty,max=100"`
	Description *string `validate:"omitempty,max=500"`
}

// ProjectStats is the per-project display summary. Total and Completed come
// from the service-maintained denormalized counters; Overdue is a direct
// count query.
type ProjectStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Overdue   int `json:"overdue"`
}

// List returns the user's projects, from cache when fresh.
func (s *ProjectService) List(ctx context.Context, userID string) ([]entity.Project, error) {
	key := cache.ProjectListKey(userID)
	if projects, ok := cache.Get[[]entity.Project](s.cache, key); ok {
		return projects, nil
	}

	reqKey := "projects.list:" + userID
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	projects, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) ([]entity.Project, error) {
		return s.store.ListProjects(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, projects)
	return projects, nil
}

// Get returns one project.
func (s *ProjectService) Get(ctx context.Context, id string) (*entity.Project, error) {
	if p, ok := cache.Get[*entity.Project](s.cache, cache.ProjectKey(id)); ok {
		return p, nil
	}

	reqKey := "projects.get:" + id
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	p, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Project, error) {
		return s.store.GetProject(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	s.cache.Set(cache.ProjectKey(id), p)
	return p, nil
}

// Create validates and sanitizes the input and stores the project.
func (s *ProjectService) Create(ctx context.Context, userID string, in CreateProjectInput) (*entity.Project, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	name := sanitize.Text(in.Name)
	if name == "" {
		return nil, domain.Validationf("name must not be empty")
	}

	p := entity.NewProject(userID, name)
	p.Description = sanitize.Text(in.Description)

	reqKey := "projects.create"
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Project, error) {
		return s.store.InsertProject(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(cache.ProjectListKey(userID))
	s.logger.Info("project created", zap.String("id", stored.ID))
	return stored, nil
}

// Update applies a partial update, seeds the by-id entry, and invalidates
// the list.
func (s *ProjectService) Update(ctx context.Context, userID, id string, in UpdateProjectInput) (*entity.Project, error) {
	if err := checkStruct(in); err != nil {
		return nil, err
	}

	patch := backend.Patch{"updated_at": time.Now().UTC()}
	if in.Name != nil {
		name := sanitize.Text(*in.Name)
		if name == "" {
			return nil, domain.Validationf("name must not be empty")
		}
		patch["name"] = name
	}
	if in.Description != nil {
		patch["description"] = sanitize.Text(*in.Description)
	}

	reqKey := "projects.update:" + id
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	stored, err := retry.DoValue(h.Context(), s.maxAttempts, func(ctx context.Context) (*entity.Project, error) {
		return s.store.UpdateProject(ctx, id, patch)
	})
	if err != nil {
		return nil, err
	}

	s.cache.Set(cache.ProjectKey(id), stored)
	s.cache.Invalidate(cache.ProjectListKey(userID))
	return stored, nil
}

// Delete removes a project, purges its by-id entry, and invalidates both
// the project list and the task list, since tasks referencing the project
// render differently once it is gone.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	reqKey := "projects.delete:" + id
	h := s.requests.Create(ctx, reqKey)
	defer s.requests.Cleanup(h)

	err := retry.Do(h.Context(), s.maxAttempts, func(ctx context.Context) error {
		return s.store.DeleteProject(ctx, id)
	})
	if err != nil {
		return err
	}

	s.cache.Invalidate(cache.ProjectKey(id), cache.ProjectListKey(userID), cache.TaskListKey(userID))
	s.logger.Info("project deleted", zap.String("id", id))
	return nil
}

// Stats reads the denormalized counters off the project row and asks the
// service directly for the overdue count within the project.
func (s *ProjectService) Stats(ctx context.Context, userID, id string) (*ProjectStats, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	overdue, err := retry.DoValue(ctx, s.maxAttempts, func(ctx context.Context) (int, error) {
		return s.tasks.CountOverdueTasks(ctx, userID, id, time.Now())
	})
	if err != nil {
		return nil, err
	}

	return &ProjectStats{
		Total:     p.TaskCount,
		Completed: p.CompletedCount,
		Overdue:   overdue,
	}, nil
}
