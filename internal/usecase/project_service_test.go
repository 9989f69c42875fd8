package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"lumi/domain"
	"lumi/retry"
)

func (e *testEnv) projectService() *ProjectService {
	return NewProjectService(e.client, e.client, e.cache, e.registry, retry.DefaultMaxAttempts, nil)
}

func TestProjectCreate(t *testing.T) {
	env := newTestEnv(t)
	svc := env.projectService()

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{
		Name:        "Spring cleaning",
		Description: "everything in the garage",
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Spring cleaning", created.Name)
	assert.Len(t, env.backend.Rows("projects"), 1)
}

func TestProjectCreateSanitizesName(t *testing.T) {
	env := newTestEnv(t)
	svc := env.projectService()

	created, err := svc.Create(context.Background(), "u1", CreateProjectInput{Name: "<b>Work</b>"})
	assert.NoError(t, err)
	assert.Equal(t, "Work", created.Name)

	_, err = svc.Create(context.Background(), "u1", CreateProjectInput{Name: "<script>x()</script>"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestProjectListServesFromCache(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("projects", map[string]any{"id": "p1", "user_id": "u1", "name": "Work"})
	svc := env.projectService()

	_, err := svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	fetches := env.backend.Requests

	_, err = svc.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Equal(t, fetches, env.backend.Requests)
}

func TestProjectUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("projects", map[string]any{"id": "p1", "user_id": "u1", "name": "Work"})
	svc := env.projectService()

	name := "Side project"
	updated, err := svc.Update(context.Background(), "u1", "p1", UpdateProjectInput{Name: &name})
	assert.NoError(t, err)
	assert.Equal(t, "Side project", updated.Name)

	// The by-id entry is seeded; Get must not refetch.
	fetches := env.backend.Requests
	got, err := svc.Get(context.Background(), "p1")
	assert.NoError(t, err)
	assert.Equal(t, "Side project", got.Name)
	assert.Equal(t, fetches, env.backend.Requests)
}

func TestProjectDeleteInvalidatesTaskList(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("projects", map[string]any{"id": "p1", "user_id": "u1", "name": "Work"})
	env.backend.Seed("tasks", map[string]any{"id": "t1", "user_id": "u1", "title": "x", "project_id": "p1"})
	projects := env.projectService()
	tasks := env.taskService()

	_, err := tasks.List(context.Background(), "u1")
	assert.NoError(t, err)
	fetches := env.backend.Requests

	assert.NoError(t, projects.Delete(context.Background(), "u1", "p1"))
	assert.Empty(t, env.backend.Rows("projects"))

	// Tasks referencing the project render differently now, so the cached
	// task list is dropped too.
	_, err = tasks.List(context.Background(), "u1")
	assert.NoError(t, err)
	assert.Greater(t, env.backend.Requests, fetches)
}

func TestProjectStats(t *testing.T) {
	env := newTestEnv(t)
	env.backend.Seed("projects", map[string]any{
		"id": "p1", "user_id": "u1", "name": "Work",
		"task_count": 5, "completed_count": 2,
	})
	env.backend.Seed("tasks", map[string]any{
		"id": "t1", "user_id": "u1", "project_id": "p1",
		"completed": false, "due_date": "2020-01-01",
	})
	env.backend.Seed("tasks", map[string]any{
		"id": "t2", "user_id": "u1", "project_id": "other",
		"completed": false, "due_date": "2020-01-01",
	})
	svc := env.projectService()

	stats, err := svc.Stats(context.Background(), "u1", "p1")
	assert.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Overdue, "overdue count is scoped to the project")
}

func TestProjectGetNotFound(t *testing.T) {
	env := newTestEnv(t)
	svc := env.projectService()

	_, err := svc.Get(context.Background(), "missing")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
