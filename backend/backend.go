// Package backend defines the contract with the managed backing service.
// Persistence, authorization, authentication, realtime notification, and
// object storage all live behind these interfaces; the rest of the
// application never talks to the service directly.
package backend

import (
	"context"
	"time"

	"lumi/domain/entity"
)

// Patch is a partial row update, keyed by column name. Writes always
// request the stored representation back so callers can reconcile
// server-assigned fields.
type Patch map[string]any

// TaskStore is row CRUD over the tasks collection.
type TaskStore interface {
	ListTasks(ctx context.Context, userID string) ([]entity.Task, error)
	GetTask(ctx context.Context, id string) (*entity.Task, error)
	InsertTask(ctx context.Context, t *entity.Task) (*entity.Task, error)
	UpdateTask(ctx context.Context, id string, patch Patch) (*entity.Task, error)
	DeleteTask(ctx context.Context, id string) error

	// CountOverdueTasks counts incomplete tasks with a due date before the
	// given instant, optionally scoped to one project (empty projectID
	// means all of the user's tasks).
	CountOverdueTasks(ctx context.Context, userID, projectID string, before time.Time) (int, error)
}

// ProjectStore is row CRUD over the projects collection.
type ProjectStore interface {
	ListProjects(ctx context.Context, userID string) ([]entity.Project, error)
	GetProject(ctx context.Context, id string) (*entity.Project, error)
	InsertProject(ctx context.Context, p *entity.Project) (*entity.Project, error)
	UpdateProject(ctx context.Context, id string, patch Patch) (*entity.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// ProfileStore is row access to user profiles. Insert is best-effort: a
// conflict on an existing row surfaces as a conflict error the caller
// ignores, preserving the upsert-then-read creation contract.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*entity.UserProfile, error)
	InsertProfile(ctx context.Context, p *entity.UserProfile) error
	UpdateProfile(ctx context.Context, userID string, patch Patch) (*entity.UserProfile, error)
}

// ObjectStore is the object-storage API: upload by path and public URL
// retrieval.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	PublicURL(bucket, path string) string
}

// User is the authenticated principal.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Session is an authenticated session with the backing service.
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	User         User      `json:"user"`
}

// Auth is the session-based authentication API. OnSessionChange registers a
// listener invoked with the new session (nil on sign-out); the returned
// function removes the listener.
type Auth interface {
	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	OAuthURL(provider, redirectTo string) string
	Recover(ctx context.Context, email string) error
	SignOut(ctx context.Context) error
	Session() *Session
	SetSession(s *Session)
	OnSessionChange(fn func(*Session)) (remove func())
}

// Subscription is one live change-feed subscription.
type Subscription interface {
	Close() error
}

// Feed is the change-feed API: row-level insert/update/delete notifications
// for one table, scoped to rows owned by one user.
type Feed interface {
	Subscribe(ctx context.Context, table, userID string, handler func(entity.ChangeEvent)) (Subscription, error)
}

// Client bundles every service surface the application consumes.
type Client interface {
	TaskStore
	ProjectStore
	ProfileStore
	ObjectStore
	Feed
	Auth() Auth
}
