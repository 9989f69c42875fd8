package entity

import (
	"time"

	"github.com/google/uuid"
)

// Project groups tasks for one user. TaskCount and CompletedCount are
// denormalized counters maintained by the backing service; they are
// advisory display values and are never recomputed client-side.
type Project struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id" validate:"required"`
	Name           string    `json:"name" validate:"required,max=100"`
	Description    string    `json:"description,omitempty" validate:"max=500"`
	TaskCount      int       `json:"task_count"`
	CompletedCount int       `json:"completed_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewProject creates a project with a fresh ID
func NewProject(userID, name string) *Project {
	now := time.Now().UTC()
	return &Project{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
