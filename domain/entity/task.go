package entity

import (
	"time"

	"github.com/google/uuid"
)

// Priority represents the urgency of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Rank maps a priority onto a comparable number. Missing or unrecognized
// priorities rank below low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// Task represents a single unit of work owned by one user. The backing
// service is authoritative; clients only ever hold a cached copy.
type Task struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id" validate:"required"`
	ProjectID       *string   `json:"project_id,omitempty"`
	Title           string    `json:"title" validate:"required,max=200"`
	Description     string    `json:"description,omitempty" validate:"max=1000"`
	LongDescription string    `json:"long_description,omitempty" validate:"max=5000"`
	Completed       bool      `json:"completed"`
	Priority        Priority  `json:"priority" validate:"omitempty,oneof=low medium high"`
	StartDate       *Date     `json:"start_date,omitempty"`
	DueDate         *Date     `json:"due_date,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewTask creates a task with a fresh ID and default values
func NewTask(userID, title string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsOverdue returns true if the task is incomplete and its due date has
// passed at the given evaluation time. Tasks without a due date are never
// overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// ProjectName resolves the task's project name against a project collection.
// Returns the empty string when the task has no project or the project is
// not in the collection.
func (t *Task) ProjectName(projects []Project) string {
	if t.ProjectID == nil {
		return ""
	}
	for i := range projects {
		if projects[i].ID == *t.ProjectID {
			return projects[i].Name
		}
	}
	return ""
}
