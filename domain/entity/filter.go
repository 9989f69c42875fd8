package entity

import "time"

// StatusFilter selects tasks by completion state
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
	StatusOverdue   StatusFilter = "overdue"
)

// SortKey selects the comparator used to order filtered tasks
type SortKey string

const (
	SortByPriority SortKey = "priority"
	SortByDate     SortKey = "date"
	SortByName     SortKey = "name"
	SortByProject  SortKey = "project"
)

// SortOrder is the direction of the sort
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// FilterSpec describes the task list view: which tasks to show and in what
// order. It is transient UI state; a named copy can be persisted as a saved
// preset. Empty or nil fields mean "no constraint".
type FilterSpec struct {
	SearchQuery string       `json:"search_query,omitempty"`
	Priority    Priority     `json:"priority,omitempty"`
	ProjectID   string       `json:"project_id,omitempty"`
	Status      StatusFilter `json:"status,omitempty"`
	DateFrom    *time.Time   `json:"date_from,omitempty"`
	DateTo      *time.Time   `json:"date_to,omitempty"`
	// Assignee is reserved for future multi-assignee support; today every
	// task belongs to the current user, so the predicate always matches.
	Assignee  string    `json:"assignee,omitempty"`
	SortBy    SortKey   `json:"sort_by,omitempty"`
	SortOrder SortOrder `json:"sort_order,omitempty"`
}

// DefaultFilter returns the filter the task list opens with: everything,
// oldest due date first.
func DefaultFilter() FilterSpec {
	return FilterSpec{
		Status:    StatusAll,
		SortBy:    SortByDate,
		SortOrder: SortAsc,
	}
}
