// Package task implements the client-side task list view: filtering and
// ordering an in-memory task collection against a filter specification.
package task

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"lumi/domain/entity"
)

// FilterAndSort returns the tasks matching every active predicate in f,
// ordered by the filter's sort key. Overdue evaluation uses the current
// wall clock.
func FilterAndSort(tasks []entity.Task, projects []entity.Project, f entity.FilterSpec) []entity.Task {
	return FilterAndSortAt(tasks, projects, f, time.Now())
}

// FilterAndSortAt is FilterAndSort with an explicit evaluation time.
// The input slice is not modified. The sort is stable: tasks comparing
// equal keep their relative input order.
func FilterAndSortAt(tasks []entity.Task, projects []entity.Project, f entity.FilterSpec, now time.Time) []entity.Task {
	out := make([]entity.Task, 0, len(tasks))
	for _, t := range tasks {
		if matches(&t, f, now) {
			out = append(out, t)
		}
	}

	var coll *collate.Collator
	if f.SortBy == entity.SortByName {
		coll = collate.New(language.Und)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return compare(&out[i], &out[j], projects, f, coll) < 0
	})
	return out
}

// matches combines all predicates with logical AND. A predicate whose filter
// field is empty is skipped.
func matches(t *entity.Task, f entity.FilterSpec, now time.Time) bool {
	if q := strings.ToLower(strings.TrimSpace(f.SearchQuery)); q != "" {
		inTitle := strings.Contains(strings.ToLower(t.Title), q)
		inDesc := strings.Contains(strings.ToLower(t.Description), q)
		if !inTitle && !inDesc {
			return false
		}
	}

	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}

	if f.ProjectID != "" {
		if t.ProjectID == nil || *t.ProjectID != f.ProjectID {
			return false
		}
	}

	switch f.Status {
	case entity.StatusCompleted:
		if !t.Completed {
			return false
		}
	case entity.StatusPending:
		if t.Completed {
			return false
		}
	case entity.StatusOverdue:
		if !t.IsOverdue(now) {
			return false
		}
	}

	if f.DateFrom != nil || f.DateTo != nil {
		if t.DueDate == nil {
			return false
		}
		if f.DateFrom != nil && t.DueDate.Before(*f.DateFrom) {
			return false
		}
		if f.DateTo != nil && t.DueDate.After(*f.DateTo) {
			return false
		}
	}

	// Reserved for multi-assignee support. Every task currently belongs to
	// its owner, so an assignee filter matches the owner only.
	if f.Assignee != "" && t.UserID != f.Assignee {
		return false
	}

	return true
}

// compare orders two tasks under the filter's sort key. The result is
// negated for descending order, with one exception: under date sort, a task
// with a due date always precedes one without, and that presence comparison
// bypasses the direction entirely. Only both-present comparisons use the
// actual timestamps. This mirrors the shipped list behavior and is kept
// as observed pending product sign-off.
func compare(a, b *entity.Task, projects []entity.Project, f entity.FilterSpec, coll *collate.Collator) int {
	var c int
	switch f.SortBy {
	case entity.SortByPriority:
		c = a.Priority.Rank() - b.Priority.Rank()

	case entity.SortByDate:
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			c = 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		case a.DueDate.Before(b.DueDate.Time):
			c = -1
		case a.DueDate.After(b.DueDate.Time):
			c = 1
		}

	case entity.SortByName:
		c = coll.CompareString(a.Title, b.Title)

	case entity.SortByProject:
		c = strings.Compare(a.ProjectName(projects), b.ProjectName(projects))
	}

	if f.SortOrder == entity.SortDesc {
		c = -c
	}
	return c
}
