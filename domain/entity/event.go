package entity

import "encoding/json"

// EventKind is the kind of a change-feed notification
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventUpdate EventKind = "UPDATE"
	EventDelete EventKind = "DELETE"
)

// ChangeEvent is a single row-level notification from the backing service's
// change feed. Record carries the affected row (the old row for deletes).
type ChangeEvent struct {
	Kind      EventKind       `json:"type"`
	Table     string          `json:"table"`
	Record    json.RawMessage `json:"record,omitempty"`
	OldRecord json.RawMessage `json:"old_record,omitempty"`
}

// Task decodes the event's record as a task. For deletes the old record is
// used, since the new record is absent.
func (e ChangeEvent) Task() (*Task, error) {
	raw := e.Record
	if e.Kind == EventDelete {
		raw = e.OldRecord
	}
	if len(raw) == 0 {
		return nil, nil
	}
	var t Task
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
