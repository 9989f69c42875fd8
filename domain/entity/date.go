package entity

import (
	"fmt"
	"strings"
	"time"
)

// Date wraps time.Time to handle the backing service's date columns, which
// come back as plain "2006-01-02" strings while timestamp columns use
// RFC 3339. Both forms are accepted on input; output is always date-only.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate builds a Date truncated to the calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// UnmarshalJSON accepts date-only strings, RFC 3339 timestamps, and null.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}

	if t, err := time.Parse(dateLayout, s); err == nil {
		d.Time = t
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t
		return nil
	}
	return fmt.Errorf("invalid date %q", s)
}

// MarshalJSON emits the date-only form, or null for the zero value.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}
