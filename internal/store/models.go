package store

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownStatus is returned for a status string outside the four known values.
var ErrUnknownStatus = errors.New("unknown task status")

// Status is the task lifecycle: new -> todo -> in progress -> done.
type Status uint8

const (
	StatusNew Status = iota
	StatusTodo
	StatusInProgress
	StatusDone
)

var statusNames = [...]string{
	StatusNew:        "new",
	StatusTodo:       "todo",
	StatusInProgress: "in progress",
	StatusDone:       "done",
}

var statusLabels = [...]string{
	StatusNew:        "New",
	StatusTodo:       "To do",
	StatusInProgress: "In progress",
	StatusDone:       "Done",
}

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusNew, StatusTodo, StatusInProgress, StatusDone}

// ParseStatus maps a persisted status string back to a Status.
func ParseStatus(s string) (Status, error) {
	for i, name := range statusNames {
		if name == s {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) valid() bool { return int(s) < len(statusNames) }

// String returns the persisted form.
func (s Status) String() string {
	if !s.valid() {
		return fmt.Sprintf("Status(%d)", uint8(s))
	}
	return statusNames[s]
}

// Label returns the human readable form.
func (s Status) Label() string {
	if !s.valid() {
		return s.String()
	}
	return statusLabels[s]
}

// Value implements driver.Valuer.
func (s Status) Value() (driver.Value, error) {
	if !s.valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, uint8(s))
	}
	return statusNames[s], nil
}

// Scan implements sql.Scanner.
func (s *Status) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrUnknownStatus, src)
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Task is one row of the tasks table. CreationDate is milliseconds since epoch.
type Task struct {
	ID           int64
	Title        string
	Description  string
	Status       Status
	CreationDate int64
}

func (t Task) CreatedAt() time.Time {
	return time.UnixMilli(t.CreationDate)
}

// NowMillis returns the current time in the unit used by CreationDate.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
