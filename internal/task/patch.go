package task

import (
	"strings"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
)

// Patch is a partial update to a task. Nil fields are left unchanged.
type Patch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	Completed      *bool      `json:"completed,omitempty"`
	Priority       *Priority  `json:"priority,omitempty"`
	DueDate        *Date      `json:"due_date,omitempty"`
	Category       *string    `json:"category,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalTimeSpent *int64     `json:"total_time_spent,omitempty"`
	IsActive       *bool      `json:"is_active,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p == Patch{}
}

// Validate checks a caller-supplied patch. total_time_spent only grows when
// a time session closes, so callers may not set it.
func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return tferrors.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if p.Priority != nil && !IsValidPriority(*p.Priority) {
		return tferrors.InvalidPriorityError{Value: string(*p.Priority)}
	}
	if p.TotalTimeSpent != nil {
		return tferrors.ValidationError{Field: "total_time_spent", Reason: "accrues only when a time session closes"}
	}
	return nil
}

// Apply merges the patch into t and stamps UpdatedAt.
func (p Patch) Apply(t *Task, now time.Time) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	if p.Category != nil {
		t.Category = *p.Category
	}
	if p.StartedAt != nil {
		s := *p.StartedAt
		t.StartedAt = &s
	}
	if p.CompletedAt != nil {
		c := *p.CompletedAt
		t.CompletedAt = &c
	}
	if p.TotalTimeSpent != nil {
		t.TotalTimeSpent = *p.TotalTimeSpent
	}
	if p.IsActive != nil {
		t.IsActive = *p.IsActive
	}
	t.UpdatedAt = now
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T {
	return &v
}
