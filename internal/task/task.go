package task

import (
	"strings"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
)

// DefaultCategory is assigned to tasks created without a category.
const DefaultCategory = "General"

// Priority represents the importance level of a task.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// PriorityOrder returns the sort order for a priority (lower = higher priority).
func PriorityOrder(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// IsValidPriority checks if a priority string is valid.
func IsValidPriority(p Priority) bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	default:
		return false
	}
}

// Task represents a tracked work item.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Completed      bool       `json:"completed"`
	Priority       Priority   `json:"priority"`
	DueDate        *Date      `json:"due_date"`
	Category       string     `json:"category"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	TotalTimeSpent int64      `json:"total_time_spent"`
	IsActive       bool       `json:"is_active"`
}

// NewTask holds the user-supplied fields of a task being created.
type NewTask struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Priority    Priority `json:"priority,omitempty"`
	DueDate     *Date    `json:"due_date,omitempty"`
	Category    string   `json:"category,omitempty"`
	Completed   bool     `json:"completed,omitempty"`
}

// Validate rejects a NewTask with an empty title or unknown priority.
func (n NewTask) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return tferrors.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if n.Priority != "" && !IsValidPriority(n.Priority) {
		return tferrors.InvalidPriorityError{Value: string(n.Priority)}
	}
	return nil
}

// Build creates a Task from n, applying defaults for omitted optional fields.
func (n NewTask) Build(id string, now time.Time) Task {
	t := Task{
		ID:          id,
		Title:       n.Title,
		Description: n.Description,
		Completed:   n.Completed,
		Priority:    n.Priority,
		DueDate:     n.DueDate,
		Category:    n.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Category == "" {
		t.Category = DefaultCategory
	}
	return t
}

// IsOverdue reports whether an incomplete task is past its due date.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.Completed && t.DueDate != nil && t.DueDate.Before(now)
}

// FindActive returns the first task with IsActive set.
func FindActive(tasks []Task) (Task, bool) {
	for _, t := range tasks {
		if t.IsActive {
			return t, true
		}
	}
	return Task{}, false
}
