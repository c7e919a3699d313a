package task

import (
	"sort"
	"strings"
)

// Filter controls which tasks to include in list results.
type Filter struct {
	Pending   bool
	Completed bool
	Category  string
}

// Matches returns true if the task should be included.
func (f Filter) Matches(t Task) bool {
	if f.Category != "" && !strings.EqualFold(f.Category, t.Category) {
		return false
	}
	// If no status filter is set, include all
	if !f.Pending && !f.Completed {
		return true
	}
	if t.Completed {
		return f.Completed
	}
	return f.Pending
}

// Apply returns the tasks matching f, preserving order.
func (f Filter) Apply(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortNewestFirst orders tasks by creation time, newest first.
func SortNewestFirst(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
	})
}

// SortByPriority orders tasks by priority (high first), then by created_at (oldest first).
func SortByPriority(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return less(tasks[i], tasks[j])
	})
}

func less(a, b Task) bool {
	pa := PriorityOrder(a.Priority)
	pb := PriorityOrder(b.Priority)
	if pa != pb {
		return pa < pb
	}
	return a.CreatedAt.Before(b.CreatedAt)
}
