package session

import (
	"fmt"
	"sort"

	"github.com/abatilo/taskflow/internal/task"
)

// UnknownCategory labels time from sessions whose task no longer exists.
const UnknownCategory = "Unknown"

// TaskLookup resolves a task by ID.
type TaskLookup func(id string) (task.Task, bool)

// Record is a closed session joined with a snapshot of its task.
type Record struct {
	Session
	Task     task.Task `json:"task"`
	Orphaned bool      `json:"orphaned,omitempty"`
}

// Analytics aggregates closed sessions.
type Analytics struct {
	TotalTime      int64            `json:"total_time"`
	SessionCount   int              `json:"session_count"`
	AvgSessionTime float64          `json:"avg_session_time"`
	CategoryStats  map[string]int64 `json:"category_stats"`
	Sessions       []Record         `json:"sessions"`
}

// Analytics computes totals over closed sessions only. Open sessions are ignored.
func (l *Ledger) Analytics(lookup TaskLookup) Analytics {
	a := Analytics{CategoryStats: map[string]int64{}, Sessions: []Record{}}
	for _, s := range l.sessions {
		if s.Duration == nil {
			continue
		}
		rec := Record{Session: s}
		if t, ok := lookup(s.TaskID); ok {
			rec.Task = t
		} else {
			rec.Task = task.Task{
				ID:       s.TaskID,
				Title:    UnknownCategory,
				Category: UnknownCategory,
				Priority: task.PriorityMedium,
			}
			rec.Orphaned = true
		}
		a.TotalTime += *s.Duration
		a.SessionCount++
		a.CategoryStats[rec.Task.Category] += *s.Duration
		a.Sessions = append(a.Sessions, rec)
	}
	if a.SessionCount > 0 {
		a.AvgSessionTime = float64(a.TotalTime) / float64(a.SessionCount)
	}
	sort.SliceStable(a.Sessions, func(i, j int) bool {
		return a.Sessions[i].StartedAt.After(a.Sessions[j].StartedAt)
	})
	return a
}

// FormatClock renders seconds as h:mm:ss, or m:ss under an hour.
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// FormatTotal renders seconds as "Xh Ym", "Ym", or "0m".
func FormatTotal(seconds int64) string {
	if seconds <= 0 {
		return "0m"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
