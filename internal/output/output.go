package output

import (
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/mode"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatTask(t task.Task) string
	FormatTaskList(tasks []task.Task) string
	FormatActive(a Active) string
	FormatHistory(entries []history.Entry) string
	FormatSessions(sessions []session.Session) string
	FormatAnalytics(a session.Analytics) string
	FormatStats(s task.Stats) string
	FormatTemplates(templates []task.Template) string
	FormatMode(m ModeStatus) string
	FormatError(err error) string
	FormatMessage(msg string) string
}

// Active is the running task with the time accrued in its open session.
type Active struct {
	Task    *task.Task `json:"task"`
	Current int64      `json:"current_session_seconds"`
}

// Total is the task's recorded time plus the running session.
func (a Active) Total() int64 {
	if a.Task == nil {
		return 0
	}
	return a.Task.TotalTimeSpent + a.Current
}

// ModeStatus describes where the engine persists.
type ModeStatus struct {
	Mode       mode.State `json:"mode"`
	Driver     string     `json:"driver"`
	Configured bool       `json:"configured"`
	Cause      string     `json:"cause,omitempty"`
}
