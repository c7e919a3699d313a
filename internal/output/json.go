package output

import (
	"encoding/json"

	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, _ := json.MarshalIndent(v, "", "  ")
	return string(data) + "\n"
}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// FormatTask formats a single task as JSON.
func (f *JSONFormatter) FormatTask(t task.Task) string {
	return marshalJSON(t)
}

// FormatTaskList formats a list of tasks as JSON.
func (f *JSONFormatter) FormatTaskList(tasks []task.Task) string {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return marshalJSON(tasks)
}

// activeJSON is the JSON representation of the active task.
type activeJSON struct {
	Active
	TotalSeconds int64 `json:"total_seconds"`
}

// FormatActive formats the running task as JSON. A nil task renders as null.
func (f *JSONFormatter) FormatActive(a Active) string {
	return marshalJSON(activeJSON{Active: a, TotalSeconds: a.Total()})
}

// FormatHistory formats history entries as JSON.
func (f *JSONFormatter) FormatHistory(entries []history.Entry) string {
	if entries == nil {
		entries = []history.Entry{}
	}
	return marshalJSON(entries)
}

// FormatSessions formats sessions as JSON.
func (f *JSONFormatter) FormatSessions(sessions []session.Session) string {
	if sessions == nil {
		sessions = []session.Session{}
	}
	return marshalJSON(sessions)
}

// FormatAnalytics formats time analytics as JSON.
func (f *JSONFormatter) FormatAnalytics(a session.Analytics) string {
	return marshalJSON(a)
}

// FormatStats formats task counts as JSON.
func (f *JSONFormatter) FormatStats(s task.Stats) string {
	return marshalJSON(s)
}

// FormatTemplates formats templates as JSON.
func (f *JSONFormatter) FormatTemplates(templates []task.Template) string {
	return marshalJSON(templates)
}

// FormatMode formats the persistence mode as JSON.
func (f *JSONFormatter) FormatMode(m ModeStatus) string {
	return marshalJSON(m)
}

// errorJSON is the JSON representation of an error.
type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}

// messageJSON is the JSON representation of a message.
type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}
