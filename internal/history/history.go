// Package history keeps the append-only audit log of task lifecycle actions.
package history

import (
	"encoding/json"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultRetention bounds how many entries the log keeps.
	DefaultRetention = 100
	// QueryLimit caps the entries returned by a single query.
	QueryLimit = 50
)

// Action is the lifecycle event an entry records.
type Action string

const (
	ActionCreated   Action = "created"
	ActionStarted   Action = "started"
	ActionPaused    Action = "paused"
	ActionCompleted Action = "completed"
	ActionUpdated   Action = "updated"
	ActionDeleted   Action = "deleted"
)

// Entry is an immutable audit record. TaskID is a reference that survives
// deletion of the task.
type Entry struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"task_id"`
	Action    Action          `json:"action"`
	OldValues json.RawMessage `json:"old_values,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEntry builds an entry, serializing the snapshot payloads. Nil payloads are omitted.
func NewEntry(taskID string, action Action, oldValues, newValues any, at time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		TaskID:    taskID,
		Action:    action,
		OldValues: payload(oldValues),
		NewValues: payload(newValues),
		Timestamp: at,
	}
}

func payload(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("history payload not encodable, dropping it", "error", err)
		return nil
	}
	if string(data) == "null" {
		return nil
	}
	return data
}

// Log holds retained entries, newest first.
type Log struct {
	entries   []Entry
	retention int
}

// NewLog creates a Log from persisted entries. A retention <= 0 uses DefaultRetention.
func NewLog(entries []Entry, retention int) *Log {
	if retention <= 0 {
		retention = DefaultRetention
	}
	l := &Log{entries: append([]Entry(nil), entries...), retention: retention}
	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].Timestamp.After(l.entries[j].Timestamp)
	})
	l.trim()
	return l
}

// Append records entries given in chronological order. It never fails.
func (l *Log) Append(entries ...Entry) {
	for _, e := range entries {
		l.entries = append([]Entry{e}, l.entries...)
	}
	l.trim()
}

// Entries returns every retained entry, newest first.
func (l *Log) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

// Query returns entries for taskID (all tasks when empty), newest first, capped at QueryLimit.
func (l *Log) Query(taskID string) []Entry {
	return Filter(l.entries, taskID, QueryLimit)
}

func (l *Log) trim() {
	if len(l.entries) > l.retention {
		l.entries = l.entries[:l.retention]
	}
}

// Filter selects entries for taskID (all when empty) up to limit, preserving order.
func Filter(entries []Entry, taskID string, limit int) []Entry {
	out := make([]Entry, 0, min(len(entries), limit))
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if taskID == "" || e.TaskID == taskID {
			out = append(out, e)
		}
	}
	return out
}
