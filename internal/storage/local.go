package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

// Keys under which each collection is stored.
const (
	KeyTasks    = "tasks"
	KeyHistory  = "history"
	KeySessions = "sessions"
)

// Local persists the three collections as whole JSON snapshots in a KV.
type Local struct {
	kv     KV
	logger *slog.Logger
}

// NewLocal wraps kv. A nil logger uses slog.Default().
func NewLocal(kv KV, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{kv: kv, logger: logger}
}

// KV returns the underlying key-value store.
func (l *Local) KV() KV {
	return l.kv
}

// LoadTasks returns stored tasks, or an empty list when absent or corrupt.
func (l *Local) LoadTasks() []task.Task {
	return load[task.Task](l, KeyTasks)
}

// LoadHistory returns stored history entries, or an empty list when absent or corrupt.
func (l *Local) LoadHistory() []history.Entry {
	return load[history.Entry](l, KeyHistory)
}

// LoadSessions returns stored sessions, or an empty list when absent or corrupt.
func (l *Local) LoadSessions() []session.Session {
	return load[session.Session](l, KeySessions)
}

func load[T any](l *Local, key string) []T {
	data, ok, err := l.kv.Get(key)
	if err != nil {
		l.logger.Error("local read failed, starting empty", "error", tferrors.StorageError{Key: key, Op: "read", Err: err})
		return []T{}
	}
	if !ok || len(data) == 0 {
		return []T{}
	}
	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		l.logger.Error("local data corrupt, starting empty", "error", tferrors.StorageError{Key: key, Op: "decode", Err: err})
		return []T{}
	}
	if items == nil {
		return []T{}
	}
	return items
}

// SaveTasks replaces the stored task snapshot.
func (l *Local) SaveTasks(tasks []task.Task) error {
	return l.save(KeyTasks, tasks)
}

// SaveHistory replaces the stored history snapshot.
func (l *Local) SaveHistory(entries []history.Entry) error {
	return l.save(KeyHistory, entries)
}

// SaveSessions replaces the stored session snapshot.
func (l *Local) SaveSessions(sessions []session.Session) error {
	return l.save(KeySessions, sessions)
}

// SaveAll writes every collection, returning the first failure.
func (l *Local) SaveAll(tasks []task.Task, entries []history.Entry, sessions []session.Session) error {
	if err := l.SaveTasks(tasks); err != nil {
		return err
	}
	if err := l.SaveSessions(sessions); err != nil {
		return err
	}
	return l.SaveHistory(entries)
}

func (l *Local) save(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return tferrors.StorageError{Key: key, Op: "encode", Err: err}
	}
	if err := l.kv.Put(key, data); err != nil {
		return tferrors.StorageError{Key: key, Op: "write", Err: fmt.Errorf("put: %w", err)}
	}
	return nil
}
