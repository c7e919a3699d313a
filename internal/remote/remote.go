// Package remote talks to the hosted data store holding the tasks,
// task_history and time_sessions tables.
package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

// Table names.
const (
	TableTasks    = "tasks"
	TableHistory  = "task_history"
	TableSessions = "time_sessions"
)

// Drivers accepted by New.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverNone     = "none"
)

// DefaultTimeout bounds every remote call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// Client is the remote store. Every failure is a tferrors.BackendError.
type Client interface {
	// Ping runs the cheapest possible query against the tasks table.
	Ping(ctx context.Context) error

	ListTasks(ctx context.Context) ([]task.Task, error)
	InsertTask(ctx context.Context, t task.Task) (task.Task, error)
	UpdateTask(ctx context.Context, id string, patch task.Patch, updatedAt time.Time) error
	DeleteTask(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]session.Session, error)
	InsertSession(ctx context.Context, s session.Session) error
	// UpdateSession writes the closing fields (ended_at, duration) of s.
	UpdateSession(ctx context.Context, s session.Session) error

	// ListHistory returns entries newest first, filtered by taskID when non-empty.
	ListHistory(ctx context.Context, taskID string, limit int) ([]history.Entry, error)
	InsertHistory(ctx context.Context, entries ...history.Entry) error

	Close() error
}

// Config selects and configures a Client.
type Config struct {
	Driver  string
	URL     string
	AnonKey string
	DSN     string
	Timeout time.Duration
}

// New builds the configured client. It returns (nil, nil) for the "none" driver
// and NotConfiguredError when required settings are missing.
func New(cfg Config, logger *slog.Logger) (Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverREST:
		c, err := NewREST(cfg.URL, cfg.AnonKey, timeout, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case DriverPostgres:
		c, err := NewPostgres(cfg.DSN, timeout, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	case DriverNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown remote driver %q (valid: rest, postgres, none)", cfg.Driver)
	}
}

// updateBody renders a patch plus updated_at as a column map.
func updateBody(patch task.Patch, updatedAt time.Time) (map[string]any, error) {
	data, err := json.Marshal(patch)
	if err != nil {
		return nil, err
	}
	body := map[string]any{}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, err
	}
	body["updated_at"] = updatedAt.UTC().Format(time.RFC3339Nano)
	return body, nil
}

func backendErr(op, table string, err error) error {
	if err == nil {
		return nil
	}
	return tferrors.BackendError{Op: op, Table: table, Err: err}
}
