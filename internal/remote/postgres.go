package remote

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

const taskColumns = `id, title, description, completed, priority, due_date, category,
	created_at, updated_at, started_at, completed_at, total_time_spent, is_active`

// Postgres talks to the same tables directly over the Postgres wire protocol.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
	logger  *slog.Logger
}

// NewPostgres opens a connection pool for dsn. No query is issued until Ping.
func NewPostgres(dsn string, timeout time.Duration, logger *slog.Logger) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, tferrors.NotConfiguredError{Missing: []string{"remote.dsn"}}
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return NewPostgresDB(db, timeout, logger), nil
}

// NewPostgresDB wraps an existing pool.
func NewPostgresDB(db *sql.DB, timeout time.Duration, logger *slog.Logger) *Postgres {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{db: db, timeout: timeout, logger: logger}
}

func (p *Postgres) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	var id string
	err := p.db.QueryRowContext(ctx, `SELECT id FROM tasks LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		err = nil
	}
	return backendErr("ping", TableTasks, pgErr(err))
}

func (p *Postgres) ListTasks(ctx context.Context) ([]task.Task, error) {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY created_at DESC`)
	if err != nil {
		return nil, backendErr("list", TableTasks, pgErr(err))
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, backendErr("list", TableTasks, err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list", TableTasks, pgErr(err))
	}
	return tasks, nil
}

func (p *Postgres) InsertTask(ctx context.Context, t task.Task) (task.Task, error) {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	var due any
	if t.DueDate != nil {
		due = t.DueDate.Time
	}
	row := p.db.QueryRowContext(ctx, `INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING `+taskColumns,
		t.ID, t.Title, t.Description, t.Completed, string(t.Priority), due, t.Category,
		t.CreatedAt, t.UpdatedAt, t.StartedAt, t.CompletedAt, t.TotalTimeSpent, t.IsActive)
	inserted, err := scanTask(row)
	if err != nil {
		return task.Task{}, backendErr("insert", TableTasks, err)
	}
	return inserted, nil
}

func (p *Postgres) UpdateTask(ctx context.Context, id string, patch task.Patch, updatedAt time.Time) error {
	sets, args := patchColumns(patch)
	sets = append(sets, "updated_at")
	args = append(args, updatedAt)

	assignments := make([]string, len(sets))
	for i, col := range sets {
		assignments[i] = col + " = $" + strconv.Itoa(i+1)
	}
	args = append(args, id)
	query := `UPDATE tasks SET ` + strings.Join(assignments, ", ") + ` WHERE id = $` + strconv.Itoa(len(args))

	ctx, cancel := p.ctx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx, query, args...)
	return backendErr("update", TableTasks, pgErr(err))
}

// patchColumns lists the supplied patch fields in a fixed column order.
func patchColumns(patch task.Patch) ([]string, []any) {
	var cols []string
	var args []any
	add := func(col string, v any) {
		cols = append(cols, col)
		args = append(args, v)
	}
	if patch.Title != nil {
		add("title", *patch.Title)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.Completed != nil {
		add("completed", *patch.Completed)
	}
	if patch.Priority != nil {
		add("priority", string(*patch.Priority))
	}
	if patch.DueDate != nil {
		add("due_date", patch.DueDate.Time)
	}
	if patch.Category != nil {
		add("category", *patch.Category)
	}
	if patch.StartedAt != nil {
		add("started_at", *patch.StartedAt)
	}
	if patch.CompletedAt != nil {
		add("completed_at", *patch.CompletedAt)
	}
	if patch.TotalTimeSpent != nil {
		add("total_time_spent", *patch.TotalTimeSpent)
	}
	if patch.IsActive != nil {
		add("is_active", *patch.IsActive)
	}
	return cols, args
}

func (p *Postgres) DeleteTask(ctx context.Context, id string) error {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return backendErr("delete", TableTasks, pgErr(err))
}

func (p *Postgres) ListSessions(ctx context.Context) ([]session.Session, error) {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx, `SELECT id, task_id, started_at, ended_at, duration, created_at
		FROM time_sessions ORDER BY started_at DESC`)
	if err != nil {
		return nil, backendErr("list", TableSessions, pgErr(err))
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		var (
			s        session.Session
			endedAt  sql.NullTime
			duration sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.TaskID, &s.StartedAt, &endedAt, &duration, &s.CreatedAt); err != nil {
			return nil, backendErr("list", TableSessions, err)
		}
		if endedAt.Valid {
			s.EndedAt = &endedAt.Time
		}
		if duration.Valid {
			s.Duration = &duration.Int64
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list", TableSessions, pgErr(err))
	}
	return sessions, nil
}

func (p *Postgres) InsertSession(ctx context.Context, s session.Session) error {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `INSERT INTO time_sessions (id, task_id, started_at, ended_at, duration, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.TaskID, s.StartedAt, s.EndedAt, s.Duration, s.CreatedAt)
	return backendErr("insert", TableSessions, pgErr(err))
}

func (p *Postgres) UpdateSession(ctx context.Context, s session.Session) error {
	ctx, cancel := p.ctx(ctx)
	defer cancel()
	_, err := p.db.ExecContext(ctx, `UPDATE time_sessions SET ended_at = $1, duration = $2 WHERE id = $3`,
		s.EndedAt, s.Duration, s.ID)
	return backendErr("update", TableSessions, pgErr(err))
}

func (p *Postgres) ListHistory(ctx context.Context, taskID string, limit int) ([]history.Entry, error) {
	query := `SELECT id, task_id, action, old_values, new_values, timestamp FROM task_history`
	var args []any
	if taskID != "" {
		args = append(args, taskID)
		query += ` WHERE task_id = $1`
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		args = append(args, limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}

	ctx, cancel := p.ctx(ctx)
	defer cancel()
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, backendErr("list", TableHistory, pgErr(err))
	}
	defer rows.Close()

	var entries []history.Entry
	for rows.Next() {
		var (
			e                history.Entry
			action           string
			oldVals, newVals []byte
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &action, &oldVals, &newVals, &e.Timestamp); err != nil {
			return nil, backendErr("list", TableHistory, err)
		}
		e.Action = history.Action(action)
		e.OldValues = oldVals
		e.NewValues = newVals
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, backendErr("list", TableHistory, pgErr(err))
	}
	return entries, nil
}

func (p *Postgres) InsertHistory(ctx context.Context, entries ...history.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ctx, cancel := p.ctx(ctx)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return backendErr("insert", TableHistory, pgErr(err))
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO task_history (id, task_id, action, old_values, new_values, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return backendErr("insert", TableHistory, pgErr(err))
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, e.TaskID, string(e.Action), jsonb(e.OldValues), jsonb(e.NewValues), e.Timestamp); err != nil {
			return backendErr("insert", TableHistory, pgErr(err))
		}
	}
	return backendErr("insert", TableHistory, pgErr(tx.Commit()))
}

func (p *Postgres) Close() error {
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t           task.Task
		description sql.NullString
		priority    string
		dueDate     sql.NullTime
		startedAt   sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&t.ID, &t.Title, &description, &t.Completed, &priority, &dueDate, &t.Category,
		&t.CreatedAt, &t.UpdatedAt, &startedAt, &completedAt, &t.TotalTimeSpent, &t.IsActive)
	if err != nil {
		return task.Task{}, pgErr(err)
	}
	t.Description = description.String
	t.Priority = task.Priority(priority)
	if dueDate.Valid {
		d := task.NewDate(dueDate.Time)
		t.DueDate = &d
	}
	if startedAt.Valid {
		t.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}
	return t, nil
}

// jsonb passes an empty payload as SQL NULL.
func jsonb(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

// pgErr annotates server errors with their SQLSTATE name.
func pgErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("%s (%s): %w", pqErr.Code.Name(), pqErr.Code, err)
	}
	return err
}
