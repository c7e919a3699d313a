// Package engine owns the task collection and runs every lifecycle
// operation against it, persisting to the remote store while it is
// reachable and to local storage otherwise.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/mode"
	"github.com/abatilo/taskflow/internal/remote"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/storage"
	"github.com/abatilo/taskflow/internal/task"
)

// Options configures an Engine.
type Options struct {
	// Local is required.
	Local *storage.Local
	// Remote may be nil when no remote store is configured.
	Remote remote.Client
	// Mode defaults to a fresh selector.
	Mode   *mode.Selector
	Logger *slog.Logger
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Retention bounds the history log; <= 0 uses history.DefaultRetention.
	Retention int
}

// Engine is the task/time-tracking state machine. It is safe for concurrent use.
type Engine struct {
	mu     sync.Mutex
	tasks  []task.Task
	ledger *session.Ledger
	log    *history.Log

	local  *storage.Local
	remote remote.Client
	mode   *mode.Selector
	logger *slog.Logger
	now    func() time.Time

	remoteStrategy persister
	localStrategy  persister

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// New determines the persistence mode and loads the three collections.
func New(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Local == nil {
		return nil, errors.New("engine: local storage is required")
	}
	e := &Engine{
		local:  opts.Local,
		remote: opts.Remote,
		mode:   opts.Mode,
		logger: opts.Logger,
		now:    opts.Clock,
		subs:   make(map[int]func(Event)),
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.mode == nil {
		e.mode = mode.NewSelector(e.logger)
	}
	if e.now == nil {
		e.now = time.Now
	}
	e.localStrategy = &localStrategy{local: e.local}
	if e.remote != nil {
		e.remoteStrategy = &remoteStrategy{client: e.remote}
	}

	var prober mode.Prober
	if e.remote != nil {
		prober = e.remote
	}
	e.mode.Determine(ctx, prober)
	e.load(ctx, opts.Retention)
	return e, nil
}

func (e *Engine) load(ctx context.Context, retention int) {
	if e.mode.Online() {
		err := e.loadRemote(ctx, retention)
		if err == nil {
			return
		}
		e.mode.Downgrade(err)
	}
	e.tasks = e.local.LoadTasks()
	e.ledger = session.NewLedger(e.local.LoadSessions())
	e.log = history.NewLog(e.local.LoadHistory(), retention)
	task.SortNewestFirst(e.tasks)
}

func (e *Engine) loadRemote(ctx context.Context, retention int) error {
	tasks, err := e.remote.ListTasks(ctx)
	if err != nil {
		return err
	}
	if retention <= 0 {
		retention = history.DefaultRetention
	}
	entries, err := e.remote.ListHistory(ctx, "", retention)
	if err != nil {
		return err
	}
	sessions, err := e.remote.ListSessions(ctx)
	if err != nil {
		return err
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	e.tasks = tasks
	e.ledger = session.NewLedger(sessions)
	e.log = history.NewLog(entries, retention)
	return nil
}

// Close releases the remote client and local storage.
func (e *Engine) Close() error {
	var errs []error
	if e.remote != nil {
		errs = append(errs, e.remote.Close())
	}
	errs = append(errs, e.local.KV().Close())
	return errors.Join(errs...)
}

// Tasks returns every task, newest first.
func (e *Engine) Tasks() []task.Task {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]task.Task(nil), e.tasks...)
}

// Task returns the task with id.
func (e *Engine) Task(id string) (task.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i := e.find(id)
	if i < 0 {
		return task.Task{}, false
	}
	return e.tasks[i], true
}

// ActiveTask returns the task currently being timed, if any.
func (e *Engine) ActiveTask() (task.Task, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return task.FindActive(e.tasks)
}

// Online reports whether the remote store backs the engine.
func (e *Engine) Online() bool {
	return e.mode.Online()
}

// Mode returns the persistence mode.
func (e *Engine) Mode() mode.State {
	return e.mode.State()
}

// Sessions returns every time session, newest first.
func (e *Engine) Sessions() []session.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Sessions()
}

// TimeAnalytics summarizes closed sessions.
func (e *Engine) TimeAnalytics() session.Analytics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Analytics(e.lookup)
}

// Stats counts tasks by state.
func (e *Engine) Stats() task.Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return task.ComputeStats(e.tasks, e.now())
}

// TaskHistory returns up to history.QueryLimit entries, newest first, for
// taskID or for all tasks when taskID is empty. Online it queries the remote
// store; a failed read downgrades to offline and answers from the local log.
func (e *Engine) TaskHistory(ctx context.Context, taskID string) []history.Entry {
	if e.remote != nil && e.mode.Online() {
		entries, err := e.remote.ListHistory(ctx, taskID, history.QueryLimit)
		if err == nil {
			if entries == nil {
				entries = []history.Entry{}
			}
			return entries
		}
		e.mode.Downgrade(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Query(taskID)
}

// find returns the index of id in e.tasks or -1. Callers hold e.mu.
func (e *Engine) find(id string) int {
	for i := range e.tasks {
		if e.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func (e *Engine) lookup(id string) (task.Task, bool) {
	i := e.find(id)
	if i < 0 {
		return task.Task{}, false
	}
	return e.tasks[i], true
}

// ActiveElapsed returns the active task and the seconds accrued in its open
// session. A stale active flag without a session reports zero.
func (e *Engine) ActiveElapsed() (task.Task, int64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := task.FindActive(e.tasks)
	if !ok {
		return task.Task{}, 0, false
	}
	s, open := e.ledger.OpenFor(t.ID)
	if !open {
		return t, 0, true
	}
	return t, s.Elapsed(e.now()), true
}

// OfflineCause returns the error that put the engine offline, if any.
func (e *Engine) OfflineCause() error {
	return e.mode.Cause()
}
