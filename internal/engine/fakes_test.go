//nolint:testpackage // Tests require internal access for thorough testing
package engine

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/remote"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

var errRemoteDown = errors.New("remote unavailable")

// fakeRemote is an in-memory remote.Client. Methods named in fail return
// a BackendError instead of doing anything.
type fakeRemote struct {
	mu       sync.Mutex
	tasks    map[string]task.Task
	sessions map[string]session.Session
	history  []history.Entry
	fail     map[string]bool
	calls    map[string]int
}

var _ remote.Client = (*fakeRemote)(nil)

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		tasks:    make(map[string]task.Task),
		sessions: make(map[string]session.Session),
		fail:     make(map[string]bool),
		calls:    make(map[string]int),
	}
}

func (f *fakeRemote) failOn(methods ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range methods {
		f.fail[m] = true
	}
}

func (f *fakeRemote) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// enter records the call and reports the injected failure. Callers hold f.mu.
func (f *fakeRemote) enter(method, table string) error {
	f.calls[method]++
	if f.fail[method] {
		return tferrors.BackendError{Op: method, Table: table, Err: errRemoteDown}
	}
	return nil
}

func (f *fakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enter("Ping", remote.TableTasks)
}

func (f *fakeRemote) ListTasks(context.Context) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListTasks", remote.TableTasks); err != nil {
		return nil, err
	}
	out := make([]task.Task, 0, len(f.tasks))
	for _, t := range f.tasks {
		out = append(out, t)
	}
	task.SortNewestFirst(out)
	return out, nil
}

func (f *fakeRemote) InsertTask(_ context.Context, t task.Task) (task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertTask", remote.TableTasks); err != nil {
		return task.Task{}, err
	}
	f.tasks[t.ID] = t
	return t, nil
}

func (f *fakeRemote) UpdateTask(_ context.Context, id string, patch task.Patch, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateTask", remote.TableTasks); err != nil {
		return err
	}
	t := f.tasks[id]
	patch.Apply(&t, at)
	f.tasks[id] = t
	return nil
}

func (f *fakeRemote) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteTask", remote.TableTasks); err != nil {
		return err
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeRemote) ListSessions(context.Context) ([]session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListSessions", remote.TableSessions); err != nil {
		return nil, err
	}
	out := make([]session.Session, 0, len(f.sessions))
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeRemote) InsertSession(_ context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertSession", remote.TableSessions); err != nil {
		return err
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeRemote) UpdateSession(_ context.Context, s session.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateSession", remote.TableSessions); err != nil {
		return err
	}
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeRemote) ListHistory(_ context.Context, taskID string, limit int) ([]history.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("ListHistory", remote.TableHistory); err != nil {
		return nil, err
	}
	sorted := append([]history.Entry(nil), f.history...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Timestamp.After(sorted[j].Timestamp) })
	return history.Filter(sorted, taskID, limit), nil
}

func (f *fakeRemote) InsertHistory(_ context.Context, entries ...history.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("InsertHistory", remote.TableHistory); err != nil {
		return err
	}
	f.history = append(f.history, entries...)
	return nil
}

func (f *fakeRemote) Close() error { return nil }

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
