package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

type recorded struct {
	Method string
	Path   string
	Query  map[string][]string
	Header http.Header
	Body   []byte
}

// fakePostgREST records every request and answers with the handler's response.
type fakePostgREST struct {
	mu       sync.Mutex
	requests []recorded
	status   int
	response string
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	status, response := f.status, f.response
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, response)
}

func (f *fakePostgREST) last() recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestREST(t *testing.T, f *fakePostgREST) *REST {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	c, err := NewREST(srv.URL+"/", "anon-key", time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestNewRESTRequiresSettings(t *testing.T) {
	_, err := NewREST("", "", time.Second, nil)
	var notConfigured tferrors.NotConfiguredError
	require.ErrorAs(t, err, &notConfigured)
	assert.Equal(t, []string{"remote.url", "remote.anon_key"}, notConfigured.Missing)
}

func TestNew(t *testing.T) {
	c, err := New(Config{Driver: DriverNone}, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(Config{Driver: DriverREST}, nil)
	require.Error(t, err)
	assert.Nil(t, c, "a failed constructor must not return a typed nil client")

	_, err = New(Config{Driver: DriverPostgres}, nil)
	var notConfigured tferrors.NotConfiguredError
	assert.ErrorAs(t, err, &notConfigured)

	_, err = New(Config{Driver: "mongo"}, nil)
	assert.Error(t, err)

	c, err = New(Config{URL: "https://example.supabase.co", AnonKey: "k"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &REST{}, c)
}

func TestRESTPing(t *testing.T) {
	f := &fakePostgREST{response: `[]`}
	c := newTestREST(t, f)

	require.NoError(t, c.Ping(context.Background()))
	req := f.last()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.Equal(t, "/rest/v1/tasks", req.Path)
	assert.Equal(t, []string{"id"}, req.Query["select"])
	assert.Equal(t, []string{"1"}, req.Query["limit"])
	assert.Equal(t, "anon-key", req.Header.Get("apikey"))
	assert.Equal(t, "Bearer anon-key", req.Header.Get("Authorization"))
}

func TestRESTFailureIsBackendError(t *testing.T) {
	f := &fakePostgREST{status: http.StatusInternalServerError, response: `{"message":"relation does not exist","code":"42P01"}`}
	c := newTestREST(t, f)

	_, err := c.ListTasks(context.Background())
	var backend tferrors.BackendError
	require.ErrorAs(t, err, &backend)
	assert.Equal(t, TableTasks, backend.Table)
	assert.Contains(t, err.Error(), "relation does not exist")
}

func TestRESTUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewREST(srv.URL, "k", time.Second, nil)
	require.NoError(t, err)

	var backend tferrors.BackendError
	assert.ErrorAs(t, c.Ping(context.Background()), &backend)
}

func TestRESTListTasks(t *testing.T) {
	f := &fakePostgREST{response: `[{"id":"t1","title":"One","description":null,"priority":"high","category":"Work","due_date":"2024-02-01","total_time_spent":30,"is_active":true}]`}
	c := newTestREST(t, f)

	tasks, err := c.ListTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "One", tasks[0].Title)
	assert.Equal(t, "", tasks[0].Description)
	assert.Equal(t, "2024-02-01", tasks[0].DueDate.String())
	assert.Equal(t, []string{"created_at.desc"}, f.last().Query["order"])
}

func TestRESTInsertTask(t *testing.T) {
	f := &fakePostgREST{status: http.StatusCreated, response: `[{"id":"t1","title":"Stored"}]`}
	c := newTestREST(t, f)

	got, err := c.InsertTask(context.Background(), task.Task{ID: "t1", Title: "Sent"})
	require.NoError(t, err)
	assert.Equal(t, "Stored", got.Title)

	req := f.last()
	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "return=representation", req.Header.Get("Prefer"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, "Sent", body["title"])
}

func TestRESTUpdateTaskSendsPatchOnly(t *testing.T) {
	f := &fakePostgREST{status: http.StatusNoContent}
	c := newTestREST(t, f)
	at := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	err := c.UpdateTask(context.Background(), "t1", task.Patch{IsActive: task.Ptr(false), TotalTimeSpent: task.Ptr[int64](90)}, at)
	require.NoError(t, err)

	req := f.last()
	assert.Equal(t, http.MethodPatch, req.Method)
	assert.Equal(t, []string{"eq.t1"}, req.Query["id"])
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &body))
	assert.Equal(t, map[string]any{
		"is_active":        false,
		"total_time_spent": float64(90),
		"updated_at":       "2024-01-15T10:00:00Z",
	}, body)
}

func TestRESTDeleteTask(t *testing.T) {
	f := &fakePostgREST{status: http.StatusNoContent}
	c := newTestREST(t, f)

	require.NoError(t, c.DeleteTask(context.Background(), "t1"))
	req := f.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, []string{"eq.t1"}, req.Query["id"])
}

func TestRESTSessions(t *testing.T) {
	f := &fakePostgREST{status: http.StatusCreated}
	c := newTestREST(t, f)
	t0 := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	end := t0.Add(time.Minute)
	d := int64(60)

	require.NoError(t, c.InsertSession(context.Background(), session.Session{ID: "s1", TaskID: "t1", StartedAt: t0, CreatedAt: t0}))
	assert.Equal(t, "/rest/v1/time_sessions", f.last().Path)

	require.NoError(t, c.UpdateSession(context.Background(), session.Session{ID: "s1", EndedAt: &end, Duration: &d}))
	req := f.last()
	assert.Equal(t, []string{"eq.s1"}, req.Query["id"])
	assert.JSONEq(t, `{"ended_at":"2024-01-15T10:01:00Z","duration":60}`, string(req.Body))
}

func TestRESTListHistory(t *testing.T) {
	f := &fakePostgREST{response: `[{"id":"h1","task_id":"t1","action":"created","timestamp":"2024-01-15T10:00:00Z"}]`}
	c := newTestREST(t, f)

	entries, err := c.ListHistory(context.Background(), "t1", history.QueryLimit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, history.ActionCreated, entries[0].Action)

	req := f.last()
	assert.Equal(t, "/rest/v1/task_history", req.Path)
	assert.Equal(t, []string{"eq.t1"}, req.Query["task_id"])
	assert.Equal(t, []string{"50"}, req.Query["limit"])
	assert.Equal(t, []string{"timestamp.desc"}, req.Query["order"])
}

func TestRESTInsertHistoryBatch(t *testing.T) {
	f := &fakePostgREST{status: http.StatusCreated}
	c := newTestREST(t, f)
	now := time.Now()

	require.NoError(t, c.InsertHistory(context.Background()))
	assert.Empty(t, f.requests, "empty batch should not hit the network")

	err := c.InsertHistory(context.Background(),
		history.NewEntry("t1", history.ActionUpdated, nil, map[string]any{"is_active": true}, now),
		history.NewEntry("t1", history.ActionStarted, nil, nil, now),
	)
	require.NoError(t, err)
	var body []map[string]any
	require.NoError(t, json.Unmarshal(f.last().Body, &body))
	require.Len(t, body, 2)
	assert.Equal(t, "updated", body[0]["action"])
	assert.Equal(t, "started", body[1]["action"])
}

func TestPatchColumns(t *testing.T) {
	due := task.NewDate(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	cols, args := patchColumns(task.Patch{
		Title:    task.Ptr("New"),
		DueDate:  &due,
		IsActive: task.Ptr(true),
	})
	assert.Equal(t, []string{"title", "due_date", "is_active"}, cols)
	assert.Equal(t, []any{"New", due.Time, true}, args)

	cols, args = patchColumns(task.Patch{})
	assert.Empty(t, cols)
	assert.Empty(t, args)
}

func TestPgErrPassesThrough(t *testing.T) {
	plain := errors.New("boom")
	assert.Same(t, plain, pgErr(plain))
	assert.NoError(t, pgErr(nil))
}
