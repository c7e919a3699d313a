//nolint:testpackage // Tests require internal access for thorough testing
package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abatilo/taskflow/internal/engine"
	"github.com/abatilo/taskflow/internal/storage"
	"github.com/abatilo/taskflow/internal/task"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestServer(t *testing.T) (*Server, *engine.Engine) {
	t.Helper()
	e, err := engine.New(context.Background(), engine.Options{
		Local: storage.NewLocal(storage.NewMemoryKV(), nil),
	})
	require.NoError(t, err)
	return New(Options{Engine: e}), e
}

func do(t *testing.T, s *Server, method, path string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func createTask(t *testing.T, s *Server, title string) task.Task {
	t.Helper()
	code, env := do(t, s, http.MethodPost, "/api/tasks", map[string]any{"title": title})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created task.Task
	require.NoError(t, json.Unmarshal(env.Data, &created))
	return created
}

func TestCreateAndGetTask(t *testing.T) {
	s, _ := newTestServer(t)
	created := createTask(t, s, "Write report")

	assert.Equal(t, "Write report", created.Title)
	assert.Equal(t, task.PriorityMedium, created.Priority)

	code, env := do(t, s, http.MethodGet, "/api/tasks/"+created.ID[:8], nil)
	require.Equal(t, http.StatusOK, code)
	var got task.Task
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID, got.ID)
}

func TestCreateTaskValidation(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"empty title", map[string]any{"title": "  "}},
		{"bad priority", map[string]any{"title": "x", "priority": "urgent"}},
		{"bad due date", map[string]any{"title": "x", "due_date": "tomorrow"}},
		{"unknown template", map[string]any{"template": "nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := do(t, s, http.MethodPost, "/api/tasks", tt.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, env.Success)
			assert.NotEmpty(t, env.Error)
		})
	}
}

func TestCreateTaskFromTemplate(t *testing.T) {
	s, _ := newTestServer(t)
	templates, err := task.Templates()
	require.NoError(t, err)
	require.NotEmpty(t, templates)
	tpl := templates[0]

	code, env := do(t, s, http.MethodPost, "/api/tasks", map[string]any{"template": tpl.ID})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created task.Task
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, tpl.Title, created.Title)
	assert.Equal(t, tpl.Category, created.Category)
}

func TestTaskNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/api/tasks/missing", "/api/tasks/missing/start"} {
		method := http.MethodGet
		if path != "/api/tasks/missing" {
			method = http.MethodPost
		}
		code, env := do(t, s, method, path, nil)
		assert.Equal(t, http.StatusNotFound, code, path)
		assert.False(t, env.Success)
	}
}

func TestLifecycle(t *testing.T) {
	s, e := newTestServer(t)
	a := createTask(t, s, "A")
	b := createTask(t, s, "B")

	code, _ := do(t, s, http.MethodPost, "/api/tasks/"+a.ID+"/start", nil)
	require.Equal(t, http.StatusOK, code)
	code, _ = do(t, s, http.MethodPost, "/api/tasks/"+b.ID+"/start", nil)
	require.Equal(t, http.StatusOK, code)

	active, ok := e.ActiveTask()
	require.True(t, ok)
	assert.Equal(t, b.ID, active.ID)

	code, env := do(t, s, http.MethodGet, "/api/active", nil)
	require.Equal(t, http.StatusOK, code)
	var body struct {
		Task *task.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	require.NotNil(t, body.Task)
	assert.Equal(t, b.ID, body.Task.ID)

	code, env = do(t, s, http.MethodPost, "/api/tasks/"+b.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, code)
	var done task.Task
	require.NoError(t, json.Unmarshal(env.Data, &done))
	assert.True(t, done.Completed)
	assert.False(t, done.IsActive)

	code, _ = do(t, s, http.MethodPost, "/api/tasks/"+a.ID+"/pause", nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = do(t, s, http.MethodGet, "/api/history?task_id="+b.ID, nil)
	require.Equal(t, http.StatusOK, code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.NotEmpty(t, entries)
	assert.Equal(t, "completed", entries[0]["action"])
}

func TestUpdateAndDeleteTask(t *testing.T) {
	s, e := newTestServer(t)
	a := createTask(t, s, "A")

	code, env := do(t, s, http.MethodPatch, "/api/tasks/"+a.ID, map[string]any{"title": "Renamed", "priority": "high"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var updated task.Task
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, task.PriorityHigh, updated.Priority)

	code, _ = do(t, s, http.MethodPatch, "/api/tasks/"+a.ID, map[string]any{"title": ""})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = do(t, s, http.MethodPatch, "/api/tasks/"+a.ID, map[string]any{"total_time_spent": 600})
	assert.Equal(t, http.StatusBadRequest, code, "time accrues only from sessions")

	code, _ = do(t, s, http.MethodDelete, "/api/tasks/"+a.ID, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, e.Tasks())
}

func TestListTasksFilters(t *testing.T) {
	s, _ := newTestServer(t)
	createTask(t, s, "open")
	done := createTask(t, s, "done")
	code, _ := do(t, s, http.MethodPost, "/api/tasks/"+done.ID+"/complete", nil)
	require.Equal(t, http.StatusOK, code)

	code, env := do(t, s, http.MethodGet, "/api/tasks?status=pending", nil)
	require.Equal(t, http.StatusOK, code)
	var tasks []task.Task
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "open", tasks[0].Title)
}

func TestStatsModeAndTemplates(t *testing.T) {
	s, _ := newTestServer(t)
	createTask(t, s, "A")

	code, env := do(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, code)
	var stats task.Stats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 1, stats.Total)

	code, env = do(t, s, http.MethodGet, "/api/mode", nil)
	require.Equal(t, http.StatusOK, code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, "offline", status["mode"])
	assert.Equal(t, false, status["configured"])

	code, _ = do(t, s, http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = do(t, s, http.MethodGet, "/api/analytics", nil)
	assert.Equal(t, http.StatusOK, code)
}

func TestEventsStream(t *testing.T) {
	s, e := newTestServer(t)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	created, err := e.AddTask(context.Background(), task.NewTask{Title: "Streamed"})
	require.NoError(t, err)

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 2 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, "event:add", lines[0])
	assert.Contains(t, lines[1], created.ID)
}
