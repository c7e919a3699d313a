package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abatilo/taskflow/internal/engine"
	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/output"
	"github.com/abatilo/taskflow/internal/task"
)

// createRequest is the body of POST /api/tasks. Template fills fields the
// request leaves empty.
type createRequest struct {
	task.NewTask
	Template string `json:"template,omitempty"`
}

func (s *Server) ok(c *gin.Context, status int, data any) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case tferrors.IsValidation(err):
		status = http.StatusBadRequest
	case tferrors.IsNotFound(err):
		status = http.StatusNotFound
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// resolveID accepts a full id or any unique prefix of one.
func (s *Server) resolveID(c *gin.Context) (string, bool) {
	tasks := s.engine.Tasks()
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	id, err := task.ResolveID(c.Param("id"), ids)
	if err != nil {
		s.fail(c, err)
		return "", false
	}
	return id, true
}

func (s *Server) handleListTasks(c *gin.Context) {
	filter := task.Filter{Category: c.Query("category")}
	switch c.Query("status") {
	case "pending":
		filter.Pending = true
	case "completed":
		filter.Completed = true
	}

	tasks := filter.Apply(s.engine.Tasks())
	if c.Query("sort") == "priority" {
		task.SortByPriority(tasks)
	}
	s.ok(c, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, tferrors.ValidationError{Field: "body", Reason: err.Error()})
		return
	}

	n := req.NewTask
	if req.Template != "" {
		tpl, ok := task.FindTemplate(req.Template)
		if !ok {
			s.fail(c, tferrors.ValidationError{Field: "template", Reason: "unknown template " + req.Template})
			return
		}
		n = tpl.Merge(n)
	}

	created, err := s.engine.AddTask(c.Request.Context(), n)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusCreated, created)
}

func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	t, found := s.engine.Task(id)
	if !found {
		s.fail(c, tferrors.TaskNotFoundError{ID: id})
		return
	}
	s.ok(c, http.StatusOK, t)
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	var patch task.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		s.fail(c, tferrors.ValidationError{Field: "body", Reason: err.Error()})
		return
	}
	updated, err := s.engine.UpdateTask(c.Request.Context(), id, patch)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	removed, err := s.engine.DeleteTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, removed)
}

func (s *Server) handleStartTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	t, err := s.engine.StartTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, t)
}

func (s *Server) handlePauseTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	t, err := s.engine.PauseTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, t)
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	id, ok := s.resolveID(c)
	if !ok {
		return
	}
	t, err := s.engine.CompleteTask(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, t)
}

func (s *Server) handleActive(c *gin.Context) {
	var active output.Active
	if t, current, ok := s.engine.ActiveElapsed(); ok {
		active = output.Active{Task: &t, Current: current}
	}
	s.ok(c, http.StatusOK, gin.H{
		"task":                    active.Task,
		"current_session_seconds": active.Current,
		"total_seconds":           active.Total(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	s.ok(c, http.StatusOK, s.engine.TaskHistory(c.Request.Context(), c.Query("task_id")))
}

func (s *Server) handleSessions(c *gin.Context) {
	s.ok(c, http.StatusOK, s.engine.Sessions())
}

func (s *Server) handleAnalytics(c *gin.Context) {
	s.ok(c, http.StatusOK, s.engine.TimeAnalytics())
}

func (s *Server) handleStats(c *gin.Context) {
	s.ok(c, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleMode(c *gin.Context) {
	status := output.ModeStatus{
		Mode:       s.engine.Mode(),
		Driver:     s.driver,
		Configured: s.driver != "",
	}
	if err := s.engine.OfflineCause(); err != nil {
		status.Cause = err.Error()
	}
	s.ok(c, http.StatusOK, status)
}

func (s *Server) handleTemplates(c *gin.Context) {
	templates, err := task.Templates()
	if err != nil {
		s.fail(c, err)
		return
	}
	s.ok(c, http.StatusOK, templates)
}

// eventBuffer bounds the events queued for one stream client.
const eventBuffer = 32

// handleEvents streams committed operations as server-sent events until the
// client disconnects. A client that falls behind loses events.
func (s *Server) handleEvents(c *gin.Context) {
	events := make(chan engine.Event, eventBuffer)
	unsubscribe := s.engine.Subscribe(func(ev engine.Event) {
		select {
		case events <- ev:
		default:
			s.logger.Warn("event stream client too slow, dropping event", "op", ev.Op, "task", ev.TaskID)
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			c.SSEvent(string(ev.Op), ev)
			c.Writer.Flush()
		}
	}
}
