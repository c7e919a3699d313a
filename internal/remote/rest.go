package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

const restPrefix = "/rest/v1/"

// REST is a PostgREST client for a Supabase-style project.
type REST struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *slog.Logger
}

// restError is the PostgREST error body.
type restError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// NewREST creates a REST client. Both baseURL and apiKey are required.
func NewREST(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) (*REST, error) {
	var missing []string
	if strings.TrimSpace(baseURL) == "" {
		missing = append(missing, "remote.url")
	}
	if strings.TrimSpace(apiKey) == "" {
		missing = append(missing, "remote.anon_key")
	}
	if len(missing) > 0 {
		return nil, tferrors.NotConfiguredError{Missing: missing}
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid remote url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &REST{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}, nil
}

func (c *REST) Ping(ctx context.Context) error {
	q := url.Values{"select": {"id"}, "limit": {"1"}}
	var rows []struct {
		ID string `json:"id"`
	}
	return backendErr("ping", TableTasks, c.do(ctx, http.MethodGet, TableTasks, q, nil, &rows))
}

func (c *REST) ListTasks(ctx context.Context) ([]task.Task, error) {
	q := url.Values{"select": {"*"}, "order": {"created_at.desc"}}
	var tasks []task.Task
	if err := c.do(ctx, http.MethodGet, TableTasks, q, nil, &tasks); err != nil {
		return nil, backendErr("list", TableTasks, err)
	}
	return tasks, nil
}

func (c *REST) InsertTask(ctx context.Context, t task.Task) (task.Task, error) {
	var rows []task.Task
	if err := c.do(ctx, http.MethodPost, TableTasks, nil, t, &rows); err != nil {
		return task.Task{}, backendErr("insert", TableTasks, err)
	}
	if len(rows) == 0 {
		return t, nil
	}
	return rows[0], nil
}

func (c *REST) UpdateTask(ctx context.Context, id string, patch task.Patch, updatedAt time.Time) error {
	body, err := updateBody(patch, updatedAt)
	if err != nil {
		return backendErr("update", TableTasks, err)
	}
	return backendErr("update", TableTasks, c.do(ctx, http.MethodPatch, TableTasks, eqID(id), body, nil))
}

func (c *REST) DeleteTask(ctx context.Context, id string) error {
	return backendErr("delete", TableTasks, c.do(ctx, http.MethodDelete, TableTasks, eqID(id), nil, nil))
}

func (c *REST) ListSessions(ctx context.Context) ([]session.Session, error) {
	q := url.Values{"select": {"*"}, "order": {"started_at.desc"}}
	var sessions []session.Session
	if err := c.do(ctx, http.MethodGet, TableSessions, q, nil, &sessions); err != nil {
		return nil, backendErr("list", TableSessions, err)
	}
	return sessions, nil
}

func (c *REST) InsertSession(ctx context.Context, s session.Session) error {
	return backendErr("insert", TableSessions, c.do(ctx, http.MethodPost, TableSessions, nil, s, nil))
}

func (c *REST) UpdateSession(ctx context.Context, s session.Session) error {
	body := map[string]any{"ended_at": s.EndedAt, "duration": s.Duration}
	return backendErr("update", TableSessions, c.do(ctx, http.MethodPatch, TableSessions, eqID(s.ID), body, nil))
}

func (c *REST) ListHistory(ctx context.Context, taskID string, limit int) ([]history.Entry, error) {
	q := url.Values{"select": {"*"}, "order": {"timestamp.desc"}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if taskID != "" {
		q.Set("task_id", "eq."+taskID)
	}
	var entries []history.Entry
	if err := c.do(ctx, http.MethodGet, TableHistory, q, nil, &entries); err != nil {
		return nil, backendErr("list", TableHistory, err)
	}
	return entries, nil
}

func (c *REST) InsertHistory(ctx context.Context, entries ...history.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return backendErr("insert", TableHistory, c.do(ctx, http.MethodPost, TableHistory, nil, entries, nil))
}

// Close releases idle connections.
func (c *REST) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func eqID(id string) url.Values {
	return url.Values{"id": {"eq." + id}}
}

// do sends one request. out, when non-nil, receives the decoded response body.
func (c *REST) do(ctx context.Context, method, table string, query url.Values, body, out any) error {
	endpoint := c.baseURL + restPrefix + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	} else if method != http.MethodGet {
		req.Header.Set("Prefer", "return=minimal")
	}

	c.logger.Debug("remote request", "method", method, "table", table)
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr restError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("HTTP %d: %s (code %s)", resp.StatusCode, apiErr.Message, apiErr.Code)
		}
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
