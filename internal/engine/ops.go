package engine

import (
	"context"
	"time"

	tferrors "github.com/abatilo/taskflow/internal/errors"
	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/task"
)

// run executes fn under the engine lock, commits the txn it built and then
// notifies subscribers. Nothing is committed when fn fails.
func (e *Engine) run(ctx context.Context, op Op, taskID string, fn func(tx *txn, now time.Time) (task.Task, error)) (task.Task, error) {
	e.mu.Lock()
	tx := newTxn(op, taskID)
	t, err := fn(tx, e.now())
	if err != nil {
		e.mu.Unlock()
		return task.Task{}, err
	}
	if tx.taskID == "" {
		tx.taskID = t.ID
	}
	if len(tx.steps) > 0 || len(tx.entries) > 0 {
		e.commit(ctx, tx)
	}
	e.mu.Unlock()

	e.publish(Event{Op: op, TaskID: tx.taskID, Mode: e.mode.State()})
	return t, nil
}

// AddTask creates a task with defaults applied and records a created entry.
func (e *Engine) AddTask(ctx context.Context, n task.NewTask) (task.Task, error) {
	return e.run(ctx, OpAdd, "", func(tx *txn, now time.Time) (task.Task, error) {
		if err := n.Validate(); err != nil {
			return task.Task{}, err
		}
		t := n.Build(task.NewID(), now)
		e.tasks = append([]task.Task{t}, e.tasks...)
		tx.insertTask(t)
		tx.record(t.ID, history.ActionCreated, nil, t, now)
		return t, nil
	})
}

// UpdateTask merges patch into the task. Turning is_active on pauses any
// other active task and opens a session; turning it off closes the session
// and accrues its duration. The updated entry records patch as given.
func (e *Engine) UpdateTask(ctx context.Context, id string, patch task.Patch) (task.Task, error) {
	return e.run(ctx, OpUpdate, id, func(tx *txn, now time.Time) (task.Task, error) {
		i := e.find(id)
		if i < 0 {
			return task.Task{}, tferrors.TaskNotFoundError{ID: id}
		}
		if err := patch.Validate(); err != nil {
			return task.Task{}, err
		}

		staged := patch
		wasActive := e.tasks[i].IsActive
		switch {
		case patch.IsActive != nil && *patch.IsActive && !wasActive:
			e.pauseOthers(tx, id, now)
			if _, open := e.ledger.OpenFor(id); !open {
				tx.insertSession(e.ledger.Open(id, now))
			}
			if staged.StartedAt == nil {
				staged.StartedAt = task.Ptr(now)
			}
		case patch.IsActive != nil && !*patch.IsActive && wasActive:
			if s, ok := e.ledger.Close(id, now); ok {
				tx.closeSession(s)
				staged.TotalTimeSpent = task.Ptr(e.tasks[i].TotalTimeSpent + *s.Duration)
			}
		}

		e.stage(tx, i, staged, now)
		tx.record(id, history.ActionUpdated, nil, patch, now)
		return e.tasks[i], nil
	})
}

// StartTask makes id the active task, pausing whichever task was active.
// Starting the already active task changes nothing.
func (e *Engine) StartTask(ctx context.Context, id string) (task.Task, error) {
	return e.run(ctx, OpStart, id, func(tx *txn, now time.Time) (task.Task, error) {
		i := e.find(id)
		if i < 0 {
			return task.Task{}, tferrors.TaskNotFoundError{ID: id}
		}
		if e.tasks[i].IsActive {
			if _, open := e.ledger.OpenFor(id); open {
				return e.tasks[i], nil
			}
		}

		e.pauseOthers(tx, id, now)
		tx.insertSession(e.ledger.Open(id, now))
		e.update(tx, i, task.Patch{IsActive: task.Ptr(true), StartedAt: task.Ptr(now)}, now)
		tx.record(id, history.ActionStarted, nil, map[string]any{"started_at": now, "is_active": true}, now)
		return e.tasks[i], nil
	})
}

// PauseTask closes the task's open session and adds its duration to
// total_time_spent. Without an open session only the paused entry is recorded.
func (e *Engine) PauseTask(ctx context.Context, id string) (task.Task, error) {
	return e.run(ctx, OpPause, id, func(tx *txn, now time.Time) (task.Task, error) {
		i := e.find(id)
		if i < 0 {
			return task.Task{}, tferrors.TaskNotFoundError{ID: id}
		}
		e.pause(tx, i, now)
		return e.tasks[i], nil
	})
}

// CompleteTask pauses the task if it is active, then marks it completed.
func (e *Engine) CompleteTask(ctx context.Context, id string) (task.Task, error) {
	return e.run(ctx, OpComplete, id, func(tx *txn, now time.Time) (task.Task, error) {
		i := e.find(id)
		if i < 0 {
			return task.Task{}, tferrors.TaskNotFoundError{ID: id}
		}
		if e.tasks[i].IsActive {
			e.pause(tx, i, now)
		}
		e.update(tx, i, task.Patch{
			Completed:   task.Ptr(true),
			CompletedAt: task.Ptr(now),
			IsActive:    task.Ptr(false),
		}, now)
		tx.record(id, history.ActionCompleted, nil, map[string]any{"completed": true, "completed_at": now}, now)
		return e.tasks[i], nil
	})
}

// DeleteTask removes the task. Its sessions, open or not, are kept as orphans.
func (e *Engine) DeleteTask(ctx context.Context, id string) (task.Task, error) {
	return e.run(ctx, OpDelete, id, func(tx *txn, now time.Time) (task.Task, error) {
		i := e.find(id)
		if i < 0 {
			return task.Task{}, tferrors.TaskNotFoundError{ID: id}
		}
		removed := e.tasks[i]
		e.tasks = append(e.tasks[:i:i], e.tasks[i+1:]...)
		tx.deleteTask(id)
		tx.record(id, history.ActionDeleted, removed, nil, now)
		return removed, nil
	})
}

// ImportTasks adds tasks that are not already present, keeping their
// timestamps and accrued time. Imported tasks are never active. It returns
// the tasks actually added.
func (e *Engine) ImportTasks(ctx context.Context, tasks []task.Task) ([]task.Task, error) {
	var added []task.Task
	_, err := e.run(ctx, OpImport, "", func(tx *txn, now time.Time) (task.Task, error) {
		seen := make(map[string]bool)
		for _, t := range tasks {
			if t.ID != "" && (seen[t.ID] || e.find(t.ID) >= 0) {
				continue
			}
			n := task.NewTask{Title: t.Title, Priority: t.Priority}
			if err := n.Validate(); err != nil {
				return task.Task{}, err
			}
			if t.ID == "" {
				t.ID = task.NewID()
			}
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			if t.UpdatedAt.IsZero() {
				t.UpdatedAt = t.CreatedAt
			}
			if t.Priority == "" {
				t.Priority = task.PriorityMedium
			}
			if t.Category == "" {
				t.Category = task.DefaultCategory
			}
			t.IsActive = false
			seen[t.ID] = true
			added = append(added, t)
		}
		for _, t := range added {
			e.tasks = append(e.tasks, t)
			tx.insertTask(t)
			tx.record(t.ID, history.ActionCreated, nil, t, now)
		}
		task.SortNewestFirst(e.tasks)
		return task.Task{}, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

// update is the shared update sub-operation: merge, stage, record. Callers hold e.mu.
func (e *Engine) update(tx *txn, i int, patch task.Patch, now time.Time) {
	e.stage(tx, i, patch, now)
	tx.record(e.tasks[i].ID, history.ActionUpdated, nil, patch, now)
}

// stage merges patch into e.tasks[i] and queues it for persistence. Callers hold e.mu.
func (e *Engine) stage(tx *txn, i int, patch task.Patch, now time.Time) {
	patch.Apply(&e.tasks[i], now)
	tx.updateTask(e.tasks[i].ID, patch, now)
}

// pause is the full pause sequence on e.tasks[i]. Callers hold e.mu.
func (e *Engine) pause(tx *txn, i int, now time.Time) {
	id := e.tasks[i].ID
	if s, ok := e.ledger.Close(id, now); ok {
		tx.closeSession(s)
		e.update(tx, i, task.Patch{
			IsActive:       task.Ptr(false),
			TotalTimeSpent: task.Ptr(e.tasks[i].TotalTimeSpent + *s.Duration),
		}, now)
	} else if e.tasks[i].IsActive {
		// Active without a session: clear the flag, accrue nothing.
		e.update(tx, i, task.Patch{IsActive: task.Ptr(false)}, now)
	}
	tx.record(id, history.ActionPaused, nil, map[string]any{"is_active": false, "paused_at": now}, now)
}

// pauseOthers pauses every active task other than id. Callers hold e.mu.
func (e *Engine) pauseOthers(tx *txn, id string, now time.Time) {
	for j := range e.tasks {
		if e.tasks[j].ID != id && e.tasks[j].IsActive {
			e.pause(tx, j, now)
		}
	}
}
