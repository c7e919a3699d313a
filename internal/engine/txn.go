package engine

import (
	"context"
	"time"

	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/task"
)

type stepKind int

const (
	stepInsertTask stepKind = iota
	stepUpdateTask
	stepDeleteTask
	stepInsertSession
	stepCloseSession
)

// step is one persisted mutation inside a txn.
type step struct {
	kind    stepKind
	task    task.Task
	taskID  string
	patch   task.Patch
	at      time.Time
	session session.Session
}

// txn collects the ordered mutations and history entries of one public
// operation, including any cascaded sub-operations.
type txn struct {
	op      Op
	taskID  string
	steps   []step
	entries []history.Entry
}

func newTxn(op Op, taskID string) *txn {
	return &txn{op: op, taskID: taskID}
}

func (tx *txn) insertTask(t task.Task) {
	tx.steps = append(tx.steps, step{kind: stepInsertTask, task: t, taskID: t.ID})
}

func (tx *txn) updateTask(id string, patch task.Patch, at time.Time) {
	tx.steps = append(tx.steps, step{kind: stepUpdateTask, taskID: id, patch: patch, at: at})
}

func (tx *txn) deleteTask(id string) {
	tx.steps = append(tx.steps, step{kind: stepDeleteTask, taskID: id})
}

func (tx *txn) insertSession(s session.Session) {
	tx.steps = append(tx.steps, step{kind: stepInsertSession, taskID: s.TaskID, session: s})
}

func (tx *txn) closeSession(s session.Session) {
	tx.steps = append(tx.steps, step{kind: stepCloseSession, taskID: s.TaskID, session: s})
}

// record queues a history entry. Timestamps within a txn strictly increase so
// stores ordering by timestamp keep the batch in order.
func (tx *txn) record(taskID string, action history.Action, oldValues, newValues any, at time.Time) {
	if n := len(tx.entries); n > 0 {
		if last := tx.entries[n-1].Timestamp; !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}
	tx.entries = append(tx.entries, history.NewEntry(taskID, action, oldValues, newValues, at))
}

// commit appends the history batch and persists the txn. The remote store is
// tried first while online; any remote failure downgrades the mode and the
// whole txn is written to local storage instead. Callers hold e.mu.
func (e *Engine) commit(ctx context.Context, tx *txn) {
	e.log.Append(tx.entries...)

	if e.remoteStrategy != nil && e.mode.Online() {
		err := e.remoteStrategy.persist(ctx, tx, e.snapshot())
		if err == nil {
			e.logger.Debug("committed", "op", tx.op, "task", tx.taskID, "mode", "remote", "steps", len(tx.steps))
			return
		}
		e.mode.Downgrade(err)
	}

	if err := e.localStrategy.persist(ctx, tx, e.snapshot()); err != nil {
		e.logger.Error("local write failed, keeping changes in memory", "op", tx.op, "error", err)
		return
	}
	e.logger.Debug("committed", "op", tx.op, "task", tx.taskID, "mode", "local", "steps", len(tx.steps))
}

// snapshot captures the collections as they stand after the txn. Callers hold e.mu.
func (e *Engine) snapshot() snapshot {
	return snapshot{
		tasks:    e.tasks,
		sessions: e.ledger.Sessions(),
		entries:  e.log.Entries(),
	}
}
