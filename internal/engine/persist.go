package engine

import (
	"context"
	"fmt"

	"github.com/abatilo/taskflow/internal/history"
	"github.com/abatilo/taskflow/internal/remote"
	"github.com/abatilo/taskflow/internal/session"
	"github.com/abatilo/taskflow/internal/storage"
	"github.com/abatilo/taskflow/internal/task"
)

// snapshot is the full state written by the local strategy.
type snapshot struct {
	tasks    []task.Task
	sessions []session.Session
	entries  []history.Entry
}

// persister writes a committed txn to one backend.
type persister interface {
	persist(ctx context.Context, tx *txn, snap snapshot) error
}

// remoteStrategy replays the txn steps against the remote store in order,
// then inserts the history batch. It stops at the first failure.
type remoteStrategy struct {
	client remote.Client
}

func (s *remoteStrategy) persist(ctx context.Context, tx *txn, _ snapshot) error {
	for _, st := range tx.steps {
		if err := s.apply(ctx, st); err != nil {
			return err
		}
	}
	return s.client.InsertHistory(ctx, tx.entries...)
}

func (s *remoteStrategy) apply(ctx context.Context, st step) error {
	switch st.kind {
	case stepInsertTask:
		_, err := s.client.InsertTask(ctx, st.task)
		return err
	case stepUpdateTask:
		return s.client.UpdateTask(ctx, st.taskID, st.patch, st.at)
	case stepDeleteTask:
		return s.client.DeleteTask(ctx, st.taskID)
	case stepInsertSession:
		return s.client.InsertSession(ctx, st.session)
	case stepCloseSession:
		return s.client.UpdateSession(ctx, st.session)
	default:
		return fmt.Errorf("unknown step kind %d", st.kind)
	}
}

// localStrategy rewrites every collection snapshot.
type localStrategy struct {
	local *storage.Local
}

func (s *localStrategy) persist(_ context.Context, _ *txn, snap snapshot) error {
	return s.local.SaveAll(snap.tasks, snap.entries, snap.sessions)
}
