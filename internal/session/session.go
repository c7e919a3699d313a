package session

import (
	"sort"
	"time"

	"github.com/abatilo/taskflow/internal/task"
)

// Session is a contiguous timed interval attributed to one task.
// EndedAt and Duration stay nil while the session is open.
type Session struct {
	ID        string     `json:"id"`
	TaskID    string     `json:"task_id"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
	Duration  *int64     `json:"duration"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsOpen reports whether the session is still running.
func (s Session) IsOpen() bool {
	return s.EndedAt == nil
}

// Elapsed returns the seconds accrued so far, using now for open sessions.
func (s Session) Elapsed(now time.Time) int64 {
	if s.Duration != nil {
		return *s.Duration
	}
	return Duration(s.StartedAt, now)
}

// Duration returns whole seconds between start and end. Clock skew clamps to 0.
func Duration(start, end time.Time) int64 {
	d := int64(end.Sub(start) / time.Second)
	if d < 0 {
		return 0
	}
	return d
}

// Ledger owns the session collection, newest first.
type Ledger struct {
	sessions []Session
}

// NewLedger creates a Ledger from previously persisted sessions.
func NewLedger(sessions []Session) *Ledger {
	l := &Ledger{sessions: append([]Session(nil), sessions...)}
	sort.SliceStable(l.sessions, func(i, j int) bool {
		return l.sessions[i].StartedAt.After(l.sessions[j].StartedAt)
	})
	return l
}

// Sessions returns a copy of all sessions, newest first.
func (l *Ledger) Sessions() []Session {
	return append([]Session(nil), l.sessions...)
}

// OpenFor returns the open session of a task, if any.
func (l *Ledger) OpenFor(taskID string) (Session, bool) {
	for _, s := range l.sessions {
		if s.TaskID == taskID && s.IsOpen() {
			return s, true
		}
	}
	return Session{}, false
}

// ForTask returns all sessions of a task, newest first.
func (l *Ledger) ForTask(taskID string) []Session {
	var out []Session
	for _, s := range l.sessions {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out
}

// Open starts a new session for the task at now.
func (l *Ledger) Open(taskID string, now time.Time) Session {
	s := Session{
		ID:        task.NewID(),
		TaskID:    taskID,
		StartedAt: now,
		CreatedAt: now,
	}
	l.sessions = append([]Session{s}, l.sessions...)
	return s
}

// Close ends the task's open session at now and records its duration.
// It returns false when the task has no open session.
func (l *Ledger) Close(taskID string, now time.Time) (Session, bool) {
	for i, s := range l.sessions {
		if s.TaskID != taskID || !s.IsOpen() {
			continue
		}
		end := now
		d := Duration(s.StartedAt, end)
		s.EndedAt = &end
		s.Duration = &d
		l.sessions[i] = s
		return s, true
	}
	return Session{}, false
}
