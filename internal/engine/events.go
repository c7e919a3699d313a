package engine

import "github.com/abatilo/taskflow/internal/mode"

// Op names a lifecycle operation.
type Op string

const (
	OpAdd      Op = "add"
	OpUpdate   Op = "update"
	OpStart    Op = "start"
	OpPause    Op = "pause"
	OpComplete Op = "complete"
	OpDelete   Op = "delete"
	OpImport   Op = "import"
)

// Event is delivered to subscribers after an operation commits.
type Event struct {
	Op     Op         `json:"op"`
	TaskID string     `json:"task_id,omitempty"`
	Mode   mode.State `json:"mode"`
}

// Subscribe registers fn for every committed operation. Callbacks run
// synchronously on the caller's goroutine after the engine lock is released.
func (e *Engine) Subscribe(fn func(Event)) (unsubscribe func()) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subs[id] = fn
	return func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		delete(e.subs, id)
	}
}

func (e *Engine) publish(ev Event) {
	e.subMu.Lock()
	fns := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		fns = append(fns, fn)
	}
	e.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
