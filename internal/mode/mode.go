// Package mode decides whether the remote store or local storage backs the engine.
package mode

import (
	"context"
	"log/slog"
	"sync"
)

// State is the persistence mode.
type State string

const (
	StateProbing State = "probing"
	StateOnline  State = "online"
	StateOffline State = "offline"
)

// Prober checks remote reachability with a single lightweight query.
type Prober interface {
	Ping(ctx context.Context) error
}

// Selector tracks the persistence mode. It moves from probing to online or
// offline once, and from online to offline on the first remote failure.
// It never upgrades back to online.
type Selector struct {
	mu       sync.Mutex
	state    State
	cause    error
	logger   *slog.Logger
	onChange []func(State)
}

// NewSelector returns a Selector in the probing state. A nil logger uses slog.Default().
func NewSelector(logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{state: StateProbing, logger: logger}
}

// Determine probes the remote once and fixes the mode. A nil prober means the
// remote is not configured. Later calls return the cached state.
func (s *Selector) Determine(ctx context.Context, p Prober) State {
	s.mu.Lock()
	if s.state != StateProbing {
		state := s.state
		s.mu.Unlock()
		return state
	}
	s.mu.Unlock()

	next := StateOffline
	var cause error
	if p != nil {
		if cause = p.Ping(ctx); cause == nil {
			next = StateOnline
		}
	}

	s.mu.Lock()
	if s.state != StateProbing {
		state := s.state
		s.mu.Unlock()
		return state
	}
	s.state = next
	s.cause = cause
	hooks := append([]func(State){}, s.onChange...)
	s.mu.Unlock()

	switch {
	case p == nil:
		s.logger.Info("remote store not configured, using local storage")
	case cause != nil:
		s.logger.Warn("remote store unreachable, using local storage", "error", cause)
	default:
		s.logger.Info("remote store reachable")
	}
	notify(hooks, next)
	return next
}

// Downgrade switches an online selector to offline. It reports whether the
// state changed; repeated calls are no-ops.
func (s *Selector) Downgrade(cause error) bool {
	s.mu.Lock()
	if s.state == StateOffline {
		s.mu.Unlock()
		return false
	}
	s.state = StateOffline
	s.cause = cause
	hooks := append([]func(State){}, s.onChange...)
	s.mu.Unlock()

	s.logger.Warn("remote store failed, switching to local storage", "error", cause)
	notify(hooks, StateOffline)
	return true
}

// Online reports whether the remote store is in use.
func (s *Selector) Online() bool {
	return s.State() == StateOnline
}

// State returns the current mode.
func (s *Selector) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cause returns the error behind the last switch to offline, if any.
func (s *Selector) Cause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cause
}

// OnChange registers fn to run after every state change.
func (s *Selector) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func notify(hooks []func(State), state State) {
	for _, fn := range hooks {
		fn(state)
	}
}
