// Package actionstate tracks the loading flag and last error of a resource's
// actions, the way a client binds spinners and error banners to them.
package actionstate

import (
	"sync"
	"time"
)

// Snapshot is the observable state at one instant.
type Snapshot struct {
	Loading   bool       `json:"loading"`
	Error     string     `json:"error,omitempty"`
	Action    string     `json:"action,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// State is safe for concurrent use. Loading stays true while any action runs.
type State struct {
	mu       sync.RWMutex
	inFlight int
	lastErr  error
	action   string
	updated  time.Time
}

func New() *State { return &State{} }

// Run clears the previous error, marks the state loading, runs fn and records
// its error. Loading is released even if fn panics. The error is returned
// unchanged so callers can still react to it.
func (s *State) Run(action string, fn func() error) (err error) {
	s.mu.Lock()
	s.inFlight++
	s.lastErr = nil
	s.action = action
	s.updated = time.Now()
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		if err != nil {
			s.lastErr = err
		}
		s.updated = time.Now()
		s.mu.Unlock()
	}()

	return fn()
}

// Loading reports whether an action is in progress.
func (s *State) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inFlight > 0
}

// LastError returns the error of the most recent failed action, if no action
// started since.
func (s *State) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// SetError records err directly, for failures detected outside Run.
func (s *State) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.updated = time.Now()
	s.mu.Unlock()
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Loading: s.inFlight > 0, Action: s.action}
	if s.lastErr != nil {
		snap.Error = s.lastErr.Error()
	}
	if !s.updated.IsZero() {
		t := s.updated
		snap.UpdatedAt = &t
	}
	return snap
}
