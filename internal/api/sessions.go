package api

import (
	"errors"
	"fmt"
	"sync"

	"github.com/AaronLay10/SemanticZoom/internal/mqtt"
	"github.com/AaronLay10/SemanticZoom/internal/viewer"
)

// ErrSessionNotFound is returned for ids with no open page session.
var ErrSessionNotFound = errors.New("page session not found")

// Sessions tracks the open page sessions by id.
type Sessions struct {
	mu sync.RWMutex
	m  map[string]*viewer.Viewer

	onChange func(n int)
}

// NewSessions returns an empty registry. onChange, if set, is called with
// the session count after every add or remove.
func NewSessions(onChange func(n int)) *Sessions {
	return &Sessions{m: make(map[string]*viewer.Viewer), onChange: onChange}
}

// Add registers v under its id.
func (s *Sessions) Add(v *viewer.Viewer) {
	s.mu.Lock()
	s.m[v.ID()] = v
	n := len(s.m)
	s.mu.Unlock()
	s.changed(n)
}

// Get looks a session up.
func (s *Sessions) Get(id string) (*viewer.Viewer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[id]
	return v, ok
}

// Remove closes and forgets the session with the given id.
func (s *Sessions) Remove(id string) {
	s.mu.Lock()
	v, ok := s.m[id]
	delete(s.m, id)
	n := len(s.m)
	s.mu.Unlock()
	if !ok {
		return
	}
	v.Close()
	s.changed(n)
}

// Count returns the number of open sessions.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// CloseAll closes every session.
func (s *Sessions) CloseAll() {
	s.mu.Lock()
	all := s.m
	s.m = make(map[string]*viewer.Viewer)
	s.mu.Unlock()
	for _, v := range all {
		v.Close()
	}
	s.changed(0)
}

// ApplyControl applies a remote control command to a page session. The mode
// is applied before an explicit threshold so the threshold wins.
func (s *Sessions) ApplyControl(sessionID string, cmd mqtt.Command) error {
	v, ok := s.Get(sessionID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if cmd.Level != nil {
		v.SetLevel(*cmd.Level)
	}
	if cmd.Mode != nil {
		v.SelectMode(*cmd.Mode)
	}
	if cmd.Threshold != nil {
		v.SetThreshold(*cmd.Threshold)
	}
	return nil
}

func (s *Sessions) changed(n int) {
	if s.onChange != nil {
		s.onChange(n)
	}
}

var _ mqtt.Router = (*Sessions)(nil)
