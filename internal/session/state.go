// Package session holds the identifier of the event log the viewer is
// currently working on.
package session

import "sync"

// State is the current log id of one page session. It starts absent, is set
// by every successful discovery and is only ever overwritten by the next one.
type State struct {
	mu    sync.RWMutex
	logID string
	set   bool
}

// New returns an absent state.
func New() *State {
	return &State{}
}

// Set records the log id of a successful discovery.
func (s *State) Set(logID string) {
	s.mu.Lock()
	s.logID = logID
	s.set = logID != ""
	s.mu.Unlock()
}

// LogID returns the current log id and whether one is present.
func (s *State) LogID() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logID, s.set
}
