// Package events is the viewer's structured event log. Events are kept in a
// ring buffer, pushed to live subscribers and optionally persisted.
package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// SessionField is the field that carries the page session id. It is stored
// in its own column when events are persisted.
const SessionField = "session"

var buffer = NewRingBuffer(256)

// Store persists events.
type Store interface {
	Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error
}

var (
	store       Store
	storeMu     sync.RWMutex
	storeFailed bool
)

// SetStore sets the persistence backend; nil disables persistence.
func SetStore(s Store) {
	storeMu.Lock()
	store = s
	storeFailed = false
	storeMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Emit records an event and returns its JSON encoding.
func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)
	persist(ts, e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return b, nil
}

func persist(ts time.Time, e Event) {
	storeMu.RLock()
	s := store
	storeMu.RUnlock()
	if s == nil {
		return
	}

	sessionID, _ := e.Fields[SessionField].(string)
	err := s.Append(ts, e.Level, e.Name, e.Message, e.Fields, sessionID)
	if err == nil {
		return
	}

	// Report the first failure only, straight into the buffer so a broken
	// store cannot recurse through Emit.
	storeMu.Lock()
	first := !storeFailed
	storeFailed = true
	storeMu.Unlock()
	if first {
		failure := Event{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Level:     "error",
			Name:      "system.error",
			Message:   "event store append failed",
			Fields:    map[string]interface{}{"error": err.Error()},
		}
		buffer.Add(failure)
		broadcast(failure)
	}
}

// Snapshot returns every buffered event, oldest first.
func Snapshot() []Event {
	return buffer.Snapshot()
}

// Clear empties the buffer.
func Clear() {
	buffer.Clear()
}
