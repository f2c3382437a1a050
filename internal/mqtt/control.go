package mqtt

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/SemanticZoom/internal/events"
)

// ErrEmptyCommand is returned for control messages that set nothing.
var ErrEmptyCommand = errors.New("control message sets no control")

// Command is a remote control message. Only the fields present are applied.
type Command struct {
	Level     *float64 `json:"level,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Mode      *string  `json:"mode,omitempty"`
}

// ParseCommand decodes and checks a control payload.
func ParseCommand(payload []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, fmt.Errorf("invalid control message: %w", err)
	}
	if cmd.Level == nil && cmd.Threshold == nil && cmd.Mode == nil {
		return Command{}, ErrEmptyCommand
	}
	return cmd, nil
}

// Router applies a command to the page session with the given id.
type Router interface {
	ApplyControl(sessionID string, cmd Command) error
}

// ControlSubscriber routes messages on {prefix}/+/control to page sessions;
// the wildcard segment is the page session id.
type ControlSubscriber struct {
	broker Broker
	prefix string
	router Router

	mu       sync.Mutex
	received int
}

func NewControlSubscriber(b Broker, prefix string, r Router) *ControlSubscriber {
	return &ControlSubscriber{broker: b, prefix: prefix, router: r}
}

// Topic returns the wildcard subscription topic.
func (s *ControlSubscriber) Topic() string {
	return s.prefix + "/+/control"
}

// Start subscribes to the control topic.
func (s *ControlSubscriber) Start() error {
	return s.broker.Subscribe(s.Topic(), s.handle)
}

// Received returns how many control messages were applied.
func (s *ControlSubscriber) Received() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.received
}

func (s *ControlSubscriber) sessionFromTopic(topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, s.prefix+"/")
	if !ok {
		return "", false
	}
	id, ok := strings.CutSuffix(rest, "/control")
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func (s *ControlSubscriber) handle(_ paho.Client, msg paho.Message) {
	sessionID, ok := s.sessionFromTopic(msg.Topic())
	if !ok {
		return
	}

	cmd, err := ParseCommand(msg.Payload())
	if err == nil {
		err = s.router.ApplyControl(sessionID, cmd)
	}
	if err != nil {
		events.Emit("warning", "control.remote", "rejected remote control message", map[string]interface{}{
			events.SessionField: sessionID,
			"topic":             msg.Topic(),
			"error":             err.Error(),
		})
		return
	}

	s.mu.Lock()
	s.received++
	s.mu.Unlock()

	events.Emit("info", "control.remote", "", map[string]interface{}{
		events.SessionField: sessionID,
		"topic":             msg.Topic(),
	})
}
