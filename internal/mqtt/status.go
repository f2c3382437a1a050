package mqtt

import (
	"encoding/json"
	"fmt"
	"log"
	"time"
)

// StatusMessage is published whenever a page session's status line changes.
type StatusMessage struct {
	Viewer    string `json:"viewer"`
	Session   string `json:"session"`
	Status    string `json:"status"`
	Timestamp string `json:"ts"`
}

// StatusPublisher publishes status lines to {prefix}/{viewer}/status.
type StatusPublisher struct {
	broker Broker
	topic  string
	viewer string
}

func NewStatusPublisher(b Broker, prefix, viewer string) *StatusPublisher {
	return &StatusPublisher{
		broker: b,
		topic:  StatusTopic(prefix, viewer),
		viewer: viewer,
	}
}

// StatusTopic returns the topic status lines are published on.
func StatusTopic(prefix, viewer string) string {
	return fmt.Sprintf("%s/%s/status", prefix, viewer)
}

// Topic returns the publish topic.
func (p *StatusPublisher) Topic() string {
	return p.topic
}

// Publish sends a status line. Publishing while disconnected is skipped.
func (p *StatusPublisher) Publish(sessionID, status string) error {
	if !p.broker.IsConnected() {
		return nil
	}
	payload, err := json.Marshal(StatusMessage{
		Viewer:    p.viewer,
		Session:   sessionID,
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	return p.broker.Publish(p.topic, payload, false)
}

// PublishStatus is Publish without the error, for use as a status hook.
func (p *StatusPublisher) PublishStatus(sessionID, status string) {
	if err := p.Publish(sessionID, status); err != nil {
		log.Printf("mqtt: status publish failed: %v", err)
	}
}
