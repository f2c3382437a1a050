package events

import "fmt"

var allowedEvents = map[string]struct{}{
	// page session
	"session.opened": {},
	"session.closed": {},

	// upload
	"upload.received": {},
	"upload.rejected": {},

	// discovery
	"discovery.started":   {},
	"discovery.completed": {},
	"discovery.failed":    {},

	// aggregation
	"aggregation.requested": {},
	"aggregation.completed": {},
	"aggregation.failed":    {},
	"aggregation.discarded": {},

	// render
	"render.completed": {},
	"render.failed":    {},

	// controls
	"control.changed": {},
	"control.remote":  {},

	// viewport
	"viewport.fit": {},

	// broker
	"broker.connected":    {},
	"broker.disconnected": {},

	// system
	"system.startup":  {},
	"system.shutdown": {},
	"system.error":    {},
}

// Validate rejects event names outside the known set.
func Validate(event string) error {
	if _, ok := allowedEvents[event]; !ok {
		return fmt.Errorf("unknown event: %s", event)
	}
	return nil
}
