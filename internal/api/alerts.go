package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"
)

// Alert severities.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert events.
const (
	AlertMinerUnavailable    = "miner_unavailable"
	AlertPostgresUnavailable = "postgres_unavailable"
	AlertMQTTDisconnected    = "mqtt_disconnected"
)

// EnvAlertWebhook is the webhook URL variable; alerts are only logged when
// it is unset.
const EnvAlertWebhook = "SEMZOOM_ALERT_WEBHOOK_URL"

// AlertPayload is the JSON body posted to the webhook.
type AlertPayload struct {
	Viewer    string                 `json:"viewer"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

type outage struct {
	event    string
	severity string
	message  string
	delay    time.Duration

	down  time.Time
	alert bool
}

// Alerter raises an alert once a dependency has been down for its delay and
// a recovery notice when it comes back.
type Alerter struct {
	viewer  string
	webhook string
	client  *http.Client
	now     func() time.Time

	mu      sync.Mutex
	outages map[string]*outage
	wg      sync.WaitGroup
}

// NewAlerter reads the webhook URL from the environment.
func NewAlerter(viewer string) *Alerter {
	a := &Alerter{
		viewer:  viewer,
		webhook: os.Getenv(EnvAlertWebhook),
		client:  &http.Client{Timeout: 10 * time.Second},
		now:     time.Now,
		outages: map[string]*outage{
			"miner":    {event: AlertMinerUnavailable, severity: SeverityCritical, message: "Mining service unreachable", delay: 15 * time.Second},
			"postgres": {event: AlertPostgresUnavailable, severity: SeverityCritical, message: "PostgreSQL unavailable", delay: 5 * time.Second},
			"mqtt":     {event: AlertMQTTDisconnected, severity: SeverityWarning, message: "MQTT broker disconnected", delay: 30 * time.Second},
		},
	}
	if a.webhook != "" {
		log.Printf("alerts enabled: webhook configured")
	}
	return a
}

// SetDelay changes how long a dependency must be down before alerting.
func (a *Alerter) SetDelay(dependency string, d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if o, ok := a.outages[dependency]; ok {
		o.delay = d
	}
}

// Check records the current state of a dependency.
func (a *Alerter) Check(dependency string, up bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	o, ok := a.outages[dependency]
	if !ok {
		return
	}
	now := a.now()

	if up {
		if o.alert {
			a.send(o.event, SeverityInfo, o.message+": restored", map[string]interface{}{
				"recovered_at": now.UTC().Format(time.RFC3339),
			})
		}
		o.down = time.Time{}
		o.alert = false
		return
	}

	if o.down.IsZero() {
		o.down = now
	}
	if !o.alert && now.Sub(o.down) >= o.delay {
		o.alert = true
		a.send(o.event, o.severity, o.message, map[string]interface{}{
			"down_since":   o.down.UTC().Format(time.RFC3339),
			"down_seconds": int(now.Sub(o.down).Seconds()),
		})
	}
}

// Run checks the readiness state every interval until ctx is done.
func (a *Alerter) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := readinessSnapshot()
			a.Check("miner", st.minerReachable)
			if !st.postgresOptional {
				a.Check("postgres", st.postgresConnected)
			}
			if !st.mqttOptional {
				a.Check("mqtt", st.mqttConnected)
			}
		}
	}
}

// Wait blocks until queued webhook posts have finished.
func (a *Alerter) Wait() {
	a.wg.Wait()
}

// send must be called with a.mu held.
func (a *Alerter) send(event, severity, message string, details map[string]interface{}) {
	if a.webhook == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", event, severity, message, details)
		return
	}
	payload := AlertPayload{
		Viewer:    a.viewer,
		Event:     event,
		Timestamp: a.now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.post(payload)
	}()
}

func (a *Alerter) post(payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: marshal payload: %v", err)
		return
	}
	resp, err := a.client.Post(a.webhook, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}
