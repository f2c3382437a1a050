package mqtt

import (
	"sync"
	"time"

	"github.com/AaronLay10/SemanticZoom/internal/events"
)

// Monitor polls a broker connection and reports transitions. Paho reconnects
// on its own; the monitor only observes.
type Monitor struct {
	broker   Broker
	onChange func(connected bool)

	mu        sync.Mutex
	connected bool
	known     bool
	lastSeen  time.Time

	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

// NewMonitor returns a monitor for b. onChange is called on every
// transition and once for the first observation.
func NewMonitor(b Broker, onChange func(connected bool)) *Monitor {
	return &Monitor{broker: b, onChange: onChange, stopCh: make(chan struct{})}
}

// Start begins polling every interval.
func (m *Monitor) Start(interval time.Duration) {
	m.Check()
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.Check()
			}
		}
	}()
}

// Stop ends polling. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.once.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

// Check samples the connection once.
func (m *Monitor) Check() {
	up := m.broker.IsConnected()
	now := time.Now()

	m.mu.Lock()
	changed := !m.known || up != m.connected
	wasKnown := m.known
	since := m.lastSeen
	m.known = true
	m.connected = up
	if up {
		m.lastSeen = now
	}
	m.mu.Unlock()

	if !changed {
		return
	}
	if up {
		events.Emit("info", "broker.connected", "", map[string]interface{}{"reconnect": wasKnown})
	} else {
		fields := map[string]interface{}{}
		if !since.IsZero() {
			fields["last_seen"] = since.UTC().Format(time.RFC3339)
		}
		events.Emit("warning", "broker.disconnected", "", fields)
	}
	if m.onChange != nil {
		m.onChange(up)
	}
}

// Connected returns the last observed state.
func (m *Monitor) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}
