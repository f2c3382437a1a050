package api

import (
	"encoding/json"
	"net/http"
	"sync"
)

// readinessState tracks the dependencies the viewer needs to be useful.
// MQTT and PostgreSQL are optional unless enabled in the config.
type readinessState struct {
	mu                sync.RWMutex
	minerReachable    bool
	layoutAvailable   bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

var readiness = &readinessState{mqttOptional: true, postgresOptional: true}

// SetMinerReachable records whether the mining service answered its last ping.
func SetMinerReachable(ok bool) {
	readiness.mu.Lock()
	readiness.minerReachable = ok
	readiness.mu.Unlock()
}

// SetLayoutAvailable records whether the layout engine can be run.
func SetLayoutAvailable(ok bool) {
	readiness.mu.Lock()
	readiness.layoutAvailable = ok
	readiness.mu.Unlock()
}

// SetMQTTConnected records the broker connection state.
func SetMQTTConnected(ok bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = ok
	readiness.mu.Unlock()
}

// SetMQTTOptional marks MQTT as not required for readiness.
func SetMQTTOptional(optional bool) {
	readiness.mu.Lock()
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresConnected records the database connection state.
func SetPostgresConnected(ok bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = ok
	readiness.mu.Unlock()
}

// SetPostgresOptional marks PostgreSQL as not required for readiness.
func SetPostgresOptional(optional bool) {
	readiness.mu.Lock()
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

type readinessView struct {
	minerReachable    bool
	layoutAvailable   bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

func readinessSnapshot() readinessView {
	readiness.mu.RLock()
	defer readiness.mu.RUnlock()
	return readinessView{
		minerReachable:    readiness.minerReachable,
		layoutAvailable:   readiness.layoutAvailable,
		mqttConnected:     readiness.mqttConnected,
		mqttOptional:      readiness.mqttOptional,
		postgresConnected: readiness.postgresConnected,
		postgresOptional:  readiness.postgresOptional,
	}
}

// CheckResult is the outcome of one readiness check.
type CheckResult struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// ReadinessResponse is the /ready body.
type ReadinessResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]CheckResult `json:"checks"`
}

func check(ok, optional bool, reason string) (CheckResult, bool) {
	switch {
	case ok:
		return CheckResult{Status: "ok"}, true
	case optional:
		return CheckResult{Status: "degraded", Reason: reason}, true
	default:
		return CheckResult{Status: "fail", Reason: reason}, false
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	st := readinessSnapshot()

	resp := ReadinessResponse{Ready: true, Checks: map[string]CheckResult{}}
	add := func(name string, res CheckResult, ok bool) {
		resp.Checks[name] = res
		if !ok {
			resp.Ready = false
		}
	}

	res, ok := check(st.minerReachable, false, "mining service unreachable")
	add("miner", res, ok)
	res, ok = check(st.layoutAvailable, false, "layout engine not found")
	add("layout", res, ok)
	res, ok = check(st.mqttConnected, st.mqttOptional, "mqtt broker disconnected")
	add("mqtt", res, ok)
	res, ok = check(st.postgresConnected, st.postgresOptional, "postgres unavailable")
	add("postgres", res, ok)

	w.Header().Set("Content-Type", "application/json")
	if !resp.Ready {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
