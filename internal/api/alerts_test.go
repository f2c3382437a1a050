package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

func TestAlerterRaisesAfterDelayAndRecovers(t *testing.T) {
	var mu sync.Mutex
	var got []AlertPayload
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p AlertPayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode alert: %v", err)
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
	}))
	defer hook.Close()
	alerts := func() []AlertPayload {
		mu.Lock()
		defer mu.Unlock()
		return append([]AlertPayload(nil), got...)
	}
	t.Setenv(EnvAlertWebhook, hook.URL)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewAlerter("lab")
	a.now = func() time.Time { return now }
	a.SetDelay("miner", 10*time.Second)

	a.Check("miner", false)
	now = now.Add(5 * time.Second)
	a.Check("miner", false)
	a.Wait()
	if n := len(alerts()); n != 0 {
		t.Fatalf("alert raised before delay: %d", n)
	}

	now = now.Add(5 * time.Second)
	a.Check("miner", false)
	a.Check("miner", false)
	a.Wait()
	sent := alerts()
	if len(sent) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(sent))
	}
	if sent[0].Event != AlertMinerUnavailable || sent[0].Severity != SeverityCritical || sent[0].Viewer != "lab" {
		t.Errorf("unexpected alert %+v", sent[0])
	}

	a.Check("miner", true)
	a.Wait()
	sent = alerts()
	if len(sent) != 2 || sent[1].Severity != SeverityInfo {
		t.Fatalf("expected recovery notice, got %+v", sent)
	}

	a.Check("miner", true)
	a.Wait()
	if n := len(alerts()); n != 2 {
		t.Errorf("recovery should be sent once, got %d alerts", n)
	}
}

func TestAlerterIgnoresUnknownDependency(t *testing.T) {
	t.Setenv(EnvAlertWebhook, "")
	a := NewAlerter("lab")
	a.Check("redis", false)
	a.Wait()
}
