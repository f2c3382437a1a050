package events

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestEmitRejectsUnknownEvents(t *testing.T) {
	if _, err := Emit("info", "node.started", "", nil); err == nil {
		t.Error("expected error for unknown event")
	}
	if _, err := Emit("info", "discovery.completed", "", nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	initial := SubscriberCount()

	sub1 := Subscribe()
	sub2 := Subscribe()
	if SubscriberCount() != initial+2 {
		t.Errorf("expected %d subscribers, got %d", initial+2, SubscriberCount())
	}

	Unsubscribe(sub1)
	Unsubscribe(sub2)
	if SubscriberCount() != initial {
		t.Errorf("expected %d subscribers after unsubscribe, got %d", initial, SubscriberCount())
	}

	if _, ok := <-sub1; ok {
		t.Error("expected channel to be closed after unsubscribe")
	}
	// second unsubscribe must not panic on a closed channel
	Unsubscribe(sub1)
}

func TestBroadcastToSubscribers(t *testing.T) {
	sub1 := Subscribe()
	sub2 := Subscribe()
	defer Unsubscribe(sub1)
	defer Unsubscribe(sub2)

	Emit("info", "aggregation.requested", "", map[string]interface{}{"seq": 3})

	for i, sub := range []Subscriber{sub1, sub2} {
		select {
		case e := <-sub:
			if e.Name != "aggregation.requested" || e.Fields["seq"] != 3 {
				t.Errorf("sub%d: unexpected event %+v", i+1, e)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("sub%d: timeout waiting for event", i+1)
		}
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	sub := Subscribe()
	defer Unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*2; i++ {
			Emit("info", "control.changed", "", nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("emit blocked on a full subscriber")
	}
	if len(sub) != subscriberBuffer {
		t.Errorf("expected full buffer of %d, got %d", subscriberBuffer, len(sub))
	}
}

func TestRecentEvents(t *testing.T) {
	Clear()

	for i := 0; i < 10; i++ {
		Emit("info", "render.completed", "", map[string]interface{}{"i": i})
	}

	recent := RecentEvents(5)
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent events, got %d", len(recent))
	}
	if recent[0].Fields["i"] != 5 {
		t.Errorf("expected first recent event i=5, got %v", recent[0].Fields["i"])
	}
	if n := len(RecentEvents(100)); n != 10 {
		t.Errorf("expected 10 events when requesting 100, got %d", n)
	}
	if n := len(RecentEvents(0)); n != 10 {
		t.Errorf("expected 10 events when requesting 0, got %d", n)
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, name := range []string{"a", "b", "c", "d"} {
		rb.Add(Event{Name: name})
	}
	got := rb.Snapshot()
	if rb.Len() != 3 || got[0].Name != "b" || got[2].Name != "d" {
		t.Errorf("unexpected snapshot %+v", got)
	}
	rb.Clear()
	if rb.Len() != 0 || len(rb.Snapshot()) != 0 {
		t.Error("expected empty buffer after clear")
	}
}

func TestCloseAllSubscribers(t *testing.T) {
	CloseAllSubscribers()

	sub1 := Subscribe()
	sub2 := Subscribe()
	if SubscriberCount() != 2 {
		t.Errorf("expected 2 subscribers, got %d", SubscriberCount())
	}

	CloseAllSubscribers()

	_, ok1 := <-sub1
	_, ok2 := <-sub2
	if ok1 || ok2 {
		t.Error("expected all channels to be closed")
	}
	if SubscriberCount() != 0 {
		t.Errorf("expected 0 subscribers, got %d", SubscriberCount())
	}
	Unsubscribe(sub1)
}

type memoryStore struct {
	mu       sync.Mutex
	err      error
	sessions []string
	names    []string
}

func (m *memoryStore) Append(ts time.Time, level, event, msg string, fields map[string]interface{}, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.names = append(m.names, event)
	m.sessions = append(m.sessions, sessionID)
	return nil
}

func TestEmitPersists(t *testing.T) {
	store := &memoryStore{}
	SetStore(store)
	defer SetStore(nil)

	Emit("info", "session.opened", "", map[string]interface{}{SessionField: "abc"})
	Emit("info", "system.startup", "", nil)

	if len(store.names) != 2 || store.sessions[0] != "abc" || store.sessions[1] != "" {
		t.Errorf("unexpected persisted rows %v %v", store.names, store.sessions)
	}
}

func TestStoreFailureReportedOnce(t *testing.T) {
	Clear()
	SetStore(&memoryStore{err: errors.New("connection refused")})
	defer SetStore(nil)

	for i := 0; i < 3; i++ {
		Emit("info", "control.changed", "", nil)
	}

	failures := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected one store failure event, got %d", failures)
	}
}
