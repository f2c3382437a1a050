package session

import (
	"sync"
	"testing"
)

func TestStateLifecycle(t *testing.T) {
	s := New()
	if _, ok := s.LogID(); ok {
		t.Fatal("new state should be absent")
	}

	s.Set("log-1")
	if id, ok := s.LogID(); !ok || id != "log-1" {
		t.Errorf("got %q %v, want log-1 true", id, ok)
	}

	s.Set("log-2")
	if id, _ := s.LogID(); id != "log-2" {
		t.Errorf("expected overwrite, got %q", id)
	}

	s.Set("")
	if _, ok := s.LogID(); ok {
		t.Error("empty id should read as absent")
	}
}

func TestStateConcurrentAccess(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.Set("log")
		}()
		go func() {
			defer wg.Done()
			s.LogID()
		}()
	}
	wg.Wait()

	if id, ok := s.LogID(); !ok || id != "log" {
		t.Errorf("got %q %v", id, ok)
	}
}
