package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/session"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// fakeClock runs timers synchronously when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

// AdvanceTo moves the clock to the absolute time now, firing due timers in
// order.
func (c *fakeClock) AdvanceTo(now time.Duration) {
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.stopped && !t.fired && t.at <= now {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = now
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool { return due[i].at < due[j].at })
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.f()
	}
}

type call struct {
	params miner.AggregationParams
	reply  chan reply
}

type reply struct {
	res *miner.Result
	err error
}

// fakeDispatcher records requests. With manual set, each request blocks until
// the test answers it.
type fakeDispatcher struct {
	mu     sync.Mutex
	calls  []*call
	manual bool
	err    error
}

func (d *fakeDispatcher) Aggregate(ctx context.Context, p miner.AggregationParams) (*miner.Result, error) {
	c := &call{params: p, reply: make(chan reply, 1)}
	d.mu.Lock()
	d.calls = append(d.calls, c)
	manual, err := d.manual, d.err
	d.mu.Unlock()

	if !manual {
		if err != nil {
			return nil, err
		}
		return &miner.Result{LogID: p.LogID}, nil
	}
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (d *fakeDispatcher) Calls() []*call {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*call(nil), d.calls...)
}

type recorder struct {
	mu        sync.Mutex
	results   []uint64
	failures  []error
	discarded []uint64
}

func (r *recorder) handlers() Handlers {
	return Handlers{
		OnResult: func(seq uint64, res *miner.Result) {
			r.mu.Lock()
			r.results = append(r.results, seq)
			r.mu.Unlock()
		},
		OnFailure: func(seq uint64, err error) {
			r.mu.Lock()
			r.failures = append(r.failures, err)
			r.mu.Unlock()
		},
		OnDiscard: func(seq uint64) {
			r.mu.Lock()
			r.discarded = append(r.discarded, seq)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) snapshot() ([]uint64, []error, []uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.results...), append([]error(nil), r.failures...), append([]uint64(nil), r.discarded...)
}

type inputs struct {
	mu    sync.Mutex
	level float64
}

func (in *inputs) set(v float64) {
	in.mu.Lock()
	in.level = v
	in.mu.Unlock()
}

func (in *inputs) params() miner.AggregationParams {
	in.mu.Lock()
	defer in.mu.Unlock()
	return miner.AggregationParams{Level: in.level, SemanticMode: "none", Threshold: 0.5}
}

func newTestScheduler(st *session.State, d Dispatcher, in *inputs, rec *recorder) (*Scheduler, *fakeClock) {
	clock := &fakeClock{}
	s := New(Config{Window: 400 * time.Millisecond, Clock: clock}, st, in.params, d, rec.handlers())
	return s, clock
}

func TestDebounceCoalescesInput(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{}
	in := &inputs{}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, in, rec)

	for i, at := range []time.Duration{0, 100, 150, 500} {
		clock.AdvanceTo(at * time.Millisecond)
		in.set(float64(i+1) / 10)
		s.NotifyInputChanged()
	}

	clock.AdvanceTo(899 * time.Millisecond)
	if n := len(d.Calls()); n != 0 {
		t.Fatalf("request sent before quiescence: %d", n)
	}

	clock.AdvanceTo(900 * time.Millisecond)
	s.Wait()

	calls := d.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected exactly one request, got %d", len(calls))
	}
	want := miner.AggregationParams{LogID: "log-1", Level: 0.4, SemanticMode: "none", Threshold: 0.5}
	if calls[0].params != want {
		t.Errorf("got %+v, want %+v", calls[0].params, want)
	}
	if results, _, _ := rec.snapshot(); len(results) != 1 || results[0] != 1 {
		t.Errorf("expected result for request 1, got %v", results)
	}
	if s.Pending() {
		t.Error("no timer should remain armed")
	}
}

func TestNoSessionSuppressesRequests(t *testing.T) {
	d := &fakeDispatcher{}
	rec := &recorder{}
	s, clock := newTestScheduler(session.New(), d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(time.Second)
	s.Wait()

	if n := len(d.Calls()); n != 0 {
		t.Errorf("expected no requests without a session, got %d", n)
	}
	if s.Dispatched() != 0 {
		t.Error("no sequence number should be consumed")
	}
}

func TestStaleResponseIsDiscarded(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{manual: true}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	s.NotifyInputChanged()
	clock.AdvanceTo(800 * time.Millisecond)

	waitFor(t, time.Second, func() bool { return len(d.Calls()) == 2 })
	calls := d.Calls()

	// newer response arrives first, then the older one
	calls[1].reply <- reply{res: &miner.Result{}}
	waitFor(t, time.Second, func() bool {
		results, _, _ := rec.snapshot()
		return len(results) == 1
	})
	calls[0].reply <- reply{res: &miner.Result{}}
	s.Wait()

	results, failures, discarded := rec.snapshot()
	if len(results) != 1 || results[0] != 2 {
		t.Errorf("expected only request 2 delivered, got %v", results)
	}
	if len(discarded) != 1 || discarded[0] != 1 {
		t.Errorf("expected request 1 discarded, got %v", discarded)
	}
	if len(failures) != 0 {
		t.Errorf("unexpected failures %v", failures)
	}
}

func TestOlderResponseBeforeNewerIsStillDiscarded(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{manual: true}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	s.NotifyInputChanged()
	clock.AdvanceTo(800 * time.Millisecond)
	waitFor(t, time.Second, func() bool { return len(d.Calls()) == 2 })

	calls := d.Calls()
	calls[0].reply <- reply{res: &miner.Result{}}
	waitFor(t, time.Second, func() bool {
		_, _, discarded := rec.snapshot()
		return len(discarded) == 1
	})
	calls[1].reply <- reply{res: &miner.Result{}}
	s.Wait()

	results, _, _ := rec.snapshot()
	if len(results) != 1 || results[0] != 2 {
		t.Errorf("expected only request 2 delivered, got %v", results)
	}
}

func TestSupersedeDropsInFlight(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{manual: true}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	waitFor(t, time.Second, func() bool { return len(d.Calls()) == 1 })

	s.Supersede()
	d.Calls()[0].reply <- reply{res: &miner.Result{}}
	s.Wait()

	results, _, discarded := rec.snapshot()
	if len(results) != 0 || len(discarded) != 1 {
		t.Errorf("expected superseded response discarded, got results=%v discarded=%v", results, discarded)
	}
}

func TestCurrentTracksNewestRequest(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	s.Wait()
	if !s.Current(1) {
		t.Fatal("request 1 should be current")
	}

	s.Supersede()
	if s.Current(1) {
		t.Error("request 1 should be stale after Supersede")
	}
	if !s.Current(2) {
		t.Error("superseding sequence should be current")
	}

	s.Stop()
	if s.Current(2) {
		t.Error("nothing is current after Stop")
	}
}

func TestSupersedeKeepsPendingTimer(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(100 * time.Millisecond)
	s.Supersede()
	st.Set("log-2")
	if !s.Pending() {
		t.Fatal("Supersede must not cancel the pending timer")
	}
	clock.AdvanceTo(400 * time.Millisecond)
	s.Wait()

	calls := d.Calls()
	if len(calls) != 1 || calls[0].params.LogID != "log-2" {
		t.Fatalf("expected one request for the new log, got %+v", calls)
	}
	results, _, _ := rec.snapshot()
	if len(results) != 1 || results[0] != 2 {
		t.Errorf("expected request 2 delivered, got %v", results)
	}
}

func TestFailureDoesNotStopPipeline(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	boom := errors.New("service down")
	d := &fakeDispatcher{err: boom}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	s.Wait()

	_, failures, _ := rec.snapshot()
	if len(failures) != 1 || !errors.Is(failures[0], boom) {
		t.Fatalf("expected one failure, got %v", failures)
	}

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	s.NotifyInputChanged()
	clock.AdvanceTo(800 * time.Millisecond)
	s.Wait()

	results, _, _ := rec.snapshot()
	if len(results) != 1 || results[0] != 2 {
		t.Errorf("expected request 2 to succeed after failure, got %v", results)
	}
	if n := len(d.Calls()); n != 2 {
		t.Errorf("failed request must not be retried: %d calls", n)
	}
}

func TestSessionReadAtFireTime(t *testing.T) {
	st := session.New()
	d := &fakeDispatcher{}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(200 * time.Millisecond)
	st.Set("log-late")
	clock.AdvanceTo(400 * time.Millisecond)
	s.Wait()

	calls := d.Calls()
	if len(calls) != 1 || calls[0].params.LogID != "log-late" {
		t.Errorf("expected request with session set before fire, got %+v", calls)
	}
}

func TestStopCancelsPendingAndInFlight(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{manual: true}
	rec := &recorder{}
	s, clock := newTestScheduler(st, d, &inputs{}, rec)

	s.NotifyInputChanged()
	clock.AdvanceTo(400 * time.Millisecond)
	waitFor(t, time.Second, func() bool { return len(d.Calls()) == 1 })

	s.NotifyInputChanged()
	s.Stop()
	clock.AdvanceTo(time.Second)
	s.Wait()

	if n := len(d.Calls()); n != 1 {
		t.Errorf("pending timer fired after stop: %d calls", n)
	}
	results, failures, _ := rec.snapshot()
	if len(results) != 0 || len(failures) != 0 {
		t.Errorf("nothing should be delivered after stop: %v %v", results, failures)
	}

	s.NotifyInputChanged()
	if s.Pending() {
		t.Error("stopped scheduler should ignore input")
	}
}

func TestSystemClockFires(t *testing.T) {
	st := session.New()
	st.Set("log-1")
	d := &fakeDispatcher{}
	rec := &recorder{}
	s := New(Config{Window: 10 * time.Millisecond}, st, (&inputs{}).params, d, rec.handlers())
	defer s.Stop()

	s.NotifyInputChanged()
	waitFor(t, 2*time.Second, func() bool {
		results, _, _ := rec.snapshot()
		return len(results) == 1
	})
}

func waitFor(t *testing.T, timeout time.Duration, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
