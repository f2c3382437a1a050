// Package scheduler debounces control input into aggregation requests.
//
// Every input change restarts a single quiescence timer. When the timer fires
// and a log has been discovered, the current control values are sent to the
// mining service. Each request gets a sequence number; a response is only
// delivered if no later request was dispatched in the meantime.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/session"
)

// DefaultWindow is the quiescence window.
const DefaultWindow = 400 * time.Millisecond

// Dispatcher performs one aggregation request.
type Dispatcher interface {
	Aggregate(ctx context.Context, p miner.AggregationParams) (*miner.Result, error)
}

// Config tunes a scheduler. Zero values pick the defaults.
type Config struct {
	Window time.Duration
	Clock  Clock
}

// Handlers receive the outcome of dispatched requests. Any of them may be nil.
type Handlers struct {
	// OnDispatch is called with the sequence number and params of every
	// request just before it is sent.
	OnDispatch func(seq uint64, p miner.AggregationParams)
	// OnResult receives the response of the most recent request.
	OnResult func(seq uint64, res *miner.Result)
	// OnFailure receives the error of the most recent request.
	OnFailure func(seq uint64, err error)
	// OnDiscard is called for responses superseded by a later request.
	OnDiscard func(seq uint64)
}

// Scheduler coalesces input changes into aggregation requests.
type Scheduler struct {
	window   time.Duration
	clock    Clock
	session  *session.State
	snapshot func() miner.AggregationParams
	dispatch Dispatcher
	handlers Handlers

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	timer   Timer
	gen     uint64
	seq     uint64
	stopped bool

	// deliverMu orders the staleness check with delivery so an older
	// response can never land after a newer one.
	deliverMu sync.Mutex
	delivered uint64
}

// New returns a scheduler reading the log id from st and the control values
// from snapshot at fire time.
func New(cfg Config, st *session.State, snapshot func() miner.AggregationParams, d Dispatcher, h Handlers) *Scheduler {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		window:   cfg.Window,
		clock:    cfg.Clock,
		session:  st,
		snapshot: snapshot,
		dispatch: d,
		handlers: h,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// NotifyInputChanged cancels any pending timer and arms a new one.
func (s *Scheduler) NotifyInputChanged() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.clock.AfterFunc(s.window, func() { s.fire(gen) })
}

// Pending reports whether a timer is armed.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}

// Dispatched returns the sequence number of the last dispatched request, or
// of the last Supersede if that came later.
func (s *Scheduler) Dispatched() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Supersede makes every in-flight request stale without sending a new one.
// A fresh discovery calls it so aggregations of the previous log are dropped.
// A pending timer is left armed; when it fires it reads the new log id.
func (s *Scheduler) Supersede() {
	s.mu.Lock()
	s.seq++
	s.mu.Unlock()
}

// Current reports whether seq is still the newest request: nothing was
// dispatched or superseded after it. The pending timer is not considered.
func (s *Scheduler) Current(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return seq == s.seq && !s.stopped
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	logID, ok := s.session.LogID()
	if !ok {
		s.mu.Unlock()
		return
	}
	params := s.snapshot()
	params.LogID = logID
	s.seq++
	seq := s.seq
	s.wg.Add(1)
	s.mu.Unlock()

	if s.handlers.OnDispatch != nil {
		s.handlers.OnDispatch(seq, params)
	}
	go s.run(seq, params)
}

func (s *Scheduler) run(seq uint64, params miner.AggregationParams) {
	defer s.wg.Done()

	res, err := s.dispatch.Aggregate(s.ctx, params)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	latest, stopped := s.seq, s.stopped
	s.mu.Unlock()
	if stopped {
		return
	}
	if seq != latest || seq <= s.delivered {
		if s.handlers.OnDiscard != nil {
			s.handlers.OnDiscard(seq)
		}
		return
	}
	s.delivered = seq

	if err != nil {
		if s.handlers.OnFailure != nil {
			s.handlers.OnFailure(seq, err)
		}
		return
	}
	if s.handlers.OnResult != nil {
		s.handlers.OnResult(seq, res)
	}
}

// Stop cancels the pending timer and in-flight requests. Nothing is delivered
// after Stop returns, except by a handler call already in progress.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()
	s.cancel()
}

// Wait blocks until every dispatched request has finished.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
