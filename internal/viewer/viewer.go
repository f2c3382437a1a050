// Package viewer runs one page session: two surfaces with their viewport
// controllers, the net and annotation renderers, the aggregation controls and
// the debounced request pipeline. Every visible change is pushed to the page
// as an Update.
package viewer

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/AaronLay10/SemanticZoom/internal/controls"
	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/layout"
	"github.com/AaronLay10/SemanticZoom/internal/miner"
	"github.com/AaronLay10/SemanticZoom/internal/render"
	"github.com/AaronLay10/SemanticZoom/internal/scheduler"
	"github.com/AaronLay10/SemanticZoom/internal/session"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
	"github.com/AaronLay10/SemanticZoom/internal/viewport"
)

// Surface names as used by the page.
const (
	SurfaceGraph      = "graph"
	SurfaceAnnotation = "annotation"
)

// ErrUnknownSurface is returned for input addressed to a surface that does
// not exist.
var ErrUnknownSurface = errors.New("unknown surface")

// Miner is the mining service.
type Miner interface {
	Discover(ctx context.Context, filename string, log io.Reader) (*miner.Result, error)
	Aggregate(ctx context.Context, p miner.AggregationParams) (*miner.Result, error)
}

// Observer receives timing and outcome measurements.
type Observer interface {
	ObserveRender(surface string, d time.Duration, err error)
	ObserveRequest(op, outcome string, d time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRender(string, time.Duration, error)   {}
func (nopObserver) ObserveRequest(string, string, time.Duration) {}

// Options configure a page session. Miner and Layout are required.
type Options struct {
	ID     string
	Miner  Miner
	Layout layout.Service

	Window time.Duration
	Clock  scheduler.Clock

	GraphSize      surface.Size
	AnnotationSize surface.Size

	// Notify receives every update for the page. It must not block.
	Notify func(Update)
	// OnStatus is called with every new status line.
	OnStatus func(sessionID, text string)
	// OnDiscovered is called after a successful discovery.
	OnDiscovered func(ctx context.Context, sessionID, fileName string, res *miner.Result)
	Observer     Observer
}

type pane struct {
	canvas *surface.Canvas
	ctrl   *viewport.Controller
}

// Viewer is one page session.
type Viewer struct {
	id       string
	opts     Options
	observer Observer

	ctx    context.Context
	cancel context.CancelFunc

	panes      map[string]*pane
	graph      *render.Graph
	annotation *render.Annotation

	session  *session.State
	controls *controls.Controls
	sched    *scheduler.Scheduler

	// drawMu orders a discovery's draw against aggregation redraws.
	drawMu sync.Mutex

	mu     sync.Mutex
	status string
	closed bool
}

// New wires a page session.
func New(opts Options) *Viewer {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	v := &Viewer{
		id:       opts.ID,
		opts:     opts,
		observer: obs,
		ctx:      ctx,
		cancel:   cancel,
		session:  session.New(),
		controls: controls.New(),
	}

	graphPane := &pane{
		canvas: surface.NewCanvas("graph-surface", opts.GraphSize),
		ctrl:   viewport.New(viewport.GraphBounds),
	}
	annPane := &pane{
		canvas: surface.NewCanvas("annotation-surface", opts.AnnotationSize),
		ctrl:   viewport.New(viewport.AnnotationBounds),
	}
	v.panes = map[string]*pane{
		SurfaceGraph:      graphPane,
		SurfaceAnnotation: annPane,
	}
	for name, p := range v.panes {
		name := name
		p.canvas.OnChange(func(c *surface.Canvas, kind surface.ChangeKind) {
			if kind == surface.ChangeTransform {
				v.push(Update{Type: UpdateTransform, Surface: name, Value: c.Transform()})
			}
		})
	}

	v.graph = render.NewGraph(graphPane.canvas, graphPane.ctrl, opts.Layout)
	v.annotation = render.NewAnnotation(annPane.canvas, annPane.ctrl)

	v.sched = scheduler.New(
		scheduler.Config{Window: opts.Window, Clock: opts.Clock},
		v.session,
		v.controls.Params,
		timedMiner{m: opts.Miner, obs: obs},
		scheduler.Handlers{
			OnDispatch: v.onDispatch,
			OnResult:   v.onAggregated,
			OnFailure:  v.onAggregationFailed,
			OnDiscard:  v.onDiscarded,
		},
	)

	events.Emit("info", "session.opened", "", v.fields(nil))
	return v
}

// ID returns the page session id.
func (v *Viewer) ID() string {
	return v.id
}

// Status returns the current status line.
func (v *Viewer) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// LogID returns the id of the discovered log, if any.
func (v *Viewer) LogID() (string, bool) {
	return v.session.LogID()
}

// Controls returns the current control values.
func (v *Viewer) Controls() controls.View {
	return v.controls.View()
}

// Canvas exposes a surface for inspection.
func (v *Viewer) Canvas(name string) (*surface.Canvas, bool) {
	p, ok := v.panes[name]
	if !ok {
		return nil, false
	}
	return p.canvas, true
}

// Controller exposes a surface's viewport controller.
func (v *Viewer) Controller(name string) (*viewport.Controller, bool) {
	p, ok := v.panes[name]
	if !ok {
		return nil, false
	}
	return p.ctrl, true
}

// Snapshot returns the updates that bring a fresh page up to date.
func (v *Viewer) Snapshot() []Update {
	out := []Update{{Type: UpdateSession, ID: v.id}}
	for _, name := range []string{SurfaceGraph, SurfaceAnnotation} {
		out = append(out, v.contentUpdate(name))
		if t := v.panes[name].canvas.Transform(); t != "" {
			out = append(out, Update{Type: UpdateTransform, Surface: name, Value: t})
		}
	}
	view := v.controls.View()
	out = append(out, Update{Type: UpdateControls, View: &view})
	if s := v.Status(); s != "" {
		out = append(out, Update{Type: UpdateStatus, Text: s})
	}
	return out
}

// Close stops the request pipeline. Pending timers are cancelled and late
// responses are dropped.
func (v *Viewer) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.mu.Unlock()

	v.sched.Stop()
	v.cancel()
	events.Emit("info", "session.closed", "", v.fields(nil))
}

// Wait blocks until in-flight aggregation requests have finished.
func (v *Viewer) Wait() {
	v.sched.Wait()
}

func (v *Viewer) setStatus(text string) {
	v.mu.Lock()
	v.status = text
	v.mu.Unlock()

	v.push(Update{Type: UpdateStatus, Text: text})
	if v.opts.OnStatus != nil {
		v.opts.OnStatus(v.id, text)
	}
}

func (v *Viewer) push(u Update) {
	if v.opts.Notify != nil {
		v.opts.Notify(u)
	}
}

func (v *Viewer) contentUpdate(name string) Update {
	c := v.panes[name].canvas
	u := Update{Type: UpdateContent, Surface: name, Markup: c.Markup()}
	if vb, ok := c.ViewBox(); ok {
		u.ViewBox = vb.String()
	}
	return u
}

func (v *Viewer) fields(extra map[string]interface{}) map[string]interface{} {
	f := map[string]interface{}{events.SessionField: v.id}
	for k, val := range extra {
		f[k] = val
	}
	return f
}

func (v *Viewer) logf(format string, args ...interface{}) {
	log.Printf("viewer[%s]: "+format, append([]interface{}{v.id}, args...)...)
}

// timedMiner measures aggregation round trips.
type timedMiner struct {
	m   Miner
	obs Observer
}

func (t timedMiner) Aggregate(ctx context.Context, p miner.AggregationParams) (*miner.Result, error) {
	start := time.Now()
	res, err := t.m.Aggregate(ctx, p)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	t.obs.ObserveRequest("aggregate", outcome, time.Since(start))
	return res, err
}
