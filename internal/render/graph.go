package render

import (
	"context"
	"sync"

	"github.com/AaronLay10/SemanticZoom/internal/layout"
	"github.com/AaronLay10/SemanticZoom/internal/petri"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
	"github.com/AaronLay10/SemanticZoom/internal/viewport"
)

// Graph draws Petri nets into the graph surface.
type Graph struct {
	mu     sync.Mutex
	canvas *surface.Canvas
	ctrl   *viewport.Controller
	layout layout.Service
}

// NewGraph returns a renderer that lays nets out with svc, draws them into
// canvas and lets ctrl drive the canvas transform.
func NewGraph(canvas *surface.Canvas, ctrl *viewport.Controller, svc layout.Service) *Graph {
	return &Graph{canvas: canvas, ctrl: ctrl, layout: svc}
}

// Draw lays g out and replaces the surface content with the resulting scene.
// The controller is attached on the first successful draw; its pan and zoom
// survive later redraws.
func (r *Graph) Draw(ctx context.Context, g petri.Graph) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := g.Validate(); err != nil {
		return &RenderError{Stage: "validate", Err: err}
	}

	scene, err := r.layout.Render(ctx, petri.DOT(g))
	if err != nil {
		return &RenderError{Stage: "layout", Err: err}
	}
	if scene == nil || scene.Graph == nil {
		return &RenderError{Stage: "layout", Err: layout.ErrNoGraph}
	}

	var content []*surface.Element
	if scene.Defs != nil {
		content = append(content, scene.Defs.Clone())
	}
	content = append(content, scene.Graph.Clone())

	r.canvas.Replace(content...)
	r.canvas.SetViewBox(scene.Bounds)

	if !r.ctrl.Attached() {
		return r.ctrl.Attach(r.canvas, nil)
	}
	return nil
}
