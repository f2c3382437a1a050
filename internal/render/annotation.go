package render

import (
	"sync"

	"github.com/AaronLay10/SemanticZoom/internal/annotation"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
	"github.com/AaronLay10/SemanticZoom/internal/viewport"
)

// NoAnnotationText is shown when a result carries no tree.
const NoAnnotationText = "No annotation available."

// Annotation draws annotation trees into the annotation surface.
type Annotation struct {
	mu      sync.Mutex
	canvas  *surface.Canvas
	ctrl    *viewport.Controller
	metrics annotation.Metrics
}

// NewAnnotation returns a renderer drawing into canvas with the default text
// metrics.
func NewAnnotation(canvas *surface.Canvas, ctrl *viewport.Controller) *Annotation {
	return &Annotation{canvas: canvas, ctrl: ctrl, metrics: annotation.DefaultMetrics}
}

// Draw rebuilds the box tree for root, replaces the surface content and fits
// the tree into the container without enlarging it.
func (r *Annotation) Draw(root *annotation.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if root == nil {
		r.canvas.Replace(surface.New("text",
			surface.Attr{Name: "class", Value: "annotation-empty"},
			surface.Attr{Name: "x", Value: "10"},
			surface.Attr{Name: "y", Value: "20"},
		).SetText(NoAnnotationText))
		return r.fit(viewport.Identity)
	}

	box := annotation.Build(root)
	annotation.Layout(box, r.metrics)
	r.canvas.Replace(annotation.Render(box, r.metrics))

	return r.fit(viewport.State{Scale: FitScale(annotation.Bounds(box), r.canvas.Size())})
}

func (r *Annotation) fit(st viewport.State) error {
	if !r.ctrl.Attached() {
		if err := r.ctrl.Attach(r.canvas, nil); err != nil {
			return &RenderError{Stage: "attach", Err: err}
		}
	}
	r.ctrl.Reset(st)
	return nil
}

// FitScale returns the largest scale, at most 1, at which content fits the
// container. Degenerate sizes yield 1.
func FitScale(content surface.Rect, container surface.Size) float64 {
	if content.Width <= 0 || content.Height <= 0 || container.Width <= 0 || container.Height <= 0 {
		return 1
	}
	return min(container.Width/content.Width, container.Height/content.Height, 1)
}
