package viewer

import (
	"fmt"

	"github.com/AaronLay10/SemanticZoom/internal/controls"
	"github.com/AaronLay10/SemanticZoom/internal/events"
	"github.com/AaronLay10/SemanticZoom/internal/surface"
)

func (v *Viewer) pane(name string) (*pane, error) {
	p, ok := v.panes[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSurface, name)
	}
	return p, nil
}

// Resize records a surface's container size as measured by the page.
func (v *Viewer) Resize(name string, width, height float64) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	p.canvas.SetSize(surface.Size{Width: width, Height: height})
	return nil
}

// PointerDown starts a drag on a surface.
func (v *Viewer) PointerDown(name string, pointerID, button int, x, y float64) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	ux, uy := p.canvas.ToUser(x, y)
	p.ctrl.PointerDown(pointerID, button, ux, uy)
	return nil
}

// PointerMove pans a surface while it is being dragged.
func (v *Viewer) PointerMove(name string, pointerID int, x, y float64) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	ux, uy := p.canvas.ToUser(x, y)
	p.ctrl.PointerMove(pointerID, ux, uy)
	return nil
}

// PointerUp ends a drag.
func (v *Viewer) PointerUp(name string, pointerID int) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	p.ctrl.PointerUp(pointerID)
	return nil
}

// PointerLeave ends a drag when the pointer leaves the surface.
func (v *Viewer) PointerLeave(name string) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	p.ctrl.PointerLeave()
	return nil
}

// Wheel zooms a surface around the cursor. Coordinates are CSS pixels
// relative to the surface's top-left corner; the controller works in the
// surface's user units, so pointer positions are mapped through its view box.
func (v *Viewer) Wheel(name string, x, y, deltaY float64) error {
	p, err := v.pane(name)
	if err != nil {
		return err
	}
	ux, uy := p.canvas.ToUser(x, y)
	p.ctrl.Zoom(ux, uy, deltaY)
	return nil
}

// SetLevel moves the detail level slider.
func (v *Viewer) SetLevel(value float64) {
	v.controls.SetLevel(value)
	v.controlsChanged("level")
}

// SetThreshold moves the semantic threshold slider.
func (v *Viewer) SetThreshold(value float64) {
	v.controls.SetThreshold(value)
	v.controlsChanged("threshold")
}

// SelectMode picks a semantic metric. The threshold side effect is applied
// before the request is scheduled.
func (v *Viewer) SelectMode(mode string) {
	v.controls.SelectMode(controls.Mode(mode))
	v.controlsChanged("mode")
}

func (v *Viewer) controlsChanged(control string) {
	view := v.controls.View()
	v.push(Update{Type: UpdateControls, View: &view})
	events.Emit("info", "control.changed", "", v.fields(map[string]interface{}{
		"control":   control,
		"level":     view.Level,
		"threshold": view.Threshold,
		"mode":      string(view.Mode),
	}))
	v.sched.NotifyInputChanged()
}
