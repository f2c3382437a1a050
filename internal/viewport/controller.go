// Package viewport implements the pan/zoom transform controller that is
// attached independently to each visual surface.
package viewport

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
)

// WheelSensitivity is the exponential zoom factor per wheel delta unit.
const WheelSensitivity = 0.0015

// PrimaryButton is the only pointer button that starts a drag.
const PrimaryButton = 0

// ErrAlreadyAttached is returned when a controller is attached to a second surface.
var ErrAlreadyAttached = errors.New("viewport: controller already attached to another surface")

// Bounds limits the scale a controller may reach.
type Bounds struct {
	Min float64
	Max float64
}

var (
	// GraphBounds are the scale bounds of the Petri net surface.
	GraphBounds = Bounds{Min: 0.2, Max: 8.0}
	// AnnotationBounds are the scale bounds of the annotation tree surface.
	AnnotationBounds = Bounds{Min: 0.1, Max: 6.0}
)

// Clamp limits s to the bounds.
func (b Bounds) Clamp(s float64) float64 {
	return math.Min(b.Max, math.Max(b.Min, s))
}

// State is the affine pan/zoom state of one surface.
type State struct {
	Scale      float64 `json:"scale"`
	TranslateX float64 `json:"tx"`
	TranslateY float64 `json:"ty"`
}

// Identity is scale 1 with no translation.
var Identity = State{Scale: 1}

// Surface is the capability a controller needs from the surface it drives.
type Surface interface {
	AttachViewport() bool
	SetTransform(transform string)
}

// Controller owns the pan/zoom state of exactly one surface.
type Controller struct {
	mu      sync.Mutex
	bounds  Bounds
	state   State
	surface Surface

	dragging bool
	pointer  int
	lastX    float64
	lastY    float64
}

// New creates a detached controller at identity scale.
func New(bounds Bounds) *Controller {
	return &Controller{bounds: bounds, state: Identity}
}

// Attach wraps the surface's children in a viewport group and starts driving
// its transform. Attaching the same surface again is allowed and only
// re-applies the transform.
func (c *Controller) Attach(s Surface, initial *State) error {
	c.mu.Lock()
	if c.surface != nil && c.surface != s {
		c.mu.Unlock()
		return ErrAlreadyAttached
	}
	c.surface = s
	if initial != nil {
		c.state = c.clamped(*initial)
	}
	c.mu.Unlock()

	s.AttachViewport()
	c.apply()
	return nil
}

// Attached reports whether the controller drives a surface.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.surface != nil
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Bounds returns the scale bounds.
func (c *Controller) Bounds() Bounds {
	return c.bounds
}

// Pan translates by (dx, dy) in the surface's user units.
func (c *Controller) Pan(dx, dy float64) {
	c.mu.Lock()
	c.state.TranslateX += dx
	c.state.TranslateY += dy
	c.mu.Unlock()
	c.apply()
}

// Zoom scales around the cursor so the world point under the cursor stays
// put. Cursor coordinates are relative to the surface's top-left corner.
func (c *Controller) Zoom(cursorX, cursorY, deltaWheel float64) {
	c.mu.Lock()
	s := c.state.Scale
	wx := (cursorX - c.state.TranslateX) / s
	wy := (cursorY - c.state.TranslateY) / s

	next := c.bounds.Clamp(s * math.Exp(-WheelSensitivity*deltaWheel))
	c.state.TranslateX = cursorX - wx*next
	c.state.TranslateY = cursorY - wy*next
	c.state.Scale = next
	c.mu.Unlock()
	c.apply()
}

// Reset replaces the whole state at once. The scale is clamped to bounds.
func (c *Controller) Reset(st State) {
	c.mu.Lock()
	c.state = c.clamped(st)
	c.mu.Unlock()
	c.apply()
}

// WorldAt maps a surface point to world coordinates under the current state.
func (c *Controller) WorldAt(x, y float64) (float64, float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return (x - c.state.TranslateX) / c.state.Scale, (y - c.state.TranslateY) / c.state.Scale
}

// PointerDown starts a drag for the primary button and captures the pointer.
func (c *Controller) PointerDown(pointerID, button int, x, y float64) {
	if button != PrimaryButton {
		return
	}
	c.mu.Lock()
	c.dragging = true
	c.pointer = pointerID
	c.lastX, c.lastY = x, y
	c.mu.Unlock()
}

// PointerMove pans by the distance moved since the last pointer event while
// the captured pointer is held.
func (c *Controller) PointerMove(pointerID int, x, y float64) {
	c.mu.Lock()
	if !c.dragging || pointerID != c.pointer {
		c.mu.Unlock()
		return
	}
	dx, dy := x-c.lastX, y-c.lastY
	c.lastX, c.lastY = x, y
	c.mu.Unlock()
	c.Pan(dx, dy)
}

// PointerUp releases the captured pointer.
func (c *Controller) PointerUp(pointerID int) {
	c.mu.Lock()
	if pointerID == c.pointer {
		c.dragging = false
	}
	c.mu.Unlock()
}

// PointerLeave stops any drag in progress.
func (c *Controller) PointerLeave() {
	c.mu.Lock()
	c.dragging = false
	c.mu.Unlock()
}

// Dragging reports whether a drag is in progress.
func (c *Controller) Dragging() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dragging
}

// Transform renders the state as an SVG transform attribute.
func (c *Controller) Transform() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return FormatTransform(c.state)
}

func (c *Controller) apply() {
	c.mu.Lock()
	s := c.surface
	t := FormatTransform(c.state)
	c.mu.Unlock()
	if s != nil {
		s.SetTransform(t)
	}
}

func (c *Controller) clamped(st State) State {
	if st.Scale == 0 || math.IsNaN(st.Scale) {
		st.Scale = 1
	}
	st.Scale = c.bounds.Clamp(st.Scale)
	return st
}

// FormatTransform renders translate(tx,ty) scale(s).
func FormatTransform(st State) string {
	return fmt.Sprintf("translate(%s,%s) scale(%s)", num(st.TranslateX), num(st.TranslateY), num(st.Scale))
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
