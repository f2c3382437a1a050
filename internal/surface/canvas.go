package surface

import (
	"sync"
)

const svgNS = "http://www.w3.org/2000/svg"

// ViewportClass is the class of the group that holds a surface's content
// once a viewport controller is attached.
const ViewportClass = "viewport"

// ChangeKind describes what changed on a canvas.
type ChangeKind string

const (
	ChangeContent   ChangeKind = "content"
	ChangeTransform ChangeKind = "transform"
)

// Listener is notified after a canvas changes. It is called without the
// canvas lock held.
type Listener func(c *Canvas, kind ChangeKind)

// Canvas is an in-memory <svg> surface.
type Canvas struct {
	mu        sync.RWMutex
	id        string
	root      *Element
	viewport  *Element
	viewBox   *Rect
	size      Size
	listeners []Listener
}

// NewCanvas creates an empty canvas whose container has the given size.
func NewCanvas(id string, size Size) *Canvas {
	root := New("svg",
		Attr{Name: "xmlns", Value: svgNS},
		Attr{Name: "id", Value: id},
	)
	return &Canvas{id: id, root: root, size: size}
}

// ID returns the canvas identifier.
func (c *Canvas) ID() string {
	return c.id
}

// OnChange registers a listener.
func (c *Canvas) OnChange(l Listener) {
	c.mu.Lock()
	c.listeners = append(c.listeners, l)
	c.mu.Unlock()
}

func (c *Canvas) notify(kind ChangeKind) {
	c.mu.RLock()
	listeners := append([]Listener(nil), c.listeners...)
	c.mu.RUnlock()
	for _, l := range listeners {
		l(c, kind)
	}
}

// Size returns the container size.
func (c *Canvas) Size() Size {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.size
}

// SetSize updates the container size (reported by the browser on resize).
func (c *Canvas) SetSize(s Size) {
	c.mu.Lock()
	c.size = s
	c.mu.Unlock()
}

// Append adds elements directly under the root, outside any viewport.
func (c *Canvas) Append(elems ...*Element) {
	c.mu.Lock()
	c.root.Append(elems...)
	c.mu.Unlock()
	c.notify(ChangeContent)
}

// AttachViewport moves every existing child of the root into a viewport
// group. The group is created once; later calls only sweep children that were
// appended to the root after the first attach. It reports whether the group
// was created by this call.
func (c *Canvas) AttachViewport() bool {
	c.mu.Lock()
	created := false
	if c.viewport == nil {
		c.viewport = New("g", Attr{Name: "class", Value: ViewportClass})
		created = true
	}
	var stray []*Element
	for _, child := range c.root.Children {
		if child != c.viewport {
			stray = append(stray, child)
		}
	}
	c.viewport.Children = append(c.viewport.Children, stray...)
	c.root.Children = []*Element{c.viewport}
	c.mu.Unlock()
	c.notify(ChangeContent)
	return created
}

// HasViewport reports whether a viewport group exists.
func (c *Canvas) HasViewport() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport != nil
}

// Replace swaps the visible content in a single step. Content goes inside the
// viewport group when one is attached.
func (c *Canvas) Replace(content ...*Element) {
	c.mu.Lock()
	if c.viewport != nil {
		c.viewport.Children = content
	} else {
		c.root.Children = content
	}
	c.mu.Unlock()
	c.notify(ChangeContent)
}

// Content returns a deep copy of the visible content.
func (c *Canvas) Content() []*Element {
	c.mu.RLock()
	defer c.mu.RUnlock()
	src := c.root.Children
	if c.viewport != nil {
		src = c.viewport.Children
	}
	out := make([]*Element, len(src))
	for i, e := range src {
		out[i] = e.Clone()
	}
	return out
}

// Count counts matching elements in the visible content.
func (c *Canvas) Count(fn func(*Element) bool) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.root.Children {
		if e == c.viewport {
			for _, inner := range e.Children {
				n += inner.Count(fn)
			}
			continue
		}
		n += e.Count(fn)
	}
	return n
}

// SetTransform sets the viewport group transform. It is a no-op until a
// viewport is attached.
func (c *Canvas) SetTransform(transform string) {
	c.mu.Lock()
	if c.viewport == nil {
		c.mu.Unlock()
		return
	}
	c.viewport.Set("transform", transform)
	c.mu.Unlock()
	c.notify(ChangeTransform)
}

// Transform returns the current viewport transform.
func (c *Canvas) Transform() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewport == nil {
		return ""
	}
	v, _ := c.viewport.Get("transform")
	return v
}

// SetViewBox sets the native coordinate frame of the surface.
func (c *Canvas) SetViewBox(r Rect) {
	c.mu.Lock()
	c.viewBox = &r
	c.root.Set("viewBox", r.String())
	c.root.Set("preserveAspectRatio", "xMidYMid meet")
	c.mu.Unlock()
	c.notify(ChangeContent)
}

// ViewBox returns the view box, if one was set.
func (c *Canvas) ViewBox() (Rect, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewBox == nil {
		return Rect{}, false
	}
	return *c.viewBox, true
}

// ToUser maps a point in CSS pixels, relative to the container's top-left
// corner, to the user units of the view box under xMidYMid meet. Without a
// view box, or before the container has a size, the mapping is the identity.
func (c *Canvas) ToUser(x, y float64) (float64, float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.viewBox == nil || c.viewBox.Empty() || c.size.Width <= 0 || c.size.Height <= 0 {
		return x, y
	}
	vb := *c.viewBox
	meet := min(c.size.Width/vb.Width, c.size.Height/vb.Height)
	offX := (c.size.Width - vb.Width*meet) / 2
	offY := (c.size.Height - vb.Height*meet) / 2
	return (x-offX)/meet + vb.X, (y-offY)/meet + vb.Y
}

// Markup serializes the whole surface.
func (c *Canvas) Markup() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.root.Markup()
}
