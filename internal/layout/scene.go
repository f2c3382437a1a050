// Package layout turns a graph description into a positioned vector scene by
// running an external layout engine, and parses the engine's SVG output into
// surface elements.
package layout

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/AaronLay10/SemanticZoom/internal/surface"
)

// ErrNoGraph is returned when a scene has no graph group.
var ErrNoGraph = errors.New("layout: scene has no graph group")

const xlinkNS = "http://www.w3.org/1999/xlink"

// Scene is a positioned vector scene produced by a layout engine.
type Scene struct {
	// Defs holds the scene's shared definitions (markers, gradients); nil when
	// the engine emitted none.
	Defs *surface.Element
	// Graph is the root group of the drawn graph.
	Graph *surface.Element
	// Bounds is the scene's native coordinate frame.
	Bounds surface.Rect
}

// Service lays out a graph description.
type Service interface {
	Render(ctx context.Context, dot string) (*Scene, error)
}

// ParseScene decodes an SVG document and extracts its definitions, graph group
// and bounds. Bounds come from the viewBox, falling back to width and height.
func ParseScene(r io.Reader) (*Scene, error) {
	root, err := ParseSVG(r)
	if err != nil {
		return nil, err
	}

	scene := &Scene{}
	for _, c := range root.Children {
		switch {
		case c.Tag == "defs" && scene.Defs == nil:
			scene.Defs = c
		case c.Tag == "g" && c.HasClass("graph") && scene.Graph == nil:
			scene.Graph = c
		}
	}
	if scene.Graph == nil {
		return nil, ErrNoGraph
	}

	if vb, ok := root.Get("viewBox"); ok {
		if scene.Bounds, err = surface.ParseViewBox(vb); err != nil {
			return nil, err
		}
		return scene, nil
	}

	w, _ := root.Get("width")
	h, _ := root.Get("height")
	width, err := surface.ParseLength(w)
	if err != nil {
		return nil, fmt.Errorf("layout: scene has no usable size: %w", err)
	}
	height, err := surface.ParseLength(h)
	if err != nil {
		return nil, fmt.Errorf("layout: scene has no usable size: %w", err)
	}
	scene.Bounds = surface.Rect{Width: width, Height: height}
	return scene, nil
}

// ParseSVG decodes an SVG document into an element tree rooted at <svg>.
// Comments, processing instructions and the doctype are dropped.
func ParseSVG(r io.Reader) (*surface.Element, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = false

	var (
		root  *surface.Element
		stack []*surface.Element
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("layout: failed to parse scene: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := surface.New(t.Name.Local)
			for _, a := range t.Attr {
				name, ok := attrName(a.Name)
				if ok {
					el.Set(name, a.Value)
				}
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.New("layout: multiple root elements")
				}
				root = el
			} else {
				parent := stack[len(stack)-1]
				parent.Append(el)
			}
			stack = append(stack, el)

		case xml.EndElement:
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			if text := strings.TrimSpace(string(t)); text != "" {
				top := stack[len(stack)-1]
				top.Text += text
			}
		}
	}

	if root == nil || root.Tag != "svg" {
		return nil, errors.New("layout: document is not an svg scene")
	}
	return root, nil
}

func attrName(n xml.Name) (string, bool) {
	switch {
	case n.Space == "" && n.Local == "xmlns":
		return "", false
	case n.Space == "xmlns":
		return "", false
	case n.Space == xlinkNS || n.Space == "xlink":
		return "xlink:" + n.Local, true
	case n.Space == "xml" || n.Space == "http://www.w3.org/XML/1998/namespace":
		return "xml:" + n.Local, true
	default:
		return n.Local, true
	}
}
