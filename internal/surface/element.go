// Package surface holds the in-memory visual surfaces the viewer renders into.
//
// A surface is a tree of markup elements rooted at an <svg> element. Once a
// viewport controller is attached, all content lives inside a single
// <g class="viewport"> child so content can be replaced without touching the
// pan/zoom transform. Surfaces serialize to markup that the browser shell
// splices into the page.
package surface

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// Attr is a single markup attribute. Attribute order is preserved so that
// serialization is deterministic.
type Attr struct {
	Name  string
	Value string
}

// Element is a node in a surface's markup tree.
type Element struct {
	Tag      string
	Attrs    []Attr
	Text     string
	Children []*Element
}

// New creates an element with the given tag and attributes.
func New(tag string, attrs ...Attr) *Element {
	return &Element{Tag: tag, Attrs: attrs}
}

// Set sets an attribute, replacing an existing value with the same name.
func (e *Element) Set(name, value string) *Element {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = value
			return e
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: value})
	return e
}

// Get returns an attribute value.
func (e *Element) Get(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// HasClass reports whether the class attribute contains class.
func (e *Element) HasClass(class string) bool {
	v, ok := e.Get("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

// Append adds children and returns e for chaining.
func (e *Element) Append(children ...*Element) *Element {
	e.Children = append(e.Children, children...)
	return e
}

// SetText sets the text content and returns e for chaining.
func (e *Element) SetText(text string) *Element {
	e.Text = text
	return e
}

// Clone returns a deep copy of e.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	cpy := &Element{
		Tag:   e.Tag,
		Attrs: append([]Attr(nil), e.Attrs...),
		Text:  e.Text,
	}
	if len(e.Children) > 0 {
		cpy.Children = make([]*Element, len(e.Children))
		for i, c := range e.Children {
			cpy.Children[i] = c.Clone()
		}
	}
	return cpy
}

// Find returns the first element in pre-order (including e) matching fn.
func (e *Element) Find(fn func(*Element) bool) *Element {
	if e == nil {
		return nil
	}
	if fn(e) {
		return e
	}
	for _, c := range e.Children {
		if found := c.Find(fn); found != nil {
			return found
		}
	}
	return nil
}

// Count returns the number of elements in the subtree (including e) matching fn.
func (e *Element) Count(fn func(*Element) bool) int {
	if e == nil {
		return 0
	}
	n := 0
	if fn(e) {
		n++
	}
	for _, c := range e.Children {
		n += c.Count(fn)
	}
	return n
}

// ByTag matches elements with the given tag.
func ByTag(tag string) func(*Element) bool {
	return func(e *Element) bool { return e.Tag == tag }
}

// ByClass matches elements carrying the given class.
func ByClass(class string) func(*Element) bool {
	return func(e *Element) bool { return e.HasClass(class) }
}

// WriteMarkup serializes e as XML markup.
func (e *Element) WriteMarkup(w io.Writer) error {
	if _, err := io.WriteString(w, "<"+e.Tag); err != nil {
		return err
	}
	for _, a := range e.Attrs {
		if _, err := io.WriteString(w, " "+a.Name+`="`); err != nil {
			return err
		}
		if err := xml.EscapeText(w, []byte(a.Value)); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `"`); err != nil {
			return err
		}
	}
	if e.Text == "" && len(e.Children) == 0 {
		_, err := io.WriteString(w, "/>")
		return err
	}
	if _, err := io.WriteString(w, ">"); err != nil {
		return err
	}
	if e.Text != "" {
		if err := xml.EscapeText(w, []byte(e.Text)); err != nil {
			return err
		}
	}
	for _, c := range e.Children {
		if err := c.WriteMarkup(w); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, "</"+e.Tag+">")
	return err
}

// Markup returns the serialized markup of e.
func (e *Element) Markup() string {
	var buf bytes.Buffer
	_ = e.WriteMarkup(&buf)
	return buf.String()
}
