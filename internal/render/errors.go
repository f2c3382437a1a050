// Package render draws discovered nets and annotation trees into surfaces.
// Each redraw replaces a surface's content in one step; a failed redraw
// leaves the previous content in place.
package render

import (
	"errors"
	"fmt"
)

// ErrRender marks any failure to draw a scene.
var ErrRender = errors.New("render failed")

// RenderError reports which stage of a draw failed.
type RenderError struct {
	Stage string
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render: %s: %v", e.Stage, e.Err)
}

// Unwrap exposes both ErrRender and the underlying cause.
func (e *RenderError) Unwrap() []error {
	return []error{ErrRender, e.Err}
}
