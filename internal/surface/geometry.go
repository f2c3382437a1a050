package surface

import (
	"fmt"
	"strconv"
	"strings"
)

// Size is a container size in CSS pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is an axis-aligned box in surface coordinates.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Union returns the smallest rect containing r and o. Empty rects are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	x0 := min(r.X, o.X)
	y0 := min(r.Y, o.Y)
	x1 := max(r.X+r.Width, o.X+o.Width)
	y1 := max(r.Y+r.Height, o.Y+o.Height)
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// String formats r as an SVG viewBox value.
func (r Rect) String() string {
	return fmt.Sprintf("%s %s %s %s", fmtNum(r.X), fmtNum(r.Y), fmtNum(r.Width), fmtNum(r.Height))
}

// ParseViewBox parses "x y w h" (comma or whitespace separated).
func ParseViewBox(s string) (Rect, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n'
	})
	if len(fields) != 4 {
		return Rect{}, fmt.Errorf("invalid viewBox %q", s)
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return Rect{}, fmt.Errorf("invalid viewBox %q: %w", s, err)
		}
		v[i] = n
	}
	return Rect{X: v[0], Y: v[1], Width: v[2], Height: v[3]}, nil
}

// ParseLength parses an SVG length such as "120", "120px" or "90pt" into
// points as written; unit suffixes are stripped.
func ParseLength(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimRight(s, "abcdefghijklmnopqrstuvwxyz%")
	return strconv.ParseFloat(s, 64)
}

func fmtNum(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
