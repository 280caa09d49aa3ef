// Package canvas holds the vector annotation document drawn over a photo.
//
// Shapes live in an arena keyed by id; the document owns their order
// (z-order) and nothing else. Rendering is done elsewhere by walking the
// shapes, so the document can be copied, snapshotted and restored freely.
package canvas

import (
	"fmt"
	"math"
)

// Kind tags the geometry variant of a shape.
type Kind string

const (
	KindArrow     Kind = "arrow"
	KindCircle    Kind = "circle"
	KindRectangle Kind = "rectangle"
	KindPath      Kind = "path"
	KindText      Kind = "text"
)

// Color is one of the three annotation palette colors.
type Color string

const (
	ColorUrgent    Color = "#EF4444"
	ColorAttention Color = "#F59E0B"
	ColorInfo      Color = "#3B82F6"
)

// Palette lists the allowed colors in display order.
var Palette = []Color{ColorUrgent, ColorAttention, ColorInfo}

// Valid reports whether c belongs to the palette.
func (c Color) Valid() bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}

// RGBA returns the color components.
func (c Color) RGBA() (r, g, b uint8) {
	var v uint32
	fmt.Sscanf(string(c), "#%06X", &v)
	return uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// StrokeWidth is a line thickness in canvas units.
type StrokeWidth int

const (
	StrokeThin   StrokeWidth = 2
	StrokeMedium StrokeWidth = 4
	StrokeThick  StrokeWidth = 6
)

// Valid reports whether w is one of thin, medium or thick.
func (w StrokeWidth) Valid() bool {
	return w == StrokeThin || w == StrokeMedium || w == StrokeThick
}

// Point is a position in canvas space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point {
	return Point{X: p.X + dx, Y: p.Y + dy}
}

// Dist returns the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

// Rotate rotates p by deg degrees around c.
func (p Point) Rotate(c Point, deg float64) Point {
	if deg == 0 {
		return p
	}
	sin, cos := math.Sincos(deg * math.Pi / 180)
	dx, dy := p.X-c.X, p.Y-c.Y
	return Point{X: c.X + dx*cos - dy*sin, Y: c.Y + dx*sin + dy*cos}
}

// Rect is an axis aligned box.
type Rect struct {
	Min, Max Point
}

func (r Rect) Width() float64  { return r.Max.X - r.Min.X }
func (r Rect) Height() float64 { return r.Max.Y - r.Min.Y }

// Center returns the middle of the box.
func (r Rect) Center() Point {
	return Point{X: (r.Min.X + r.Max.X) / 2, Y: (r.Min.Y + r.Max.Y) / 2}
}

// Contains reports whether p is inside r grown by tol on every side.
func (r Rect) Contains(p Point, tol float64) bool {
	return p.X >= r.Min.X-tol && p.X <= r.Max.X+tol &&
		p.Y >= r.Min.Y-tol && p.Y <= r.Max.Y+tol
}

func boundsOf(pts ...Point) Rect {
	if len(pts) == 0 {
		return Rect{}
	}
	r := Rect{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		r.Min.X = math.Min(r.Min.X, p.X)
		r.Min.Y = math.Min(r.Min.Y, p.Y)
		r.Max.X = math.Max(r.Max.X, p.X)
		r.Max.Y = math.Max(r.Max.Y, p.Y)
	}
	return r
}

// Shape is one annotation. Its variant is carried by Geometry.
type Shape struct {
	ID          string
	Color       Color
	StrokeWidth StrokeWidth
	Selectable  bool
	// Angle is a rotation in degrees around the center of the geometry bounds.
	Angle    float64
	Geometry Geometry
}

// Kind returns the variant tag, or "" when the shape has no geometry.
func (s Shape) Kind() Kind {
	if s.Geometry == nil {
		return ""
	}
	return s.Geometry.Kind()
}

// Bounds returns the axis aligned bounds of the rotated shape.
func (s Shape) Bounds() Rect {
	b := s.Geometry.Bounds()
	if s.Angle == 0 {
		return b
	}
	c := b.Center()
	return boundsOf(
		b.Min.Rotate(c, s.Angle),
		Point{X: b.Max.X, Y: b.Min.Y}.Rotate(c, s.Angle),
		b.Max.Rotate(c, s.Angle),
		Point{X: b.Min.X, Y: b.Max.Y}.Rotate(c, s.Angle),
	)
}

// Clone returns a deep copy of s.
func (s Shape) Clone() Shape {
	if s.Geometry != nil {
		s.Geometry = s.Geometry.clone()
	}
	return s
}

// Validate checks the attributes shared by every variant.
func (s Shape) Validate() error {
	if s.Geometry == nil {
		return fmt.Errorf("shape %q: missing geometry", s.ID)
	}
	if !s.Color.Valid() {
		return fmt.Errorf("shape %q: color %q is not in the palette", s.ID, s.Color)
	}
	if !s.StrokeWidth.Valid() {
		return fmt.Errorf("shape %q: invalid stroke width %d", s.ID, s.StrokeWidth)
	}
	return nil
}
