package canvas

import "math"

// Transform maps photo space to canvas space: canvas = photo*Scale + Offset.
type Transform struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// Identity is the transform of a canvas that matches the photo exactly.
func Identity() Transform {
	return Transform{Scale: 1}
}

// FitTransform scales a pw x ph photo to fit a cw x ch canvas keeping the
// aspect ratio, and centers it.
func FitTransform(pw, ph, cw, ch int) Transform {
	if pw <= 0 || ph <= 0 || cw <= 0 || ch <= 0 {
		return Identity()
	}
	scale := math.Min(float64(cw)/float64(pw), float64(ch)/float64(ph))
	return Transform{
		Scale:   scale,
		OffsetX: (float64(cw) - float64(pw)*scale) / 2,
		OffsetY: (float64(ch) - float64(ph)*scale) / 2,
	}
}

// ToCanvas maps a photo point to the canvas.
func (t Transform) ToCanvas(p Point) Point {
	return Point{X: p.X*t.Scale + t.OffsetX, Y: p.Y*t.Scale + t.OffsetY}
}

// ToPhoto maps a canvas point back to the photo.
func (t Transform) ToPhoto(p Point) Point {
	return t.Inverse().ToCanvas(p)
}

// Inverse returns the transform from canvas space to photo space.
func (t Transform) Inverse() Transform {
	if t.Scale == 0 {
		return Identity()
	}
	return Transform{
		Scale:   1 / t.Scale,
		OffsetX: -t.OffsetX / t.Scale,
		OffsetY: -t.OffsetY / t.Scale,
	}
}

// MapShape returns a copy of s with its geometry mapped by t. The stroke
// width is left untouched; renderers scale it with Scale.
func (t Transform) MapShape(s Shape) Shape {
	out := s.Clone()
	if out.Geometry != nil {
		out.Geometry = out.Geometry.mapAffine(t.ToCanvas, t.Scale)
	}
	return out
}

// ImageRect is where a pw x ph photo lands on the canvas.
func (t Transform) ImageRect(pw, ph int) Rect {
	return Rect{
		Min: t.ToCanvas(Point{}),
		Max: t.ToCanvas(Point{X: float64(pw), Y: float64(ph)}),
	}
}
