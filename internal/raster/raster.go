// Package raster draws annotation scenes into images.
//
// Shapes are filled as polygons with golang.org/x/image/vector, one small
// rasterizer per primitive sized to the primitive bounds. Text goes through
// the Go bold font.
package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/lewtec/vistoria/internal/canvas"
	"golang.org/x/image/draw"
	"golang.org/x/image/vector"
)

// circleSegments is the number of edges used to approximate a circle.
const circleSegments = 72

// Backdrop is the translucent white drawn behind text labels.
var Backdrop = color.NRGBA{R: 255, G: 255, B: 255, A: 204}

// SelectionColor frames selected shapes.
var SelectionColor = color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}

type polygon []canvas.Point

// Render draws the scene on a white canvas of the scene size.
func Render(s canvas.Scene) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	RenderTo(dst, s)
	return dst
}

// RenderTo draws the scene over dst.
func RenderTo(dst *image.RGBA, s canvas.Scene) {
	scale := s.StrokeScale
	if scale == 0 {
		scale = 1
	}
	if bg := s.Background; bg != nil && bg.Image != nil {
		b := bg.Image.Bounds()
		r := bg.Transform.ImageRect(b.Dx(), b.Dy())
		dr := image.Rect(int(math.Round(r.Min.X)), int(math.Round(r.Min.Y)), int(math.Round(r.Max.X)), int(math.Round(r.Max.Y)))
		draw.CatmullRom.Scale(dst, dr, bg.Image, b, draw.Over, nil)
	}
	for _, shape := range s.Shapes {
		drawShape(dst, shape, scale)
	}
	for _, shape := range s.Overlay {
		drawShape(dst, shape, scale)
	}
	if len(s.Selected) > 0 {
		selected := map[string]bool{}
		for _, id := range s.Selected {
			selected[id] = true
		}
		for _, shape := range s.Shapes {
			if selected[shape.ID] {
				drawFrame(dst, shape.Bounds(), scale)
			}
		}
	}
}

func shapeColor(c canvas.Color) color.NRGBA {
	r, g, b := c.RGBA()
	return color.NRGBA{R: r, G: g, B: b, A: 0xFF}
}

func drawShape(dst *image.RGBA, s canvas.Shape, scale float64) {
	if s.Geometry == nil {
		return
	}
	width := float64(s.StrokeWidth) * scale
	src := image.NewUniform(shapeColor(s.Color))
	center := s.Geometry.Bounds().Center()
	rot := func(polys ...polygon) []polygon {
		if s.Angle == 0 {
			return polys
		}
		for _, p := range polys {
			for i := range p {
				p[i] = p[i].Rotate(center, s.Angle)
			}
		}
		return polys
	}

	switch g := s.Geometry.(type) {
	case canvas.Arrow:
		head := canvas.ArrowHead(g, width)
		fill(dst, src, rot(segment(g.From, g.To, width))...)
		fill(dst, src, rot(polygon{head[0], head[1], head[2]})...)
	case canvas.Circle:
		fill(dst, src, rot(ring(g.Center, g.Radius+width/2, math.Max(0, g.Radius-width/2))...)...)
	case canvas.Rectangle:
		fill(dst, src, rot(frame(g.Bounds(), width)...)...)
	case canvas.Path:
		for _, p := range strokePolyline(g.Points, width) {
			fill(dst, src, rot(p)...)
		}
	case canvas.Text:
		drawText(dst, g, shapeColor(s.Color), s.Angle)
	}
}

// fill rasterizes the polygons as one path with the nonzero rule.
func fill(dst *image.RGBA, src image.Image, polys ...polygon) {
	var pts []canvas.Point
	for _, p := range polys {
		pts = append(pts, p...)
	}
	if len(pts) == 0 {
		return
	}
	box := pixelBounds(pts).Intersect(dst.Bounds())
	if box.Empty() {
		return
	}
	z := vector.NewRasterizer(box.Dx(), box.Dy())
	ox, oy := float64(box.Min.X), float64(box.Min.Y)
	for _, p := range polys {
		if len(p) < 3 {
			continue
		}
		z.MoveTo(float32(p[0].X-ox), float32(p[0].Y-oy))
		for _, q := range p[1:] {
			z.LineTo(float32(q.X-ox), float32(q.Y-oy))
		}
		z.ClosePath()
	}
	z.Draw(dst, box, src, image.Point{})
}

func pixelBounds(pts []canvas.Point) image.Rectangle {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range pts {
		minX, minY = math.Min(minX, p.X), math.Min(minY, p.Y)
		maxX, maxY = math.Max(maxX, p.X), math.Max(maxY, p.Y)
	}
	return image.Rect(int(math.Floor(minX)), int(math.Floor(minY)), int(math.Ceil(maxX))+1, int(math.Ceil(maxY))+1)
}

// segment is the quad covering a straight stroke of the given width.
func segment(a, b canvas.Point, width float64) polygon {
	dx, dy := b.X-a.X, b.Y-a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return disc(a, width/2)
	}
	nx, ny := -dy/l*width/2, dx/l*width/2
	return polygon{
		{X: a.X + nx, Y: a.Y + ny},
		{X: b.X + nx, Y: b.Y + ny},
		{X: b.X - nx, Y: b.Y - ny},
		{X: a.X - nx, Y: a.Y - ny},
	}
}

func disc(c canvas.Point, r float64) polygon {
	p := make(polygon, circleSegments)
	for i := range p {
		sin, cos := math.Sincos(2 * math.Pi * float64(i) / circleSegments)
		p[i] = canvas.Point{X: c.X + r*cos, Y: c.Y + r*sin}
	}
	return p
}

func reverse(p polygon) polygon {
	out := make(polygon, len(p))
	for i, q := range p {
		out[len(p)-1-i] = q
	}
	return out
}

// ring is an annulus: the inner disc winds the other way and cancels out.
func ring(c canvas.Point, outer, inner float64) []polygon {
	if inner <= 0 {
		return []polygon{disc(c, outer)}
	}
	return []polygon{disc(c, outer), reverse(disc(c, inner))}
}

// frame is the outline of r as an outer box minus an inner box.
func frame(r canvas.Rect, width float64) []polygon {
	h := width / 2
	box := func(r canvas.Rect) polygon {
		return polygon{r.Min, {X: r.Max.X, Y: r.Min.Y}, r.Max, {X: r.Min.X, Y: r.Max.Y}}
	}
	outer := canvas.Rect{Min: r.Min.Add(-h, -h), Max: r.Max.Add(h, h)}
	inner := canvas.Rect{Min: r.Min.Add(h, h), Max: r.Max.Add(-h, -h)}
	if inner.Width() <= 0 || inner.Height() <= 0 {
		return []polygon{box(outer)}
	}
	return []polygon{box(outer), reverse(box(inner))}
}

// strokePolyline returns the round joined stroke of a freehand path. Every
// piece is filled on its own so overlapping windings never cancel.
func strokePolyline(pts []canvas.Point, width float64) []polygon {
	if len(pts) == 0 {
		return nil
	}
	out := []polygon{disc(pts[0], width/2)}
	for i := 1; i < len(pts); i++ {
		out = append(out, segment(pts[i-1], pts[i], width), disc(pts[i], width/2))
	}
	return out
}

func drawFrame(dst *image.RGBA, r canvas.Rect, scale float64) {
	pad := 4 * scale
	r = canvas.Rect{Min: r.Min.Add(-pad, -pad), Max: r.Max.Add(pad, pad)}
	fill(dst, image.NewUniform(SelectionColor), frame(r, math.Max(1, scale))...)
}
