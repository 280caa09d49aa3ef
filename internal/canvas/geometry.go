package canvas

import (
	"math"
	"unicode/utf8"
)

// Geometry is the variant specific part of a shape. Implementations are
// plain values; the methods never mutate the receiver.
type Geometry interface {
	Kind() Kind
	Bounds() Rect
	Translate(dx, dy float64) Geometry
	// Scale stretches the geometry by (sx, sy) keeping anchor fixed.
	Scale(sx, sy float64, anchor Point) Geometry
	// mapAffine applies f to every point and multiplies lengths by k.
	mapAffine(f func(Point) Point, k float64) Geometry
	hit(p Point, tol float64) bool
	clone() Geometry
}

func scaleAround(p, anchor Point, sx, sy float64) Point {
	return Point{X: anchor.X + (p.X-anchor.X)*sx, Y: anchor.Y + (p.Y-anchor.Y)*sy}
}

// Arrow is a line with a triangular head at To.
type Arrow struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}

func (a Arrow) Kind() Kind   { return KindArrow }
func (a Arrow) Bounds() Rect { return boundsOf(a.From, a.To) }

func (a Arrow) Translate(dx, dy float64) Geometry {
	return Arrow{From: a.From.Add(dx, dy), To: a.To.Add(dx, dy)}
}

func (a Arrow) Scale(sx, sy float64, anchor Point) Geometry {
	return Arrow{From: scaleAround(a.From, anchor, sx, sy), To: scaleAround(a.To, anchor, sx, sy)}
}

func (a Arrow) mapAffine(f func(Point) Point, _ float64) Geometry {
	return Arrow{From: f(a.From), To: f(a.To)}
}

func (a Arrow) hit(p Point, tol float64) bool {
	return segmentDistance(p, a.From, a.To) <= tol
}

func (a Arrow) clone() Geometry { return a }

// ArrowHeadAngle is the half angle between the shaft and each wing.
const ArrowHeadAngle = math.Pi / 6

// ArrowHead returns the triangle (tip, left wing, right wing) drawn at the
// end of the arrow. The head length is four times the stroke width.
func ArrowHead(a Arrow, width float64) [3]Point {
	angle := math.Atan2(a.To.Y-a.From.Y, a.To.X-a.From.X)
	length := width * 4
	return [3]Point{
		a.To,
		{X: a.To.X - length*math.Cos(angle-ArrowHeadAngle), Y: a.To.Y - length*math.Sin(angle-ArrowHeadAngle)},
		{X: a.To.X - length*math.Cos(angle+ArrowHeadAngle), Y: a.To.Y - length*math.Sin(angle+ArrowHeadAngle)},
	}
}

// Circle is an outlined circle.
type Circle struct {
	Center Point   `json:"center"`
	Radius float64 `json:"radius"`
}

func (c Circle) Kind() Kind { return KindCircle }

func (c Circle) Bounds() Rect {
	return Rect{Min: c.Center.Add(-c.Radius, -c.Radius), Max: c.Center.Add(c.Radius, c.Radius)}
}

func (c Circle) Translate(dx, dy float64) Geometry {
	return Circle{Center: c.Center.Add(dx, dy), Radius: c.Radius}
}

// Scale keeps the shape a circle by using the mean of both factors.
func (c Circle) Scale(sx, sy float64, anchor Point) Geometry {
	k := (math.Abs(sx) + math.Abs(sy)) / 2
	return Circle{Center: scaleAround(c.Center, anchor, sx, sy), Radius: c.Radius * k}
}

func (c Circle) mapAffine(f func(Point) Point, k float64) Geometry {
	return Circle{Center: f(c.Center), Radius: c.Radius * k}
}

func (c Circle) hit(p Point, tol float64) bool {
	return p.Dist(c.Center) <= c.Radius+tol
}

func (c Circle) clone() Geometry { return c }

// Rectangle is an outlined box with its origin at the top-left corner.
type Rectangle struct {
	Origin Point   `json:"origin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectangleFrom builds the rectangle spanned by two opposite corners.
func RectangleFrom(a, b Point) Rectangle {
	return Rectangle{
		Origin: Point{X: math.Min(a.X, b.X), Y: math.Min(a.Y, b.Y)},
		Width:  math.Abs(b.X - a.X),
		Height: math.Abs(b.Y - a.Y),
	}
}

func (r Rectangle) Kind() Kind { return KindRectangle }

func (r Rectangle) Bounds() Rect {
	return Rect{Min: r.Origin, Max: r.Origin.Add(r.Width, r.Height)}
}

func (r Rectangle) Translate(dx, dy float64) Geometry {
	return Rectangle{Origin: r.Origin.Add(dx, dy), Width: r.Width, Height: r.Height}
}

func (r Rectangle) Scale(sx, sy float64, anchor Point) Geometry {
	b := r.Bounds()
	return RectangleFrom(scaleAround(b.Min, anchor, sx, sy), scaleAround(b.Max, anchor, sx, sy))
}

func (r Rectangle) mapAffine(f func(Point) Point, _ float64) Geometry {
	b := r.Bounds()
	return RectangleFrom(f(b.Min), f(b.Max))
}

func (r Rectangle) hit(p Point, tol float64) bool {
	return r.Bounds().Contains(p, tol)
}

func (r Rectangle) clone() Geometry { return r }

// Path is a freehand polyline.
type Path struct {
	Points []Point `json:"points"`
}

func (p Path) Kind() Kind   { return KindPath }
func (p Path) Bounds() Rect { return boundsOf(p.Points...) }

func (p Path) Translate(dx, dy float64) Geometry {
	return p.mapAffine(func(q Point) Point { return q.Add(dx, dy) }, 1)
}

func (p Path) Scale(sx, sy float64, anchor Point) Geometry {
	return p.mapAffine(func(q Point) Point { return scaleAround(q, anchor, sx, sy) }, 1)
}

func (p Path) mapAffine(f func(Point) Point, _ float64) Geometry {
	pts := make([]Point, len(p.Points))
	for i, q := range p.Points {
		pts[i] = f(q)
	}
	return Path{Points: pts}
}

func (p Path) hit(q Point, tol float64) bool {
	if len(p.Points) == 1 {
		return q.Dist(p.Points[0]) <= tol
	}
	for i := 1; i < len(p.Points); i++ {
		if segmentDistance(q, p.Points[i-1], p.Points[i]) <= tol {
			return true
		}
	}
	return false
}

func (p Path) clone() Geometry {
	return Path{Points: append([]Point(nil), p.Points...)}
}

// TextPadding is the backdrop margin around text, in canvas units.
const TextPadding = 4

// Text is a single line label drawn in bold over a translucent backdrop.
type Text struct {
	Origin   Point   `json:"origin"`
	Content  string  `json:"content"`
	FontSize float64 `json:"fontSize"`
}

func (t Text) Kind() Kind { return KindText }

// Bounds estimates the box of the label including the backdrop padding.
// Renderers measure the real glyphs; this is only used for hit testing and
// selection handles.
func (t Text) Bounds() Rect {
	w := float64(utf8.RuneCountInString(t.Content)) * t.FontSize * 0.6
	h := t.FontSize * 1.2
	return Rect{
		Min: t.Origin.Add(-TextPadding, -TextPadding),
		Max: t.Origin.Add(w+TextPadding, h+TextPadding),
	}
}

func (t Text) Translate(dx, dy float64) Geometry {
	t.Origin = t.Origin.Add(dx, dy)
	return t
}

func (t Text) Scale(sx, sy float64, anchor Point) Geometry {
	t.Origin = scaleAround(t.Origin, anchor, sx, sy)
	t.FontSize *= math.Abs(sy)
	return t
}

func (t Text) mapAffine(f func(Point) Point, k float64) Geometry {
	t.Origin = f(t.Origin)
	t.FontSize *= k
	return t
}

func (t Text) hit(p Point, tol float64) bool {
	return t.Bounds().Contains(p, tol)
}

func (t Text) clone() Geometry { return t }

func segmentDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = math.Max(0, math.Min(1, t))
	return p.Dist(Point{X: a.X + t*dx, Y: a.Y + t*dy})
}

// HitTest reports whether p touches s, with tol extra slack on top of half
// the stroke width.
func HitTest(s Shape, p Point, tol float64) bool {
	if s.Geometry == nil {
		return false
	}
	if s.Angle != 0 {
		p = p.Rotate(s.Geometry.Bounds().Center(), -s.Angle)
	}
	return s.Geometry.hit(p, tol+float64(s.StrokeWidth)/2)
}
