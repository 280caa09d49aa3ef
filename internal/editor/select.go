package editor

import (
	"math"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/logger"
)

type gestureKind int

const (
	gestureMove gestureKind = iota
	gestureResize
	gestureRotate
)

// minScale keeps a resize from collapsing a shape to nothing.
const minScale = 0.05

// rotateSnap is the angle step used while Shift is held.
const rotateSnap = 15.0

type gesture struct {
	kind   gestureKind
	ids    map[string]bool
	start  canvas.Point
	anchor canvas.Point
	corner canvas.Point
	center canvas.Point

	dx, dy float64
	sx, sy float64
	angle  float64
	moved  bool
}

func (g *gesture) touches(id string) bool {
	return g.ids[id]
}

// apply returns the shape as it looks with the gesture applied.
func (g *gesture) apply(s canvas.Shape) canvas.Shape {
	switch g.kind {
	case gestureMove:
		s.Geometry = s.Geometry.Translate(g.dx, g.dy)
	case gestureResize:
		s.Geometry = s.Geometry.Scale(g.sx, g.sy, g.anchor)
	case gestureRotate:
		s.Angle = math.Mod(s.Angle+g.angle+360, 360)
	}
	return s
}

// Handle names a transform handle of the selected shape.
type Handle int

const (
	HandleNone Handle = iota
	HandleRotate
	HandleTopLeft
	HandleTopRight
	HandleBottomRight
	HandleBottomLeft
)

// Handles returns the handle positions of a shape: rotate first, then the
// corners clockwise from the top-left.
func Handles(s canvas.Shape) map[Handle]canvas.Point {
	b := s.Bounds()
	return map[Handle]canvas.Point{
		HandleRotate:      {X: b.Center().X, Y: b.Min.Y - RotateHandleOffset},
		HandleTopLeft:     b.Min,
		HandleTopRight:    {X: b.Max.X, Y: b.Min.Y},
		HandleBottomRight: b.Max,
		HandleBottomLeft:  {X: b.Min.X, Y: b.Max.Y},
	}
}

var opposite = map[Handle]Handle{
	HandleTopLeft:     HandleBottomRight,
	HandleTopRight:    HandleBottomLeft,
	HandleBottomRight: HandleTopLeft,
	HandleBottomLeft:  HandleTopRight,
}

func (e *Editor) handleAt(p canvas.Point) (Handle, canvas.Shape) {
	if len(e.selected) != 1 {
		return HandleNone, canvas.Shape{}
	}
	s, ok := e.doc.Shape(e.selected[0])
	if !ok {
		return HandleNone, canvas.Shape{}
	}
	r := HandleSize / 2.0
	for _, h := range []Handle{HandleRotate, HandleTopLeft, HandleTopRight, HandleBottomRight, HandleBottomLeft} {
		hp := Handles(s)[h]
		if math.Abs(p.X-hp.X) <= r && math.Abs(p.Y-hp.Y) <= r {
			return h, s
		}
	}
	return HandleNone, canvas.Shape{}
}

// ShapeAt returns the id of the topmost selectable shape under p.
func (e *Editor) ShapeAt(p canvas.Point) (string, bool) {
	shapes := e.doc.Shapes()
	for i := len(shapes) - 1; i >= 0; i-- {
		s := shapes[i]
		if s.Selectable && canvas.HitTest(s, p, HitTolerance) {
			return s.ID, true
		}
	}
	return "", false
}

func (e *Editor) isSelected(id string) bool {
	for _, v := range e.selected {
		if v == id {
			return true
		}
	}
	return false
}

// Select replaces the selection. Unknown ids are ignored.
func (e *Editor) Select(ids ...string) {
	e.selected = nil
	for _, id := range ids {
		if _, ok := e.doc.Shape(id); ok && !e.isSelected(id) {
			e.selected = append(e.selected, id)
		}
	}
	e.redraw()
}

// ClearSelection deselects everything. It has no history effect.
func (e *Editor) ClearSelection() {
	if len(e.selected) == 0 {
		return
	}
	e.selected = nil
	e.redraw()
}

func (e *Editor) pruneSelection() {
	kept := e.selected[:0]
	for _, id := range e.selected {
		if _, ok := e.doc.Shape(id); ok {
			kept = append(kept, id)
		}
	}
	e.selected = kept
}

func (e *Editor) toggle(id string) {
	for i, v := range e.selected {
		if v == id {
			e.selected = append(e.selected[:i], e.selected[i+1:]...)
			return
		}
	}
	e.selected = append(e.selected, id)
}

func (e *Editor) selectDown(p Pointer) {
	pt := p.point()
	if h, s := e.handleAt(pt); h != HandleNone {
		g := &gesture{ids: map[string]bool{s.ID: true}, start: pt, sx: 1, sy: 1}
		if h == HandleRotate {
			g.kind = gestureRotate
			g.center = s.Geometry.Bounds().Center()
		} else {
			hs := Handles(s)
			g.kind = gestureResize
			g.corner = hs[h]
			g.anchor = hs[opposite[h]]
		}
		e.gesture = g
		return
	}

	id, hit := e.ShapeAt(pt)
	if !hit {
		if !p.Shift {
			e.ClearSelection()
		}
		return
	}
	if p.Shift {
		e.toggle(id)
		e.redraw()
		return
	}
	if !e.isSelected(id) {
		e.selected = []string{id}
	}
	g := &gesture{kind: gestureMove, ids: map[string]bool{}, start: pt, sx: 1, sy: 1}
	for _, v := range e.selected {
		g.ids[v] = true
	}
	e.gesture = g
	e.redraw()
}

func scaleFactor(p, anchor, corner float64) float64 {
	d := corner - anchor
	if d == 0 {
		return 1
	}
	f := (p - anchor) / d
	if math.Abs(f) < minScale {
		return math.Copysign(minScale, f)
	}
	return f
}

func angleOf(c, p canvas.Point) float64 {
	return math.Atan2(p.Y-c.Y, p.X-c.X) * 180 / math.Pi
}

func (e *Editor) selectMove(p Pointer) {
	g := e.gesture
	pt := p.point()
	if pt != g.start {
		g.moved = true
	}
	switch g.kind {
	case gestureMove:
		g.dx, g.dy = pt.X-g.start.X, pt.Y-g.start.Y
	case gestureResize:
		g.sx = scaleFactor(pt.X, g.anchor.X, g.corner.X)
		g.sy = scaleFactor(pt.Y, g.anchor.Y, g.corner.Y)
		if p.Shift {
			k := math.Max(math.Abs(g.sx), math.Abs(g.sy))
			g.sx = math.Copysign(k, g.sx)
			g.sy = math.Copysign(k, g.sy)
		}
	case gestureRotate:
		g.angle = angleOf(g.center, pt) - angleOf(g.center, g.start)
		if p.Shift {
			g.angle = math.Round(g.angle/rotateSnap) * rotateSnap
		}
	}
	e.redraw()
}

// selectUp commits a move, resize or rotate as one history entry. A click
// without motion records nothing.
func (e *Editor) selectUp(p Pointer) {
	e.selectMove(p)
	g := e.gesture
	e.gesture = nil
	if !g.moved {
		e.redraw()
		return
	}
	e.history.Record(canvas.Recording)
	for id := range g.ids {
		if err := e.doc.UpdateShape(id, func(s *canvas.Shape) { *s = g.apply(*s) }); err != nil {
			logger.Warn("editor: while transforming %s: %s", id, err)
		}
	}
}
