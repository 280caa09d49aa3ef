package editor

import (
	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/logger"
)

func (e *Editor) dragDown(p Pointer) {
	e.drawing = true
	e.start = p.point()
	e.preview = nil
}

// previewGeometry builds the shape spanned by the drag, or nil when the
// drag is still too small to mean anything.
func (e *Editor) previewGeometry(current canvas.Point) canvas.Geometry {
	switch e.tool {
	case ToolArrow:
		return canvas.Arrow{From: e.start, To: current}
	case ToolCircle:
		r := e.start.Dist(current)
		if r <= MinShapeSize {
			return nil
		}
		return canvas.Circle{Center: e.start, Radius: r}
	case ToolRectangle:
		rect := canvas.RectangleFrom(e.start, current)
		if rect.Width <= MinShapeSize || rect.Height <= MinShapeSize {
			return nil
		}
		return rect
	}
	return nil
}

func (e *Editor) dragMove(p Pointer) {
	e.preview = nil
	if g := e.previewGeometry(p.point()); g != nil {
		shape := e.newShape(g, false)
		e.preview = &shape
	}
	e.redraw()
}

func (e *Editor) dragUp() {
	preview := e.preview
	e.drawing = false
	e.preview = nil
	if preview == nil {
		e.redraw()
		return
	}
	preview.Selectable = true
	id, err := e.commit(*preview)
	if err != nil {
		logger.Warn("editor: while adding %s: %s", preview.Kind(), err)
		return
	}
	logger.Debug("editor: added %s %s", preview.Kind(), id)
}

func (e *Editor) strokeDown(p Pointer) {
	e.stroking = true
	e.stroke = []canvas.Point{p.point()}
	e.redraw()
}

func (e *Editor) strokeMove(p Pointer) {
	pt := p.point()
	if n := len(e.stroke); n > 0 && e.stroke[n-1] == pt {
		return
	}
	e.stroke = append(e.stroke, pt)
	e.redraw()
}

// EndStroke finishes the freehand stroke in progress as one path shape and
// one history snapshot. Strokes with fewer than two points are dropped.
func (e *Editor) EndStroke() bool {
	pts := e.stroke
	e.stroking = false
	e.stroke = nil
	if len(pts) < 2 {
		e.redraw()
		return false
	}
	if _, err := e.commit(e.newShape(canvas.Path{Points: pts}, true)); err != nil {
		logger.Warn("editor: while adding stroke: %s", err)
		return false
	}
	return true
}
