// Package editor is the annotation editor state machine. It turns pointer
// and keyboard events into document mutations, records exactly one history
// snapshot per user action and exposes the scene to draw.
//
// An Editor is driven by a single goroutine; it is not safe for concurrent
// use.
package editor

import (
	"errors"
	"fmt"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/history"
	"github.com/lewtec/vistoria/internal/logger"
)

// Tool is the tool picked in the palette.
type Tool string

const (
	ToolSelect    Tool = "select"
	ToolArrow     Tool = "arrow"
	ToolCircle    Tool = "circle"
	ToolRectangle Tool = "rectangle"
	ToolFreehand  Tool = "freehand"
	ToolText      Tool = "text"
)

// Tools lists every tool in palette order.
var Tools = []Tool{ToolSelect, ToolArrow, ToolCircle, ToolRectangle, ToolFreehand, ToolText}

// ParseTool validates a tool name.
func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// State is the editor state derived from the tool and the gesture in
// progress.
type State string

const (
	StateSelecting        State = "selecting"
	StateDrawingArrow     State = "drawing:arrow"
	StateDrawingCircle    State = "drawing:circle"
	StateDrawingRectangle State = "drawing:rectangle"
	StateFreehand         State = "freehand"
	StateTextEntry        State = "text-entry"
)

const (
	// MinShapeSize suppresses circles and rectangles from accidental taps.
	MinShapeSize = 5
	// HandleSize is the side of the square resize and rotate handles.
	HandleSize = 10
	// RotateHandleOffset is how far above the top edge the rotate handle sits.
	RotateHandleOffset = 30
	// HitTolerance is the slack added to shape hit tests.
	HitTolerance = 4
	// DefaultText is the content of a freshly placed text label.
	DefaultText = "Text"
)

// ErrNoExporter is returned by Save when no exporter was configured.
var ErrNoExporter = errors.New("editor: no exporter configured")

// Exporter rasterizes a scene into an encoded image.
type Exporter interface {
	Export(scene canvas.Scene) (data []byte, contentType string, err error)
}

// Result is what Save hands back to the caller.
type Result struct {
	Image       []byte
	ContentType string
	Snapshot    canvas.Snapshot
}

// Options configures an editor. Zero values pick the defaults.
type Options struct {
	Color        canvas.Color
	StrokeWidth  canvas.StrokeWidth
	HistoryDepth int
	Exporter     Exporter
}

// Pointer is a pointer event in canvas coordinates.
type Pointer struct {
	X, Y  float64
	Shift bool
}

func (p Pointer) point() canvas.Point {
	return canvas.Point{X: p.X, Y: p.Y}
}

// Key is a keyboard event. Name follows the DOM key names ("Delete",
// "Backspace", "Escape", "z", ...).
type Key struct {
	Name  string
	Ctrl  bool
	Meta  bool
	Shift bool
}

// Editor is the annotation editor.
type Editor struct {
	doc      *canvas.Document
	history  *history.Manager
	exporter Exporter

	tool        Tool
	color       canvas.Color
	width       canvas.StrokeWidth
	brush       bool
	interactive bool

	// drag to create
	drawing bool
	start   canvas.Point
	preview *canvas.Shape

	// freehand stroke in progress
	stroking bool
	stroke   []canvas.Point

	selected []string
	gesture  *gesture
	text     *textEdit

	onRedraw func()
	closed   bool
}

// New creates an editor over doc with its own history.
func New(doc *canvas.Document, opts Options) *Editor {
	if !opts.Color.Valid() {
		opts.Color = canvas.ColorUrgent
	}
	if !opts.StrokeWidth.Valid() {
		opts.StrokeWidth = canvas.StrokeMedium
	}
	e := &Editor{
		doc:      doc,
		history:  history.New(opts.HistoryDepth),
		exporter: opts.Exporter,
		color:    opts.Color,
		width:    opts.StrokeWidth,
	}
	e.history.Bind(doc)
	doc.OnChange(func(canvas.Mode) { e.redraw() })
	e.SetTool(ToolArrow)
	return e
}

// OnRedraw sets the hook called whenever the scene changed.
func (e *Editor) OnRedraw(fn func()) {
	e.onRedraw = fn
}

func (e *Editor) redraw() {
	if e.onRedraw != nil {
		e.onRedraw()
	}
}

// Document returns the edited document.
func (e *Editor) Document() *canvas.Document { return e.doc }

// History returns the undo manager.
func (e *Editor) History() *history.Manager { return e.history }

func (e *Editor) Tool() Tool                      { return e.tool }
func (e *Editor) Color() canvas.Color             { return e.color }
func (e *Editor) StrokeWidth() canvas.StrokeWidth { return e.width }

// Brush reports whether free drawing is on.
func (e *Editor) Brush() bool { return e.brush }

// Interactive reports whether shapes can be picked and transformed.
func (e *Editor) Interactive() bool { return e.interactive }

// Selected returns the selected ids in selection order.
func (e *Editor) Selected() []string {
	return append([]string(nil), e.selected...)
}

// State returns the current state machine state.
func (e *Editor) State() State {
	switch {
	case e.text != nil:
		return StateTextEntry
	case e.tool == ToolArrow:
		return StateDrawingArrow
	case e.tool == ToolCircle:
		return StateDrawingCircle
	case e.tool == ToolRectangle:
		return StateDrawingRectangle
	case e.tool == ToolFreehand:
		return StateFreehand
	case e.tool == ToolText:
		return StateTextEntry
	}
	return StateSelecting
}

// SetTool switches tools. Any live preview is discarded without recording.
func (e *Editor) SetTool(t Tool) {
	if e.text != nil {
		e.CommitText()
	}
	e.discardGesture()
	e.tool = t
	e.brush = t == ToolFreehand
	e.interactive = t == ToolSelect
	if !e.interactive {
		e.selected = nil
	}
	logger.Debug("editor: tool %s (state %s)", t, e.State())
	e.redraw()
}

// SetColor changes the color of new shapes and of the brush.
func (e *Editor) SetColor(c canvas.Color) error {
	if !c.Valid() {
		return fmt.Errorf("color %q is not in the palette", c)
	}
	e.color = c
	return nil
}

// SetStrokeWidth changes the width of new shapes and of the brush.
func (e *Editor) SetStrokeWidth(w canvas.StrokeWidth) error {
	if !w.Valid() {
		return fmt.Errorf("invalid stroke width %d", w)
	}
	e.width = w
	return nil
}

func (e *Editor) newShape(g canvas.Geometry, selectable bool) canvas.Shape {
	return canvas.Shape{Color: e.color, StrokeWidth: e.width, Selectable: selectable, Geometry: g}
}

// commit adds s as one undoable step. Nothing is recorded when s is
// rejected.
func (e *Editor) commit(s canvas.Shape) (string, error) {
	if err := s.Validate(); err != nil {
		return "", err
	}
	e.history.Record(canvas.Recording)
	return e.doc.AddShape(s)
}

// discardGesture drops any uncommitted preview.
func (e *Editor) discardGesture() {
	e.drawing = false
	e.preview = nil
	e.stroking = false
	e.stroke = nil
	e.gesture = nil
}

// PointerDown starts a gesture.
func (e *Editor) PointerDown(p Pointer) {
	if e.closed {
		return
	}
	switch {
	case e.text != nil:
		e.CommitText()
		if e.tool == ToolSelect {
			e.selectDown(p)
		}
	case e.tool == ToolSelect:
		e.selectDown(p)
	case e.tool == ToolFreehand:
		e.strokeDown(p)
	case e.tool == ToolText:
		e.placeText(p.point())
	default:
		e.dragDown(p)
	}
}

// PointerMove updates the gesture in progress.
func (e *Editor) PointerMove(p Pointer) {
	if e.closed {
		return
	}
	switch {
	case e.gesture != nil:
		e.selectMove(p)
	case e.stroking:
		e.strokeMove(p)
	case e.drawing:
		e.dragMove(p)
	}
}

// PointerUp commits the gesture in progress.
func (e *Editor) PointerUp(p Pointer) {
	if e.closed {
		return
	}
	switch {
	case e.gesture != nil:
		e.selectUp(p)
	case e.stroking:
		e.strokeMove(p)
		e.EndStroke()
	case e.drawing:
		e.dragUp()
	}
}

// Undo reverts the last action.
func (e *Editor) Undo() bool {
	if e.text != nil {
		e.CommitText()
	}
	e.discardGesture()
	ok := e.history.Undo()
	e.pruneSelection()
	return ok
}

// Redo reapplies the last undone action.
func (e *Editor) Redo() bool {
	if e.text != nil {
		e.CommitText()
	}
	e.discardGesture()
	ok := e.history.Redo()
	e.pruneSelection()
	return ok
}

// DeleteSelection removes every selected shape as one action.
func (e *Editor) DeleteSelection() bool {
	if len(e.selected) == 0 {
		return false
	}
	e.history.Record(canvas.Recording)
	n := e.doc.RemoveShapes(e.selected)
	e.selected = nil
	logger.Debug("editor: deleted %d shapes", n)
	return n > 0
}

// ClearAll removes every shape as one action.
func (e *Editor) ClearAll() bool {
	if e.text != nil {
		e.text = nil
	}
	e.discardGesture()
	if e.doc.Len() == 0 {
		return false
	}
	e.history.Record(canvas.Recording)
	e.doc.Clear()
	e.selected = nil
	return true
}

// HandleKey applies the keyboard shortcuts and reports whether the key was
// consumed.
func (e *Editor) HandleKey(k Key) bool {
	if e.closed {
		return false
	}
	mod := k.Ctrl || k.Meta
	switch {
	case mod && (k.Name == "z" || k.Name == "Z"):
		if k.Shift {
			return e.Redo()
		}
		return e.Undo()
	case mod && (k.Name == "y" || k.Name == "Y"):
		return e.Redo()
	case e.text != nil:
		switch k.Name {
		case "Backspace":
			e.Backspace()
			return true
		case "Escape", "Enter":
			e.CommitText()
			return true
		}
		// Delete is swallowed while editing text
		return k.Name == "Delete"
	case k.Name == "Delete" || k.Name == "Backspace":
		return e.DeleteSelection()
	case k.Name == "Escape":
		had := len(e.selected) > 0
		e.ClearSelection()
		return had
	}
	return false
}

// Scene returns what has to be drawn: the document with any transform
// preview applied, the live overlay and the selection.
func (e *Editor) Scene() canvas.Scene {
	s := canvas.DocumentScene(e.doc)
	for i, shape := range s.Shapes {
		if e.gesture != nil && e.gesture.touches(shape.ID) {
			s.Shapes[i] = e.gesture.apply(shape)
		}
		if e.text != nil && e.text.id == shape.ID {
			s.Shapes[i] = e.text.apply(shape)
		}
	}
	if e.preview != nil {
		s.Overlay = append(s.Overlay, *e.preview)
	}
	if e.stroking && len(e.stroke) > 0 {
		s.Overlay = append(s.Overlay, e.newShape(canvas.Path{Points: append([]canvas.Point(nil), e.stroke...)}, false))
	}
	s.Selected = e.Selected()
	return s
}

// Save deselects everything and exports the full canvas together with its
// snapshot.
func (e *Editor) Save() (Result, error) {
	if e.text != nil {
		e.CommitText()
	}
	e.discardGesture()
	e.ClearSelection()
	if e.exporter == nil {
		return Result{}, ErrNoExporter
	}
	data, ct, err := e.exporter.Export(canvas.DocumentScene(e.doc))
	if err != nil {
		return Result{}, fmt.Errorf("while exporting annotations: %w", err)
	}
	return Result{Image: data, ContentType: ct, Snapshot: e.doc.Serialize()}, nil
}

// Close discards any gesture in progress without recording and ignores
// further events.
func (e *Editor) Close() {
	e.discardGesture()
	e.text = nil
	e.selected = nil
	e.closed = true
}
