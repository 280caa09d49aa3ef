package editor

import (
	"unicode/utf8"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/logger"
)

type textEdit struct {
	id       string
	original string
	buffer   string
}

func (t *textEdit) apply(s canvas.Shape) canvas.Shape {
	if g, ok := s.Geometry.(canvas.Text); ok {
		g.Content = t.buffer
		s.Geometry = g
	}
	return s
}

// placeText creates a label at p, selects it and starts editing it.
func (e *Editor) placeText(p canvas.Point) {
	g := canvas.Text{Origin: p, Content: DefaultText, FontSize: float64(e.width) * 8}
	id, err := e.commit(e.newShape(g, true))
	if err != nil {
		logger.Warn("editor: while placing text: %s", err)
		return
	}
	e.selected = []string{id}
	e.text = &textEdit{id: id, original: DefaultText, buffer: DefaultText}
	e.redraw()
}

// Editing returns the id of the label being edited.
func (e *Editor) Editing() (string, bool) {
	if e.text == nil {
		return "", false
	}
	return e.text.id, true
}

// EditText starts editing an existing label.
func (e *Editor) EditText(id string) bool {
	s, ok := e.doc.Shape(id)
	if !ok {
		return false
	}
	g, ok := s.Geometry.(canvas.Text)
	if !ok {
		return false
	}
	if e.text != nil {
		e.CommitText()
	}
	e.selected = []string{id}
	e.text = &textEdit{id: id, original: g.Content, buffer: g.Content}
	e.redraw()
	return true
}

// TextBuffer returns the content being typed.
func (e *Editor) TextBuffer() string {
	if e.text == nil {
		return ""
	}
	return e.text.buffer
}

// InsertText types s into the edited label.
func (e *Editor) InsertText(s string) {
	if e.text == nil || e.closed {
		return
	}
	e.text.buffer += s
	e.redraw()
}

// Backspace removes the last character of the edited label.
func (e *Editor) Backspace() {
	if e.text == nil || e.text.buffer == "" {
		return
	}
	_, size := utf8.DecodeLastRuneInString(e.text.buffer)
	e.text.buffer = e.text.buffer[:len(e.text.buffer)-size]
	e.redraw()
}

// CommitText ends editing. A changed label records one snapshot, an
// emptied label is removed, and the tool goes back to select.
func (e *Editor) CommitText() bool {
	t := e.text
	if t == nil {
		return false
	}
	e.text = nil
	e.tool = ToolSelect
	e.interactive = true
	e.brush = false
	changed := false
	switch {
	case t.buffer == "":
		e.history.Record(canvas.Recording)
		changed = e.doc.RemoveShape(t.id)
		e.selected = nil
	case t.buffer != t.original:
		e.history.Record(canvas.Recording)
		err := e.doc.UpdateShape(t.id, func(s *canvas.Shape) { *s = t.apply(*s) })
		if err != nil {
			logger.Warn("editor: while committing text: %s", err)
		}
		changed = err == nil
	}
	e.redraw()
	return changed
}
