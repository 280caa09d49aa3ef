package editor

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lewtec/vistoria/internal/canvas"
)

type fakeExporter struct {
	scenes []canvas.Scene
	err    error
}

func (f *fakeExporter) Export(s canvas.Scene) ([]byte, string, error) {
	f.scenes = append(f.scenes, s)
	if f.err != nil {
		return nil, "", f.err
	}
	return []byte("jpeg"), "image/jpeg", nil
}

func newEditor(t *testing.T) (*Editor, *fakeExporter) {
	t.Helper()
	exp := &fakeExporter{}
	return New(canvas.NewDocument(800, 600), Options{Exporter: exp}), exp
}

func drag(e *Editor, from, to canvas.Point, steps int) {
	e.PointerDown(Pointer{X: from.X, Y: from.Y})
	for i := 1; i <= steps; i++ {
		f := float64(i) / float64(steps)
		e.PointerMove(Pointer{X: from.X + (to.X-from.X)*f, Y: from.Y + (to.Y-from.Y)*f})
	}
	e.PointerUp(Pointer{X: to.X, Y: to.Y})
}

func TestDefaults(t *testing.T) {
	e, _ := newEditor(t)
	if e.Tool() != ToolArrow || e.State() != StateDrawingArrow {
		t.Errorf("tool = %s, state = %s", e.Tool(), e.State())
	}
	if e.Color() != canvas.ColorUrgent || e.StrokeWidth() != canvas.StrokeMedium {
		t.Errorf("color = %s, width = %d", e.Color(), e.StrokeWidth())
	}
}

func TestSetToolStates(t *testing.T) {
	e, _ := newEditor(t)
	tests := []struct {
		tool        Tool
		state       State
		brush       bool
		interactive bool
	}{
		{ToolSelect, StateSelecting, false, true},
		{ToolArrow, StateDrawingArrow, false, false},
		{ToolCircle, StateDrawingCircle, false, false},
		{ToolRectangle, StateDrawingRectangle, false, false},
		{ToolFreehand, StateFreehand, true, false},
		{ToolText, StateTextEntry, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.tool), func(t *testing.T) {
			e.SetTool(tt.tool)
			if e.State() != tt.state || e.Brush() != tt.brush || e.Interactive() != tt.interactive {
				t.Errorf("state=%s brush=%v interactive=%v", e.State(), e.Brush(), e.Interactive())
			}
		})
	}
	if _, err := ParseTool("laser"); err == nil {
		t.Error("ParseTool should reject unknown tools")
	}
}

func TestCircleGesture(t *testing.T) {
	t.Run("tiny drag adds nothing", func(t *testing.T) {
		e, _ := newEditor(t)
		e.SetTool(ToolCircle)
		drag(e, canvas.Point{X: 100, Y: 100}, canvas.Point{X: 103, Y: 104}, 3)
		if e.Document().Len() != 0 || e.History().UndoCount() != 0 {
			t.Errorf("shapes=%d snapshots=%d, want 0/0", e.Document().Len(), e.History().UndoCount())
		}
	})

	t.Run("real drag adds one circle and one snapshot", func(t *testing.T) {
		e, _ := newEditor(t)
		e.SetTool(ToolCircle)
		e.PointerDown(Pointer{X: 100, Y: 100})
		e.PointerMove(Pointer{X: 103, Y: 100})
		if len(e.Scene().Overlay) != 0 {
			t.Error("radius 3 should not be previewed")
		}
		e.PointerMove(Pointer{X: 130, Y: 140})
		overlay := e.Scene().Overlay
		if len(overlay) != 1 || overlay[0].Selectable {
			t.Fatalf("expected one non-selectable preview, got %+v", overlay)
		}
		if e.History().UndoCount() != 0 {
			t.Error("moving must not record")
		}
		e.PointerUp(Pointer{X: 130, Y: 140})

		shapes := e.Document().Shapes()
		if len(shapes) != 1 || e.History().UndoCount() != 1 {
			t.Fatalf("shapes=%d snapshots=%d, want 1/1", len(shapes), e.History().UndoCount())
		}
		c := shapes[0].Geometry.(canvas.Circle)
		if c.Center != (canvas.Point{X: 100, Y: 100}) || c.Radius != 50 {
			t.Errorf("circle = %+v", c)
		}
		if !shapes[0].Selectable || len(e.Scene().Overlay) != 0 {
			t.Error("committed shape should be selectable and the overlay cleared")
		}
	})
}

func TestRectangleGesture(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolRectangle)

	drag(e, canvas.Point{X: 200, Y: 200}, canvas.Point{X: 203, Y: 260}, 2)
	if e.Document().Len() != 0 {
		t.Fatal("a 3px wide rectangle should be suppressed")
	}

	drag(e, canvas.Point{X: 200, Y: 200}, canvas.Point{X: 120, Y: 150}, 4)
	shapes := e.Document().Shapes()
	if len(shapes) != 1 {
		t.Fatalf("got %d shapes", len(shapes))
	}
	want := canvas.Rectangle{Origin: canvas.Point{X: 120, Y: 150}, Width: 80, Height: 50}
	if diff := cmp.Diff(want, shapes[0].Geometry); diff != "" {
		t.Errorf("rectangle mismatch (-want +got):\n%s", diff)
	}
}

func TestArrowGesture(t *testing.T) {
	e, _ := newEditor(t)
	e.SetColor(canvas.ColorInfo)
	e.SetStrokeWidth(canvas.StrokeThick)
	drag(e, canvas.Point{X: 10, Y: 10}, canvas.Point{X: 12, Y: 11}, 1)

	shapes := e.Document().Shapes()
	if len(shapes) != 1 {
		t.Fatalf("arrows are always previewed, got %d shapes", len(shapes))
	}
	if shapes[0].Color != canvas.ColorInfo || shapes[0].StrokeWidth != canvas.StrokeThick {
		t.Errorf("unexpected style %+v", shapes[0])
	}
	if err := e.SetColor("#123456"); err == nil {
		t.Error("SetColor should reject colors outside the palette")
	}
}

func TestPointerUpWithoutPreview(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolCircle)
	e.PointerDown(Pointer{X: 1, Y: 1})
	e.PointerUp(Pointer{X: 1, Y: 1})
	if e.Document().Len() != 0 || e.History().UndoCount() != 0 {
		t.Error("pointer up without preview must do nothing")
	}
}

func TestFreehand(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolFreehand)

	e.PointerDown(Pointer{X: 0, Y: 0})
	for i := 1; i <= 20; i++ {
		e.PointerMove(Pointer{X: float64(i), Y: float64(i * 2)})
		if len(e.Scene().Overlay) != 1 {
			t.Fatal("stroke should be previewed")
		}
	}
	e.PointerUp(Pointer{X: 20, Y: 40})

	if e.History().UndoCount() != 1 {
		t.Errorf("snapshots = %d, want exactly 1 per stroke", e.History().UndoCount())
	}
	shapes := e.Document().Shapes()
	if len(shapes) != 1 || len(shapes[0].Geometry.(canvas.Path).Points) != 21 {
		t.Fatalf("unexpected shapes %+v", shapes)
	}

	t.Run("single point strokes are dropped", func(t *testing.T) {
		e.PointerDown(Pointer{X: 5, Y: 5})
		e.PointerUp(Pointer{X: 5, Y: 5})
		if e.Document().Len() != 1 || e.History().UndoCount() != 1 {
			t.Error("a tap must not add a path")
		}
	})
}

func addCircle(t *testing.T, e *Editor, x, y float64) string {
	t.Helper()
	e.SetTool(ToolCircle)
	drag(e, canvas.Point{X: x, Y: y}, canvas.Point{X: x + 20, Y: y}, 1)
	shapes := e.Document().Shapes()
	return shapes[len(shapes)-1].ID
}

func TestSelectionMove(t *testing.T) {
	e, _ := newEditor(t)
	id := addCircle(t, e, 100, 100)
	e.SetTool(ToolSelect)
	before := e.History().UndoCount()

	t.Run("click selects without recording", func(t *testing.T) {
		e.PointerDown(Pointer{X: 100, Y: 100})
		e.PointerUp(Pointer{X: 100, Y: 100})
		if diff := cmp.Diff([]string{id}, e.Selected()); diff != "" {
			t.Errorf("selection mismatch (-want +got):\n%s", diff)
		}
		if e.History().UndoCount() != before {
			t.Error("a click must not record")
		}
	})

	t.Run("drag records once", func(t *testing.T) {
		e.PointerDown(Pointer{X: 100, Y: 100})
		for i := 1; i <= 10; i++ {
			e.PointerMove(Pointer{X: 100 + float64(i)*5, Y: 100})
		}
		preview := e.Scene().Shapes[0].Geometry.(canvas.Circle)
		if preview.Center.X != 150 {
			t.Errorf("preview center = %+v", preview.Center)
		}
		stored, _ := e.Document().Shape(id)
		if stored.Geometry.(canvas.Circle).Center.X != 100 {
			t.Error("document must not change before pointer up")
		}
		e.PointerUp(Pointer{X: 150, Y: 110})

		if e.History().UndoCount() != before+1 {
			t.Errorf("snapshots = %d, want %d", e.History().UndoCount(), before+1)
		}
		moved, _ := e.Document().Shape(id)
		if moved.Geometry.(canvas.Circle).Center != (canvas.Point{X: 150, Y: 110}) {
			t.Errorf("center = %+v", moved.Geometry.(canvas.Circle).Center)
		}
	})

	t.Run("undo puts it back", func(t *testing.T) {
		if !e.Undo() {
			t.Fatal("Undo() = false")
		}
		s, _ := e.Document().Shape(id)
		if s.Geometry.(canvas.Circle).Center != (canvas.Point{X: 100, Y: 100}) {
			t.Errorf("center after undo = %+v", s.Geometry.(canvas.Circle).Center)
		}
	})
}

func TestSelectionResizeAndRotate(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolRectangle)
	drag(e, canvas.Point{X: 100, Y: 100}, canvas.Point{X: 200, Y: 150}, 1)
	id := e.Document().Shapes()[0].ID
	e.SetTool(ToolSelect)
	e.Select(id)
	base := e.History().UndoCount()

	// bottom-right corner handle, dragged to double the size
	drag(e, canvas.Point{X: 200, Y: 150}, canvas.Point{X: 300, Y: 200}, 5)
	s, _ := e.Document().Shape(id)
	want := canvas.Rectangle{Origin: canvas.Point{X: 100, Y: 100}, Width: 200, Height: 100}
	if diff := cmp.Diff(want, s.Geometry); diff != "" {
		t.Errorf("resize mismatch (-want +got):\n%s", diff)
	}

	// rotate handle sits above the top center
	handle := Handles(s)[HandleRotate]
	center := s.Geometry.Bounds().Center()
	r := center.Y - handle.Y
	drag(e, handle, canvas.Point{X: center.X + r, Y: center.Y}, 5)
	s, _ = e.Document().Shape(id)
	if math.Abs(s.Angle-90) > 1e-6 {
		t.Errorf("angle = %v, want 90", s.Angle)
	}
	if e.History().UndoCount() != base+2 {
		t.Errorf("snapshots = %d, want %d", e.History().UndoCount(), base+2)
	}
}

func TestShiftClickToggles(t *testing.T) {
	e, _ := newEditor(t)
	a := addCircle(t, e, 100, 100)
	b := addCircle(t, e, 300, 300)
	e.SetTool(ToolSelect)

	e.PointerDown(Pointer{X: 100, Y: 100})
	e.PointerUp(Pointer{X: 100, Y: 100})
	e.PointerDown(Pointer{X: 300, Y: 300, Shift: true})
	e.PointerUp(Pointer{X: 300, Y: 300, Shift: true})
	if diff := cmp.Diff([]string{a, b}, e.Selected()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}
	e.PointerDown(Pointer{X: 100, Y: 100, Shift: true})
	e.PointerUp(Pointer{X: 100, Y: 100, Shift: true})
	if diff := cmp.Diff([]string{b}, e.Selected()); diff != "" {
		t.Errorf("selection mismatch (-want +got):\n%s", diff)
	}

	e.PointerDown(Pointer{X: 700, Y: 500})
	e.PointerUp(Pointer{X: 700, Y: 500})
	if len(e.Selected()) != 0 {
		t.Error("clicking empty canvas should clear the selection")
	}
}

func TestDeleteAndClear(t *testing.T) {
	e, _ := newEditor(t)
	a := addCircle(t, e, 100, 100)
	b := addCircle(t, e, 300, 300)
	addCircle(t, e, 500, 300)
	e.SetTool(ToolSelect)
	e.Select(a, b)
	base := e.History().UndoCount()

	if !e.HandleKey(Key{Name: "Delete"}) {
		t.Fatal("Delete should be handled")
	}
	if e.Document().Len() != 1 || len(e.Selected()) != 0 {
		t.Errorf("len=%d selected=%v", e.Document().Len(), e.Selected())
	}
	if e.History().UndoCount() != base+1 {
		t.Error("delete should record exactly once")
	}
	if e.DeleteSelection() {
		t.Error("deleting an empty selection should be a no-op")
	}

	if !e.ClearAll() || e.Document().Len() != 0 {
		t.Error("ClearAll should remove everything")
	}
	if e.History().UndoCount() != base+2 {
		t.Error("clear should record exactly once")
	}
	if e.ClearAll() {
		t.Error("ClearAll on an empty document should be a no-op")
	}
	if e.History().UndoCount() != base+2 {
		t.Error("empty clear must not record")
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	e, _ := newEditor(t)
	id := addCircle(t, e, 100, 100)

	if !e.HandleKey(Key{Name: "z", Ctrl: true}) || e.Document().Len() != 0 {
		t.Fatal("Ctrl+Z should undo")
	}
	if !e.HandleKey(Key{Name: "z", Meta: true, Shift: true}) || e.Document().Len() != 1 {
		t.Fatal("Cmd+Shift+Z should redo")
	}
	e.HandleKey(Key{Name: "z", Ctrl: true})
	if !e.HandleKey(Key{Name: "y", Ctrl: true}) || e.Document().Len() != 1 {
		t.Fatal("Ctrl+Y should redo")
	}

	e.SetTool(ToolSelect)
	e.Select(id)
	base := e.History().UndoCount()
	e.HandleKey(Key{Name: "Escape"})
	if len(e.Selected()) != 0 || e.History().UndoCount() != base {
		t.Error("Escape should only clear the selection")
	}
}

func TestTextEntry(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolText)
	e.PointerDown(Pointer{X: 50, Y: 60})

	id, editing := e.Editing()
	if !editing || e.State() != StateTextEntry {
		t.Fatal("placing text should start editing")
	}
	if e.History().UndoCount() != 1 {
		t.Errorf("snapshots = %d, want 1", e.History().UndoCount())
	}
	s, _ := e.Document().Shape(id)
	g := s.Geometry.(canvas.Text)
	if g.Content != DefaultText || g.FontSize != 32 || g.Origin != (canvas.Point{X: 50, Y: 60}) {
		t.Errorf("text = %+v", g)
	}

	for range DefaultText {
		e.HandleKey(Key{Name: "Backspace"})
	}
	e.InsertText("Leak")
	if e.HandleKey(Key{Name: "Delete"}); e.Document().Len() != 1 {
		t.Fatal("Delete must be suppressed while editing")
	}
	if got := e.Scene().Shapes[0].Geometry.(canvas.Text).Content; got != "Leak" {
		t.Errorf("scene shows %q while editing", got)
	}

	if !e.CommitText() {
		t.Fatal("CommitText() = false for changed text")
	}
	if e.History().UndoCount() != 2 {
		t.Errorf("snapshots = %d, want 2", e.History().UndoCount())
	}
	if e.State() != StateSelecting {
		t.Errorf("state = %s after commit", e.State())
	}
	s, _ = e.Document().Shape(id)
	if s.Geometry.(canvas.Text).Content != "Leak" {
		t.Errorf("content = %q", s.Geometry.(canvas.Text).Content)
	}

	t.Run("unchanged commit records nothing", func(t *testing.T) {
		e.EditText(id)
		if e.CommitText() || e.History().UndoCount() != 2 {
			t.Error("unchanged text must not record")
		}
	})

	t.Run("emptied text is removed", func(t *testing.T) {
		e.EditText(id)
		for i := 0; i < 10; i++ {
			e.Backspace()
		}
		e.HandleKey(Key{Name: "Enter"})
		if e.Document().Len() != 0 {
			t.Error("empty text should be removed")
		}
	})
}

func TestSave(t *testing.T) {
	e, exp := newEditor(t)
	id := addCircle(t, e, 100, 100)
	e.SetTool(ToolSelect)
	e.Select(id)

	res, err := e.Save()
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if len(e.Selected()) != 0 {
		t.Error("Save should deselect")
	}
	if string(res.Image) != "jpeg" || res.ContentType != "image/jpeg" {
		t.Errorf("unexpected result %+v", res)
	}
	if res.Snapshot.Version != canvas.SnapshotVersion || res.Snapshot.CanvasWidth != 800 || len(res.Snapshot.Shapes) != 1 {
		t.Errorf("unexpected snapshot %+v", res.Snapshot)
	}
	scene := exp.scenes[0]
	if len(scene.Selected) != 0 || len(scene.Overlay) != 0 || scene.Width != 800 {
		t.Errorf("unexpected exported scene %+v", scene)
	}

	t.Run("export errors are returned", func(t *testing.T) {
		exp.err = errors.New("disk full")
		if _, err := e.Save(); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("no exporter", func(t *testing.T) {
		bare := New(canvas.NewDocument(10, 10), Options{})
		if _, err := bare.Save(); !errors.Is(err, ErrNoExporter) {
			t.Errorf("expected ErrNoExporter, got %v", err)
		}
	})
}

func TestCloseAndToolSwitchDiscardPreview(t *testing.T) {
	e, _ := newEditor(t)
	e.SetTool(ToolRectangle)
	e.PointerDown(Pointer{X: 10, Y: 10})
	e.PointerMove(Pointer{X: 100, Y: 100})
	e.SetTool(ToolCircle)
	e.PointerUp(Pointer{X: 100, Y: 100})
	if e.Document().Len() != 0 || e.History().UndoCount() != 0 {
		t.Error("switching tools should discard the preview")
	}

	e.PointerDown(Pointer{X: 10, Y: 10})
	e.PointerMove(Pointer{X: 100, Y: 100})
	e.Close()
	e.PointerUp(Pointer{X: 100, Y: 100})
	if e.Document().Len() != 0 || e.History().UndoCount() != 0 {
		t.Error("closing should discard the preview without recording")
	}
	if len(e.Scene().Overlay) != 0 {
		t.Error("overlay should be empty after close")
	}
}

func TestRedrawHook(t *testing.T) {
	e, _ := newEditor(t)
	calls := 0
	e.OnRedraw(func() { calls++ })
	e.PointerDown(Pointer{X: 0, Y: 0})
	e.PointerMove(Pointer{X: 50, Y: 50})
	e.PointerUp(Pointer{X: 50, Y: 50})
	if calls < 2 {
		t.Errorf("redraw called %d times", calls)
	}
}

func TestRejectedShapeLeavesHistory(t *testing.T) {
	for _, tool := range []Tool{ToolCircle, ToolFreehand, ToolText} {
		t.Run(string(tool), func(t *testing.T) {
			e, _ := newEditor(t)
			e.SetTool(ToolRectangle)
			drag(e, canvas.Point{X: 10, Y: 10}, canvas.Point{X: 100, Y: 80}, 3)
			if !e.Undo() {
				t.Fatal("Undo() = false")
			}

			// Colors are checked by SetColor, so force a bad one.
			e.color = canvas.Color("#000000")
			e.SetTool(tool)
			drag(e, canvas.Point{X: 100, Y: 100}, canvas.Point{X: 200, Y: 160}, 3)

			if e.Document().Len() != 0 {
				t.Errorf("Len() = %d, want 0", e.Document().Len())
			}
			if e.History().UndoCount() != 0 || e.History().RedoCount() != 1 {
				t.Errorf("undo/redo = %d/%d, want 0/1", e.History().UndoCount(), e.History().RedoCount())
			}
		})
	}
}
