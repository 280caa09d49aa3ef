package inspection

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"strconv"
	"sync"
	"unicode/utf8"

	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/editor"
	"github.com/lewtec/vistoria/internal/raster"
)

// frameQuality is the JPEG quality of live editor frames.
const frameQuality = 80

// EditorEvent is one input event sent by the browser.
type EditorEvent struct {
	// Type is one of down, move, up, leave, key, text, tool, color,
	// width, undo, redo, delete, clear.
	Type  string  `json:"type"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Shift bool    `json:"shift"`
	Ctrl  bool    `json:"ctrl"`
	Meta  bool    `json:"meta"`
	Key   string  `json:"key"`
	Value string  `json:"value"`
}

// EditorState is reported back after applying events.
type EditorState struct {
	Tool     editor.Tool  `json:"tool"`
	State    editor.State `json:"state"`
	Color    canvas.Color `json:"color"`
	Width    int          `json:"width"`
	Shapes   int          `json:"shapes"`
	Selected []string     `json:"selected"`
	Editing  bool         `json:"editing"`
	CanUndo  bool         `json:"can_undo"`
	CanRedo  bool         `json:"can_redo"`
}

// EditorSession drives the annotation editor of one photo on the server.
// Events and frames of a session are serialized by its lock.
type EditorSession struct {
	DraftID string
	PhotoID string

	mu sync.Mutex
	ed *editor.Editor
}

// NewEditorSession opens the editor over the original photo, restoring the
// saved annotation when there is one.
func NewEditorSession(cfg EditorConfig, draftID string, photo domain.Photo) (*EditorSession, error) {
	img, _, err := image.Decode(bytes.NewReader(photo.Original))
	if err != nil {
		return nil, fmt.Errorf("%w: while decoding photo %s: %s", domain.ErrUnsupportedMedia, photo.ID, err)
	}
	width, height := cfg.CanvasWidth, cfg.CanvasHeight
	var snap *canvas.Snapshot
	if len(photo.Annotation) > 0 {
		s, err := canvas.DecodeSnapshot(photo.Annotation)
		if err != nil {
			return nil, err
		}
		snap = &s
		width, height = s.CanvasWidth, s.CanvasHeight
	}
	doc := canvas.NewDocument(width, height)
	doc.SetBackground(img)
	if snap != nil {
		if err := doc.Restore(*snap); err != nil {
			return nil, err
		}
	}
	ed := editor.New(doc, editor.Options{
		Color:        canvas.Color(cfg.DefaultColor),
		StrokeWidth:  canvas.StrokeWidth(cfg.DefaultWidth),
		HistoryDepth: cfg.HistoryDepth,
		Exporter:     raster.JPEGExporter{Quality: raster.DefaultExportQuality, PhotoResolution: true},
	})
	return &EditorSession{DraftID: draftID, PhotoID: photo.ID, ed: ed}, nil
}

// Size returns the canvas size.
func (s *EditorSession) Size() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Document().Size()
}

func (s *EditorSession) apply(ev EditorEvent) error {
	p := editor.Pointer{X: ev.X, Y: ev.Y, Shift: ev.Shift}
	switch ev.Type {
	case "down":
		s.ed.PointerDown(p)
	case "move":
		s.ed.PointerMove(p)
	case "up":
		s.ed.PointerUp(p)
	case "leave":
		s.ed.EndStroke()
	case "key":
		if s.ed.HandleKey(editor.Key{Name: ev.Key, Ctrl: ev.Ctrl, Meta: ev.Meta, Shift: ev.Shift}) {
			return nil
		}
		if _, editing := s.ed.Editing(); editing && !ev.Ctrl && !ev.Meta && utf8.RuneCountInString(ev.Key) == 1 {
			s.ed.InsertText(ev.Key)
		}
	case "text":
		s.ed.InsertText(ev.Value)
	case "tool":
		tool, err := editor.ParseTool(ev.Value)
		if err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
		s.ed.SetTool(tool)
	case "color":
		if err := s.ed.SetColor(canvas.Color(ev.Value)); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
	case "width":
		w, err := strconv.Atoi(ev.Value)
		if err != nil {
			return fmt.Errorf("%w: stroke width %q", domain.ErrInvalidInput, ev.Value)
		}
		if err := s.ed.SetStrokeWidth(canvas.StrokeWidth(w)); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
		}
	case "undo":
		s.ed.Undo()
	case "redo":
		s.ed.Redo()
	case "delete":
		s.ed.DeleteSelection()
	case "clear":
		s.ed.ClearAll()
	default:
		return fmt.Errorf("%w: editor event %q", domain.ErrInvalidInput, ev.Type)
	}
	return nil
}

// Apply feeds events to the editor in order and stops at the first invalid
// one.
func (s *EditorSession) Apply(events []EditorEvent) (EditorState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range events {
		if err := s.apply(ev); err != nil {
			return s.state(), err
		}
	}
	return s.state(), nil
}

// State returns the current editor state.
func (s *EditorSession) State() EditorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state()
}

func (s *EditorSession) state() EditorState {
	_, editing := s.ed.Editing()
	h := s.ed.History()
	return EditorState{
		Tool:     s.ed.Tool(),
		State:    s.ed.State(),
		Color:    s.ed.Color(),
		Width:    int(s.ed.StrokeWidth()),
		Shapes:   s.ed.Document().Len(),
		Selected: s.ed.Selected(),
		Editing:  editing,
		CanUndo:  h.CanUndo(),
		CanRedo:  h.CanRedo(),
	}
}

// Frame renders what the user sees, overlay and selection included.
func (s *EditorSession) Frame() ([]byte, error) {
	s.mu.Lock()
	scene := s.ed.Scene()
	s.mu.Unlock()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, raster.Render(scene), &jpeg.Options{Quality: frameQuality}); err != nil {
		return nil, fmt.Errorf("while encoding editor frame: %w", err)
	}
	return buf.Bytes(), nil
}

// Save exports the annotated photo and its snapshot.
func (s *EditorSession) Save() (editor.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ed.Save()
}

// Close ends the session; later events are ignored.
func (s *EditorSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ed.Close()
}
