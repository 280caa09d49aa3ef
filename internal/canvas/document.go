package canvas

import (
	"fmt"
	"image"

	"github.com/google/uuid"
	"github.com/lewtec/vistoria/internal/domain"
)

// Mode tells change observers why the document changed.
type Mode int

const (
	// Recording is a user edit that history may capture.
	Recording Mode = iota
	// Restoring is a history restore that must not be captured again.
	Restoring
)

func (m Mode) String() string {
	if m == Restoring {
		return "restoring"
	}
	return "recording"
}

// Background is the photo under the annotations. It is read only and is
// never part of a snapshot.
type Background struct {
	Image     image.Image
	Transform Transform
}

// Document is an arena of shapes keyed by id plus their z-order.
// It is not safe for concurrent use.
type Document struct {
	width, height int
	order         []string
	shapes        map[string]Shape
	background    *Background
	observers     []func(Mode)
}

// NewDocument creates an empty document of the given canvas size.
func NewDocument(width, height int) *Document {
	return &Document{
		width:  width,
		height: height,
		shapes: map[string]Shape{},
	}
}

// Size returns the canvas dimensions.
func (d *Document) Size() (width, height int) {
	return d.width, d.height
}

// OnChange registers fn to be called after every mutation.
func (d *Document) OnChange(fn func(Mode)) {
	d.observers = append(d.observers, fn)
}

func (d *Document) notify(mode Mode) {
	for _, fn := range d.observers {
		fn(mode)
	}
}

// AddShape appends s on top of the z-order. An empty id is replaced by a
// fresh uuid; the final id is returned.
func (d *Document) AddShape(s Shape) (string, error) {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if _, ok := d.shapes[s.ID]; ok {
		return "", fmt.Errorf("%w: shape %q already exists", domain.ErrInvalidInput, s.ID)
	}
	if err := s.Validate(); err != nil {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	d.shapes[s.ID] = s.Clone()
	d.order = append(d.order, s.ID)
	d.notify(Recording)
	return s.ID, nil
}

func (d *Document) remove(id string) bool {
	if _, ok := d.shapes[id]; !ok {
		return false
	}
	delete(d.shapes, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return true
}

// RemoveShape deletes one shape. It returns false when id is unknown.
func (d *Document) RemoveShape(id string) bool {
	if !d.remove(id) {
		return false
	}
	d.notify(Recording)
	return true
}

// RemoveShapes deletes every known id in one mutation and returns how
// many were removed.
func (d *Document) RemoveShapes(ids []string) int {
	n := 0
	for _, id := range ids {
		if d.remove(id) {
			n++
		}
	}
	if n > 0 {
		d.notify(Recording)
	}
	return n
}

// Clear removes every shape and returns how many there were.
func (d *Document) Clear() int {
	n := len(d.order)
	if n == 0 {
		return 0
	}
	d.order = nil
	d.shapes = map[string]Shape{}
	d.notify(Recording)
	return n
}

// Len returns the number of shapes.
func (d *Document) Len() int {
	return len(d.order)
}

// Shapes returns copies of every shape, bottom first.
func (d *Document) Shapes() []Shape {
	out := make([]Shape, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, d.shapes[id].Clone())
	}
	return out
}

// Shape returns a copy of the shape with the given id.
func (d *Document) Shape(id string) (Shape, bool) {
	s, ok := d.shapes[id]
	if !ok {
		return Shape{}, false
	}
	return s.Clone(), true
}

// UpdateShape applies fn to a copy of the shape and stores the result.
// The id can not be changed.
func (d *Document) UpdateShape(id string, fn func(*Shape)) error {
	s, ok := d.shapes[id]
	if !ok {
		return fmt.Errorf("%w: shape %q", domain.ErrNotFound, id)
	}
	s = s.Clone()
	fn(&s)
	s.ID = id
	if err := s.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, err)
	}
	d.shapes[id] = s
	d.notify(Recording)
	return nil
}

// Serialize captures the shapes and canvas size.
func (d *Document) Serialize() Snapshot {
	return Snapshot{
		Shapes:       d.Shapes(),
		Version:      SnapshotVersion,
		CanvasWidth:  d.width,
		CanvasHeight: d.height,
	}
}

// Restore replaces every shape and the canvas size with the snapshot
// contents. The background is kept. Observers see the Restoring mode.
func (d *Document) Restore(s Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	d.width, d.height = s.CanvasWidth, s.CanvasHeight
	d.order = make([]string, 0, len(s.Shapes))
	d.shapes = make(map[string]Shape, len(s.Shapes))
	for _, shape := range s.Shapes {
		d.order = append(d.order, shape.ID)
		d.shapes[shape.ID] = shape.Clone()
	}
	d.notify(Restoring)
	return nil
}

// SetBackground binds the photo and fits it into the canvas.
func (d *Document) SetBackground(img image.Image) {
	if img == nil {
		d.background = nil
		return
	}
	b := img.Bounds()
	d.background = &Background{
		Image:     img,
		Transform: FitTransform(b.Dx(), b.Dy(), d.width, d.height),
	}
}

// Background returns the bound photo, or nil.
func (d *Document) Background() *Background {
	return d.background
}

// Transform returns the photo to canvas transform, or the identity when
// no background is bound.
func (d *Document) Transform() Transform {
	if d.background == nil {
		return Identity()
	}
	return d.background.Transform
}
