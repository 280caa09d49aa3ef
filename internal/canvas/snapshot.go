package canvas

import (
	"encoding/json"
	"fmt"

	"github.com/lewtec/vistoria/internal/domain"
)

// SnapshotVersion is written into every serialized document.
const SnapshotVersion = "1.0"

// Snapshot is the self describing serialized form of a document. The
// background is never part of it.
type Snapshot struct {
	Shapes       []Shape `json:"shapes"`
	Version      string  `json:"version"`
	CanvasWidth  int     `json:"canvasWidth"`
	CanvasHeight int     `json:"canvasHeight"`
}

type shapeJSON struct {
	ID          string          `json:"id"`
	Type        Kind            `json:"type"`
	Color       Color           `json:"color"`
	StrokeWidth StrokeWidth     `json:"strokeWidth"`
	Selectable  bool            `json:"selectable"`
	Angle       float64         `json:"angle,omitempty"`
	Geometry    json.RawMessage `json:"geometry"`
}

// MarshalJSON writes the shape with its kind as the "type" tag.
func (s Shape) MarshalJSON() ([]byte, error) {
	if s.Geometry == nil {
		return nil, fmt.Errorf("shape %q: missing geometry", s.ID)
	}
	geom, err := json.Marshal(s.Geometry)
	if err != nil {
		return nil, err
	}
	return json.Marshal(shapeJSON{
		ID:          s.ID,
		Type:        s.Geometry.Kind(),
		Color:       s.Color,
		StrokeWidth: s.StrokeWidth,
		Selectable:  s.Selectable,
		Angle:       s.Angle,
		Geometry:    geom,
	})
}

// UnmarshalJSON decodes the geometry variant named by the "type" tag.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var raw shapeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var (
		geom Geometry
		err  error
	)
	switch raw.Type {
	case KindArrow:
		var g Arrow
		err = json.Unmarshal(raw.Geometry, &g)
		geom = g
	case KindCircle:
		var g Circle
		err = json.Unmarshal(raw.Geometry, &g)
		geom = g
	case KindRectangle:
		var g Rectangle
		err = json.Unmarshal(raw.Geometry, &g)
		geom = g
	case KindPath:
		var g Path
		err = json.Unmarshal(raw.Geometry, &g)
		geom = g
	case KindText:
		var g Text
		err = json.Unmarshal(raw.Geometry, &g)
		geom = g
	default:
		return fmt.Errorf("shape %q: unknown type %q", raw.ID, raw.Type)
	}
	if err != nil {
		return fmt.Errorf("while decoding %s geometry of shape %q: %w", raw.Type, raw.ID, err)
	}
	*s = Shape{
		ID:          raw.ID,
		Color:       raw.Color,
		StrokeWidth: raw.StrokeWidth,
		Selectable:  raw.Selectable,
		Angle:       raw.Angle,
		Geometry:    geom,
	}
	return nil
}

// Validate checks that the snapshot can rebuild a document.
func (s Snapshot) Validate() error {
	if s.CanvasWidth <= 0 || s.CanvasHeight <= 0 {
		return fmt.Errorf("%w: canvas size %dx%d", domain.ErrCorruptSnapshot, s.CanvasWidth, s.CanvasHeight)
	}
	seen := make(map[string]struct{}, len(s.Shapes))
	for _, shape := range s.Shapes {
		if shape.ID == "" {
			return fmt.Errorf("%w: shape without id", domain.ErrCorruptSnapshot)
		}
		if _, ok := seen[shape.ID]; ok {
			return fmt.Errorf("%w: duplicated shape id %q", domain.ErrCorruptSnapshot, shape.ID)
		}
		seen[shape.ID] = struct{}{}
		if err := shape.Validate(); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrCorruptSnapshot, err)
		}
	}
	return nil
}

// Encode serializes the snapshot as JSON.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Shapes == nil {
		s.Shapes = []Shape{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses and validates a JSON snapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", domain.ErrCorruptSnapshot, err)
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
