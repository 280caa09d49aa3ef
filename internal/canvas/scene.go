package canvas

// Scene is everything a renderer needs to draw one frame: the photo, the
// committed shapes in z-order and the live overlay of an in-progress
// gesture.
type Scene struct {
	Width      int
	Height     int
	Background *Background
	Shapes     []Shape
	// Overlay is drawn above Shapes and is never part of the document.
	Overlay []Shape
	// Selected lists the ids that get a selection frame.
	Selected []string
	// StrokeScale multiplies stroke widths. Zero means 1.
	StrokeScale float64
}

// DocumentScene builds the scene of a document with no overlay.
func DocumentScene(d *Document) Scene {
	w, h := d.Size()
	return Scene{
		Width:      w,
		Height:     h,
		Background: d.Background(),
		Shapes:     d.Shapes(),
	}
}

// AtPhotoResolution returns the scene mapped back to the native size of its
// background photo. Scenes without background are returned unchanged.
func (s Scene) AtPhotoResolution() Scene {
	if s.Background == nil || s.Background.Image == nil {
		return s
	}
	inv := s.Background.Transform.Inverse()
	b := s.Background.Image.Bounds()
	out := Scene{
		Width:       b.Dx(),
		Height:      b.Dy(),
		Background:  &Background{Image: s.Background.Image, Transform: Identity()},
		StrokeScale: inv.Scale,
	}
	if s.StrokeScale != 0 {
		out.StrokeScale *= s.StrokeScale
	}
	for _, shape := range s.Shapes {
		out.Shapes = append(out.Shapes, inv.MapShape(shape))
	}
	return out
}
