package raster

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"github.com/lewtec/vistoria/internal/canvas"
)

// DefaultExportQuality is the JPEG quality of saved annotations.
const DefaultExportQuality = 90

// JPEGExporter rasterizes scenes and encodes them as JPEG.
type JPEGExporter struct {
	Quality int
	// PhotoResolution maps the scene back to the native photo size before
	// drawing, when the scene has a background.
	PhotoResolution bool
}

// Export renders the scene and returns the encoded image and its content
// type.
func (e JPEGExporter) Export(s canvas.Scene) ([]byte, string, error) {
	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultExportQuality
	}
	if e.PhotoResolution {
		s = s.AtPhotoResolution()
	}
	if s.Width <= 0 || s.Height <= 0 {
		return nil, "", fmt.Errorf("while exporting scene: invalid size %dx%d", s.Width, s.Height)
	}
	img := Render(s)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, "", fmt.Errorf("while encoding annotated image: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}
