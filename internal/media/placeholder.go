package media

import (
	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/raster"
)

// Placeholder page size, an A4 sheet at 96 dpi.
const (
	PlaceholderWidth  = 794
	PlaceholderHeight = 1123
)

// PlaceholderMessage is printed on pages whose source could not be
// rendered.
const PlaceholderMessage = "Preview unavailable"

// Placeholder renders a portrait card naming the document that could not
// be rasterized.
func Placeholder(filename string, quality int) (domain.NormalizedPage, error) {
	margin := 40.0
	scene := canvas.Scene{
		Width:  PlaceholderWidth,
		Height: PlaceholderHeight,
		Shapes: []canvas.Shape{
			{
				ID:          "frame",
				Color:       canvas.ColorInfo,
				StrokeWidth: canvas.StrokeThick,
				Geometry: canvas.Rectangle{
					Origin: canvas.Point{X: margin, Y: margin},
					Width:  PlaceholderWidth - 2*margin,
					Height: PlaceholderHeight - 2*margin,
				},
			},
			{
				ID:          "message",
				Color:       canvas.ColorAttention,
				StrokeWidth: canvas.StrokeMedium,
				Geometry:    canvas.Text{Origin: canvas.Point{X: 2 * margin, Y: PlaceholderHeight/2 - 60}, Content: PlaceholderMessage, FontSize: 40},
			},
			{
				ID:          "filename",
				Color:       canvas.ColorInfo,
				StrokeWidth: canvas.StrokeMedium,
				Geometry:    canvas.Text{Origin: canvas.Point{X: 2 * margin, Y: PlaceholderHeight / 2}, Content: filename, FontSize: 24},
			},
		},
	}
	return EncodeImage(raster.Render(scene), PlaceholderHeight, quality)
}
