package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/lewtec/vistoria/internal/canvas"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
)

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error
)

func loadBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

// Face returns the bold face at size pixels.
func Face(size float64) (font.Face, error) {
	f, err := loadBold()
	if err != nil {
		return nil, fmt.Errorf("while parsing bold font: %w", err)
	}
	if size < 1 {
		size = 1
	}
	return opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingFull})
}

// label renders text over its backdrop into a tile. The tile origin is the
// top-left corner of the backdrop.
func label(t canvas.Text, c color.NRGBA) (*image.RGBA, error) {
	face, err := Face(t.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()
	m := face.Metrics()
	pad := fixed.I(canvas.TextPadding)
	w := font.MeasureString(face, t.Content) + 2*pad
	h := m.Ascent + m.Descent + 2*pad
	tile := image.NewRGBA(image.Rect(0, 0, w.Ceil(), h.Ceil()))
	draw.Draw(tile, tile.Bounds(), image.NewUniform(Backdrop), image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  tile,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: pad, Y: pad + m.Ascent},
	}
	d.DrawString(t.Content)
	return tile, nil
}

func drawText(dst *image.RGBA, t canvas.Text, c color.NRGBA, angle float64) {
	if t.Content == "" {
		return
	}
	tile, err := label(t, c)
	if err != nil {
		return
	}
	x := t.Origin.X - canvas.TextPadding
	y := t.Origin.Y - canvas.TextPadding
	if angle == 0 {
		at := image.Pt(int(math.Round(x)), int(math.Round(y)))
		draw.Draw(dst, tile.Bounds().Add(at), tile, image.Point{}, draw.Over)
		return
	}
	// rotate around the middle of the tile
	sin, cos := math.Sincos(angle * math.Pi / 180)
	cx := float64(tile.Bounds().Dx()) / 2
	cy := float64(tile.Bounds().Dy()) / 2
	tx := x + cx - (cos*cx - sin*cy)
	ty := y + cy - (sin*cx + cos*cy)
	m := f64.Aff3{cos, -sin, tx, sin, cos, ty}
	draw.BiLinear.Transform(dst, m, tile, tile.Bounds(), draw.Over, nil)
}

// TextSize measures the backdrop of a label in pixels.
func TextSize(t canvas.Text) (w, h int, err error) {
	face, err := Face(t.FontSize)
	if err != nil {
		return 0, 0, err
	}
	defer face.Close()
	m := face.Metrics()
	pad := fixed.I(canvas.TextPadding)
	return (font.MeasureString(face, t.Content) + 2*pad).Ceil(), (m.Ascent + m.Descent + 2*pad).Ceil(), nil
}
