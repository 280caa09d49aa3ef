// Package media turns captured photos and uploaded scans into report ready
// JPEG pages, and keeps the in-memory media library of a report session.
package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// DefaultMaxDimension bounds both sides of a report image.
	DefaultMaxDimension = 2000
	// DefaultQuality is the JPEG quality of report images.
	DefaultQuality = 85
	// DefaultScanScale renders PDF pages at twice their nominal size.
	DefaultScanScale = 2.0
)

// Normalizer resamples and re-encodes media for the report.
type Normalizer struct {
	MaxDimension int
	Quality      int
	ScanScale    float64
	Rasterizer   PDFRasterizer
}

// NewNormalizer creates a normalizer with the default limits.
func NewNormalizer(r PDFRasterizer) *Normalizer {
	return &Normalizer{
		MaxDimension: DefaultMaxDimension,
		Quality:      DefaultQuality,
		ScanScale:    DefaultScanScale,
		Rasterizer:   r,
	}
}

// FitWithin returns the size of a w x h image shrunk so neither side
// exceeds max. Images already within bounds are never enlarged.
func FitWithin(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	scale := math.Min(float64(max)/float64(w), float64(max)/float64(h))
	nw := int(math.Round(float64(w) * scale))
	nh := int(math.Round(float64(h) * scale))
	return clamp(nw, 1, max), clamp(nh, 1, max)
}

func clamp(v, lo, hi int) int {
	return int(math.Max(float64(lo), math.Min(float64(hi), float64(v))))
}

// EncodeImage flattens img on white, shrinks it to fit max and encodes it
// as JPEG.
func EncodeImage(img image.Image, max, quality int) (domain.NormalizedPage, error) {
	b := img.Bounds()
	w, h := FitWithin(b.Dx(), b.Dy(), max)
	if w <= 0 || h <= 0 {
		return domain.NormalizedPage{}, fmt.Errorf("%w: empty image", domain.ErrInvalidInput)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return domain.NormalizedPage{}, fmt.Errorf("while encoding jpeg: %w", err)
	}
	return domain.NormalizedPage{Width: w, Height: h, Data: buf.Bytes()}, nil
}

// NormalizeImage decodes an encoded raster and normalizes it.
func (n *Normalizer) NormalizeImage(data []byte) (domain.NormalizedPage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return domain.NormalizedPage{}, fmt.Errorf("while decoding image: %w", err)
	}
	logger.Debug("media: decoded %s %dx%d", format, img.Bounds().Dx(), img.Bounds().Dy())
	return EncodeImage(img, n.MaxDimension, n.Quality)
}

// NormalizePhoto normalizes the annotated photo when there is one, else the
// original.
func (n *Normalizer) NormalizePhoto(ctx context.Context, photo domain.Photo) (domain.NormalizedPage, error) {
	if err := ctx.Err(); err != nil {
		return domain.NormalizedPage{}, err
	}
	page, err := n.NormalizeImage(photo.Canonical())
	if err != nil {
		return domain.NormalizedPage{}, fmt.Errorf("while normalizing photo %s: %w", photo.ID, err)
	}
	page.Caption = photo.Filename
	page.Source = photo.ID
	return page, nil
}

// NormalizeScan returns one page for image scans and one page per source
// page for PDF scans. A PDF that can not be rasterized yields a single
// placeholder page instead of an error.
func (n *Normalizer) NormalizeScan(ctx context.Context, scan domain.ScanDocument) ([]domain.NormalizedPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	switch scan.Kind {
	case domain.MediaImage:
		page, err := n.NormalizeImage(scan.Data)
		if err != nil {
			return nil, fmt.Errorf("while normalizing scan %s: %w", scan.Filename, err)
		}
		return []domain.NormalizedPage{n.tag(page, scan)}, nil
	case domain.MediaPDF:
		pages, err := n.rasterize(ctx, scan)
		if err != nil {
			logger.Warn("media: while rasterizing %s: %s, using a placeholder", scan.Filename, err)
			page, err := Placeholder(scan.Filename, n.Quality)
			if err != nil {
				return nil, err
			}
			return []domain.NormalizedPage{n.tag(page, scan)}, nil
		}
		return pages, nil
	}
	return nil, fmt.Errorf("%w: scan kind %q", domain.ErrUnsupportedMedia, scan.Kind)
}

func (n *Normalizer) tag(page domain.NormalizedPage, scan domain.ScanDocument) domain.NormalizedPage {
	page.Caption = scan.Filename
	page.Category = scan.Category
	page.Source = scan.Filename
	return page
}

// rasterize renders the pages one after the other; each raster is dropped
// once encoded.
func (n *Normalizer) rasterize(ctx context.Context, scan domain.ScanDocument) ([]domain.NormalizedPage, error) {
	if n.Rasterizer == nil {
		return nil, fmt.Errorf("no pdf rasterizer configured")
	}
	doc, err := n.Rasterizer.Open(ctx, scan.Data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	count := doc.Pages()
	if count <= 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	scale := n.ScanScale
	if scale <= 0 {
		scale = DefaultScanScale
	}
	pages := make([]domain.NormalizedPage, 0, count)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.Render(ctx, i, scale)
		if err != nil {
			return nil, fmt.Errorf("while rendering page %d: %w", i, err)
		}
		page, err := EncodeImage(img, n.MaxDimension, n.Quality)
		if err != nil {
			return nil, fmt.Errorf("while encoding page %d: %w", i, err)
		}
		page = n.tag(page, scan)
		page.PageNumber = i
		page.PageCount = count
		pages = append(pages, page)
		logger.Debug("media: %s page %d/%d %dx%d", scan.Filename, i, count, page.Width, page.Height)
	}
	return pages, nil
}
