package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"strconv"
	"testing"

	"github.com/lewtec/vistoria/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeJPEG(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

// mockRunner fakes pdfinfo and pdftoppm. pdftoppm writes a small PNG where
// the real tool would.
type mockRunner struct {
	pages    int
	err      error
	failPage int
	rendered []int
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	switch name {
	case "pdfinfo":
		return []byte("Producer: test\nPages:          " + strconv.Itoa(m.pages) + "\nEncrypted: no\n"), nil
	case "pdftoppm":
		page, _ := strconv.Atoi(args[1])
		if page == m.failPage {
			return nil, errors.New("pdftoppm: page is damaged")
		}
		m.rendered = append(m.rendered, page)
		img := image.NewGray(image.Rect(0, 0, 120, 170))
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(args[len(args)-1]+".png", buf.Bytes(), 0o600)
	}
	return nil, errors.New("unexpected command " + name)
}

func newTestNormalizer(t *testing.T, runner CommandRunner) *Normalizer {
	p := NewPoppler()
	p.Runner = runner
	p.TempDir = t.TempDir()
	return NewNormalizer(p)
}

func TestFitWithin(t *testing.T) {
	tests := []struct {
		name      string
		w, h, max int
		wantW     int
		wantH     int
	}{
		{"landscape", 3000, 1500, 2000, 2000, 1000},
		{"portrait", 1500, 4000, 2000, 750, 2000},
		{"within bounds", 800, 600, 2000, 800, 600},
		{"exact", 2000, 2000, 2000, 2000, 2000},
		{"no limit", 5000, 10, 0, 5000, 10},
		{"sliver", 10000, 1, 2000, 2000, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := FitWithin(tt.w, tt.h, tt.max)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestNormalizeImage(t *testing.T) {
	n := NewNormalizer(nil)

	t.Run("downscales large images", func(t *testing.T) {
		page, err := n.NormalizeImage(encodePNG(t, 3000, 1500))
		require.NoError(t, err)
		assert.Equal(t, 2000, page.Width)
		assert.Equal(t, 1000, page.Height)
		assert.True(t, page.Landscape())
		b := decodeJPEG(t, page.Data).Bounds()
		assert.Equal(t, 2000, b.Dx())
		assert.Equal(t, 1000, b.Dy())
	})

	t.Run("never upscales", func(t *testing.T) {
		page, err := n.NormalizeImage(encodePNG(t, 64, 48))
		require.NoError(t, err)
		assert.Equal(t, 64, page.Width)
		assert.Equal(t, 48, page.Height)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := n.NormalizeImage([]byte("not an image"))
		assert.Error(t, err)
	})
}

func TestNormalizePhoto(t *testing.T) {
	n := NewNormalizer(nil)
	photo := domain.Photo{
		ID:        "p1",
		Original:  encodePNG(t, 40, 30),
		Annotated: encodePNG(t, 30, 40),
		Filename:  "brakes.jpg",
	}
	page, err := n.NormalizePhoto(context.Background(), photo)
	require.NoError(t, err)
	assert.Equal(t, 30, page.Width, "annotated image wins")
	assert.Equal(t, 40, page.Height)
	assert.Equal(t, "brakes.jpg", page.Caption)
	assert.Equal(t, 0, page.PageNumber)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = n.NormalizePhoto(ctx, photo)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeScan(t *testing.T) {
	ctx := context.Background()

	t.Run("image scan", func(t *testing.T) {
		n := NewNormalizer(nil)
		pages, err := n.NormalizeScan(ctx, domain.ScanDocument{
			Data: encodePNG(t, 50, 20), Filename: "battery.png", Kind: domain.MediaImage, Category: domain.ScanBattery,
		})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, domain.ScanBattery, pages[0].Category)
		assert.Equal(t, "battery.png", pages[0].Caption)
	})

	t.Run("pdf pages in order", func(t *testing.T) {
		runner := &mockRunner{pages: 2}
		n := newTestNormalizer(t, runner)
		pages, err := n.NormalizeScan(ctx, domain.ScanDocument{
			Data: []byte("%PDF-1.4"), Filename: "scan.pdf", Kind: domain.MediaPDF, Category: domain.ScanOBD2,
		})
		require.NoError(t, err)
		require.Len(t, pages, 2)
		assert.Equal(t, []int{1, 2}, runner.rendered)
		for i, p := range pages {
			assert.Equal(t, i+1, p.PageNumber)
			assert.Equal(t, 2, p.PageCount)
			assert.Equal(t, domain.ScanOBD2, p.Category)
			assert.Equal(t, 120, p.Width)
			assert.Equal(t, 170, p.Height)
		}
	})

	t.Run("unreadable pdf falls back to one page", func(t *testing.T) {
		n := newTestNormalizer(t, &mockRunner{err: errors.New("pdfinfo: not a pdf")})
		pages, err := n.NormalizeScan(ctx, domain.ScanDocument{
			Data: []byte("junk"), Filename: "broken.pdf", Kind: domain.MediaPDF, Category: domain.ScanBrake,
		})
		require.NoError(t, err)
		require.Len(t, pages, 1)
		assert.Equal(t, 0, pages[0].PageNumber)
		assert.Equal(t, PlaceholderWidth, pages[0].Width)
		assert.Equal(t, PlaceholderHeight, pages[0].Height)
		assert.Equal(t, domain.ScanBrake, pages[0].Category)
		decodeJPEG(t, pages[0].Data)
	})

	t.Run("failing page falls back to one page", func(t *testing.T) {
		n := newTestNormalizer(t, &mockRunner{pages: 3, failPage: 2})
		pages, err := n.NormalizeScan(ctx, domain.ScanDocument{
			Data: []byte("%PDF-1.4"), Filename: "partial.pdf", Kind: domain.MediaPDF,
		})
		require.NoError(t, err)
		assert.Len(t, pages, 1)
	})

	t.Run("no rasterizer falls back", func(t *testing.T) {
		n := NewNormalizer(nil)
		pages, err := n.NormalizeScan(ctx, domain.ScanDocument{Data: []byte("%PDF-1.4"), Filename: "a.pdf", Kind: domain.MediaPDF})
		require.NoError(t, err)
		assert.Len(t, pages, 1)
	})

	t.Run("unknown kind", func(t *testing.T) {
		n := NewNormalizer(nil)
		_, err := n.NormalizeScan(ctx, domain.ScanDocument{Kind: "video"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
	})
}

func TestPopplerCleansUp(t *testing.T) {
	dir := t.TempDir()
	p := &Poppler{Runner: &mockRunner{pages: 1}, PDFInfo: "pdfinfo", PDFToPPM: "pdftoppm", TempDir: dir}
	doc, err := p.Open(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Pages())

	_, err = doc.Render(context.Background(), 2, 2)
	assert.Error(t, err, "page out of range")

	require.NoError(t, doc.Close())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestParsePageCount(t *testing.T) {
	n, err := ParsePageCount([]byte("Title: Scan\nPages:           12\nEncrypted: no\n"))
	require.NoError(t, err)
	assert.Equal(t, 12, n)

	_, err = ParsePageCount([]byte("Title: Scan\n"))
	assert.Error(t, err)

	_, err = ParsePageCount([]byte("Pages: many\n"))
	assert.Error(t, err)
}

func TestInstallInstructions(t *testing.T) {
	s := InstallInstructions()
	assert.Contains(t, s, "brew install poppler")
	assert.Contains(t, s, "apt install poppler-utils")
}

func TestCheckSize(t *testing.T) {
	assert.Empty(t, CheckSize("small.jpg", 1000, false))
	assert.Empty(t, CheckSize("scan.pdf", 20*1000*1000, true))

	w := CheckSize("big.jpg", 12*1000*1000, false)
	assert.Contains(t, w, "big.jpg")
	assert.Contains(t, w, "12 MB")
	assert.Contains(t, w, "10 MB")

	assert.NotEmpty(t, CheckSize("huge.pdf", 30*1000*1000, true))
	assert.Empty(t, SizeLimits{}.CheckSize("any", 1<<40, false), "zero limit disables warnings")
}

func TestDetectScanKind(t *testing.T) {
	kind, err := DetectScanKind([]byte("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n"))
	require.NoError(t, err)
	assert.Equal(t, domain.MediaPDF, kind)

	kind, err = DetectScanKind(encodePNG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, domain.MediaImage, kind)

	_, err = DetectScanKind([]byte("plain text notes"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedMedia)
}

func TestLibrary(t *testing.T) {
	img := encodePNG(t, 8, 8)

	t.Run("double delete releases once", func(t *testing.T) {
		store := NewPreviewStore()
		lib := NewLibrary(store)
		p := lib.AddPhoto(domain.Photo{Original: img, Filename: "a.png"})
		assert.Equal(t, 1, store.Live())

		preview, ok := store.Get(p.PreviewToken)
		require.True(t, ok)
		assert.Equal(t, "image/png", preview.ContentType)

		assert.True(t, lib.RemovePhoto(p.ID))
		assert.False(t, lib.RemovePhoto(p.ID))
		assert.Equal(t, 0, store.Live())
		assert.Equal(t, 1, store.Released())
	})

	t.Run("annotation replaces the preview", func(t *testing.T) {
		store := NewPreviewStore()
		lib := NewLibrary(store)
		p := lib.AddPhoto(domain.Photo{Original: img})
		annotated, err := lib.SetAnnotation(p.ID, encodePNG(t, 4, 4), []byte(`{}`))
		require.NoError(t, err)
		assert.NotEqual(t, p.PreviewToken, annotated.PreviewToken)
		_, ok := store.Get(p.PreviewToken)
		assert.False(t, ok)
		assert.Equal(t, 1, store.Live())
		assert.True(t, annotated.HasAnnotation())

		_, err = lib.SetAnnotation("missing", nil, nil)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("ordering", func(t *testing.T) {
		lib := NewLibrary(nil)
		a := lib.AddPhoto(domain.Photo{Original: img, Filename: "a"})
		b := lib.AddPhoto(domain.Photo{Original: img, Filename: "b"})
		c := lib.AddPhoto(domain.Photo{Original: img, Filename: "c"})

		assert.False(t, lib.MovePhoto(a.ID, Up))
		assert.True(t, lib.MovePhoto(a.ID, Down))
		assert.Equal(t, []string{"b", "a", "c"}, filenames(lib.Photos()))

		require.NoError(t, lib.ReorderPhotos([]string{c.ID, b.ID, a.ID}))
		assert.Equal(t, []string{"c", "b", "a"}, filenames(lib.Photos()))
		for i, p := range lib.Photos() {
			assert.Equal(t, i, p.Position)
		}

		assert.ErrorIs(t, lib.ReorderPhotos([]string{a.ID, a.ID, b.ID}), domain.ErrInvalidInput)
		assert.ErrorIs(t, lib.ReorderPhotos([]string{a.ID}), domain.ErrInvalidInput)
	})

	t.Run("scans", func(t *testing.T) {
		store := NewPreviewStore()
		lib := NewLibrary(store)
		s := lib.AddScan(domain.ScanDocument{Data: []byte("%PDF-1.4"), Filename: "s.pdf", Kind: domain.MediaPDF})
		assert.Equal(t, domain.ScanOther, s.Category)
		assert.EqualValues(t, 8, s.Size)

		require.NoError(t, lib.SetScanCategory(s.ID, domain.ScanAlignment))
		assert.Equal(t, domain.ScanAlignment, lib.Scans()[0].Category)
		assert.ErrorIs(t, lib.SetScanCategory(s.ID, "bogus"), domain.ErrInvalidInput)
		assert.ErrorIs(t, lib.SetScanCategory("missing", domain.ScanBrake), domain.ErrNotFound)

		lib.AddPhoto(domain.Photo{Original: img})
		assert.Equal(t, 2, store.Live())
		lib.Clear()
		assert.Equal(t, 0, store.Live())
		photos, scans := lib.Len()
		assert.Zero(t, photos)
		assert.Zero(t, scans)
		assert.False(t, lib.RemoveScan(s.ID))
	})
}

func filenames(photos []domain.Photo) []string {
	var out []string
	for _, p := range photos {
		out = append(out, p.Filename)
	}
	return out
}
