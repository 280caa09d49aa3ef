package inspection

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lewtec/vistoria/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x % 256), uint8(y % 256), 120, 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(w, h), &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(w, h)))
	return buf.Bytes()
}

// clock hands out strictly increasing times ahead of the wall clock, so
// reports generated in a test are never older than rows written by the
// repositories.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Now().Add(time.Hour).Truncate(time.Millisecond)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	cfg     *Config
	storage *Storage
	svc     *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	storage, err := OpenMemoryStorage()
	require.NoError(t, err)
	t.Cleanup(func() { storage.Close() })

	cfg := DefaultConfig()
	cfg.Meta.ShopID = "shop-1"
	cfg.Meta.ShopName = "Main Street Auto"
	cfg.Meta.Token = "secret"
	cfg.Findings.AutosaveDebounce = "1h"

	svc := NewServices(cfg, storage)
	svc.Now = newClock().Now
	return &fixture{cfg: cfg, storage: storage, svc: svc}
}

func (f *fixture) draft(t *testing.T, taskID string) *domain.ReportDraft {
	t.Helper()
	d := &domain.ReportDraft{
		TaskID:       taskID,
		ShopID:       "shop-1",
		ROID:         "ro-" + taskID,
		RONumber:     "1001",
		CustomerName: "Jane Doe",
		Vehicle:      &domain.Vehicle{Year: "2019", Make: "Honda", Model: "Civic", VIN: "2HGFC2F59KH512345"},
	}
	require.NoError(t, f.storage.Drafts.Create(context.Background(), d))
	return d
}

func (f *fixture) session(t *testing.T, taskID string) *Session {
	t.Helper()
	d := f.draft(t, taskID)
	s, err := OpenSession(context.Background(), f.svc, d.ID)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func TestSessionMedia(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "task-1")

	p1, warning, err := s.AddPhoto(ctx, "front.jpg", encodeJPEG(t, 64, 48), time.Now())
	require.NoError(t, err)
	assert.Empty(t, warning)
	assert.NotEmpty(t, p1.PreviewToken)
	p2, _, err := s.AddPhoto(ctx, "rear.png", encodePNG(t, 48, 64), time.Now())
	require.NoError(t, err)

	_, _, err = s.AddPhoto(ctx, "notes.txt", []byte("hello"), time.Now())
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMedia))
	_, _, err = s.AddPhoto(ctx, "empty.jpg", nil, time.Now())
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	require.NoError(t, s.MovePhoto(ctx, p2.ID, -1))
	ids := func() []string {
		var ret []string
		for _, p := range s.Draft().Photos {
			ret = append(ret, p.ID)
		}
		return ret
	}
	assert.Equal(t, []string{p2.ID, p1.ID}, ids())

	// The order survives reopening.
	reopened, err := OpenSession(ctx, f.svc, s.ID())
	require.NoError(t, err)
	var reopenedIDs []string
	for _, p := range reopened.Draft().Photos {
		reopenedIDs = append(reopenedIDs, p.ID)
	}
	assert.Equal(t, []string{p2.ID, p1.ID}, reopenedIDs)
	require.NoError(t, reopened.Close(ctx))

	sc, _, err := s.AddScan(ctx, "obd.png", encodePNG(t, 40, 40), domain.ScanOBD2)
	require.NoError(t, err)
	assert.Equal(t, domain.MediaImage, sc.Kind)
	require.NoError(t, s.SetScanCategory(ctx, sc.ID, domain.ScanBattery))
	assert.Equal(t, domain.ScanBattery, s.Draft().Scans[0].Category)
	_, _, err = s.AddScan(ctx, "notes.txt", []byte("hello"), domain.ScanOther)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMedia))

	require.NoError(t, s.RemovePhoto(ctx, p1.ID))
	require.NoError(t, s.RemovePhoto(ctx, p1.ID))
	assert.Equal(t, []string{p2.ID}, ids())
	_, ok := f.svc.Previews.Get(p1.PreviewToken)
	assert.False(t, ok)

	require.NoError(t, s.ClearMedia(ctx))
	assert.Empty(t, s.Draft().Photos)
	assert.Empty(t, s.Draft().Scans)
	stats, err := f.storage.Drafts.Stats(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Photos)
	assert.Equal(t, int64(0), stats.Scans)
}

func TestSessionSizeWarning(t *testing.T) {
	f := newFixture(t)
	f.svc.Limits.Photo = 10
	s := f.session(t, "task-1")
	_, warning, err := s.AddPhoto(context.Background(), "big.jpg", encodeJPEG(t, 32, 32), time.Now())
	require.NoError(t, err)
	assert.Contains(t, warning, "big.jpg")
	assert.Len(t, s.Draft().Photos, 1)
}

func TestSessionGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("empty draft", func(t *testing.T) {
		s := newFixture(t).session(t, "task-1")
		_, err := s.Generate(ctx)
		assert.True(t, errors.Is(err, domain.ErrEmptyReport))
	})

	t.Run("findings only", func(t *testing.T) {
		s := newFixture(t).session(t, "task-1")
		_, err := s.SetFindings("Front brake pads at 2mm")
		require.NoError(t, err)
		rep, err := s.Generate(ctx)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(rep.Data, []byte("%PDF-")))
		assert.Equal(t, 1, rep.Report.Pages)
	})

	t.Run("one page per photo and scan", func(t *testing.T) {
		f := newFixture(t)
		s := f.session(t, "task-1")
		for i := 0; i < 2; i++ {
			_, _, err := s.AddPhoto(ctx, "photo.jpg", encodeJPEG(t, 80+i, 60), time.Now())
			require.NoError(t, err)
		}
		_, _, err := s.AddScan(ctx, "alignment.png", encodePNG(t, 60, 80), domain.ScanAlignment)
		require.NoError(t, err)

		rep, err := s.Generate(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, rep.Report.Pages)
		assert.Zero(t, rep.Skipped)

		last, err := s.LastReport(ctx)
		require.NoError(t, err)
		assert.Equal(t, rep.Report.ID, last.Report.ID)

		stored, err := f.storage.Blobs.Get(rep.Report.BlobKey)
		require.NoError(t, err)
		assert.Equal(t, rep.Data, stored)
	})

	t.Run("in progress", func(t *testing.T) {
		s := newFixture(t).session(t, "task-1")
		_, err := s.SetFindings("x")
		require.NoError(t, err)
		s.generating.Store(true)
		_, err = s.Generate(ctx)
		assert.True(t, errors.Is(err, domain.ErrGenerationInProgress))
		s.generating.Store(false)
		_, err = s.Generate(ctx)
		assert.NoError(t, err)
	})

	t.Run("pending findings are flushed first", func(t *testing.T) {
		f := newFixture(t)
		s := f.session(t, "task-1")
		_, err := s.SetFindings("Coolant low")
		require.NoError(t, err)
		_, err = s.Generate(ctx)
		require.NoError(t, err)
		d, err := f.storage.Drafts.Get(ctx, s.ID())
		require.NoError(t, err)
		assert.Equal(t, "Coolant low", d.Findings)
	})
}

func TestSessionLastReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "task-1")

	_, err := s.LastReport(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, _, err = s.AddPhoto(ctx, "a.jpg", encodeJPEG(t, 40, 30), time.Now())
	require.NoError(t, err)
	rep, err := s.Generate(ctx)
	require.NoError(t, err)

	// A fresh session finds the stored report.
	other, err := OpenSession(ctx, f.svc, s.ID())
	require.NoError(t, err)
	f.svc.Cache.Invalidate(s.ID())
	last, err := other.LastReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, rep.Report.ID, last.Report.ID)
	assert.Equal(t, rep.Data, last.Data)
	require.NoError(t, other.Close(ctx))

	// Any edit makes it stale.
	_, _, err = s.AddPhoto(ctx, "b.jpg", encodeJPEG(t, 40, 30), time.Now())
	require.NoError(t, err)
	_, err = s.LastReport(ctx)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSessionFindings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.svc.Findings.MaxLength = 10
	s := f.session(t, "task-1")

	status, err := s.SetFindings("12345678")
	require.NoError(t, err)
	assert.True(t, status.NearLimit)
	assert.Equal(t, "12345678", s.Draft().Findings)

	_, err = s.SetFindings("12345678901")
	assert.True(t, errors.Is(err, domain.ErrFindingsTooLong))
	assert.Equal(t, "12345678", s.Draft().Findings)

	require.NoError(t, s.FlushFindings(ctx))
	d, err := f.storage.Drafts.Get(ctx, s.ID())
	require.NoError(t, err)
	assert.Equal(t, "12345678", d.Findings)
	assert.Equal(t, 8, s.FindingsStatus().Length)
}

func TestSessionUpload(t *testing.T) {
	ctx := context.Background()

	t.Run("generates, uploads and clears findings", func(t *testing.T) {
		f := newFixture(t)
		s := f.session(t, "task-1")
		_, _, err := s.AddPhoto(ctx, "a.jpg", encodeJPEG(t, 40, 30), time.Now())
		require.NoError(t, err)
		_, err = s.SetFindings("Replace wiper blades")
		require.NoError(t, err)

		var steps []domain.UploadStep
		res, err := s.Upload(ctx, func(p domain.UploadProgress) { steps = append(steps, p.Step) })
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.Location, "shop-1/ro-task-1/task-1/Inspection_Report_RO1001_"))
		assert.Equal(t, domain.UploadComplete, steps[len(steps)-1])

		manifest, err := f.storage.Outbox.ReadManifest("shop-1/ro-task-1/task-1")
		require.NoError(t, err)
		assert.True(t, manifest.HasFindings)

		assert.Empty(t, s.Draft().Findings)
		d, err := f.storage.Drafts.Get(ctx, s.ID())
		require.NoError(t, err)
		assert.Empty(t, d.Findings)

		last, err := s.LastReport(ctx)
		require.NoError(t, err)
		assert.True(t, last.Report.Uploaded())
		assert.Equal(t, res.Location, last.Report.Location)

		reports, err := f.storage.Reports.List(ctx, s.ID())
		require.NoError(t, err)
		require.Len(t, reports, 1)
		assert.Equal(t, res.Location, reports[0].Location)
	})

	t.Run("pending findings regenerate the report", func(t *testing.T) {
		f := newFixture(t)
		s := f.session(t, "task-1")
		_, err := s.SetFindings("Old findings")
		require.NoError(t, err)
		first, err := s.Generate(ctx)
		require.NoError(t, err)

		_, err = s.SetFindings("New findings")
		require.NoError(t, err)
		res, err := s.Upload(ctx, nil)
		require.NoError(t, err)

		reports, err := f.storage.Reports.List(ctx, s.ID())
		require.NoError(t, err)
		require.Len(t, reports, 2)
		var uploaded *domain.Report
		for _, r := range reports {
			if r.Location == res.Location {
				uploaded = r
			}
		}
		require.NotNil(t, uploaded)
		assert.NotEqual(t, first.Report.ID, uploaded.ID)
		assert.Empty(t, s.Draft().Findings)
	})

	t.Run("needs a token", func(t *testing.T) {
		f := newFixture(t)
		f.cfg.Meta.Token = ""
		f.svc.Tokens = ShopTokens{Meta: f.cfg.Meta}
		s := f.session(t, "task-1")
		_, err := s.SetFindings("x")
		require.NoError(t, err)
		reachable, err := s.Reachable(ctx)
		require.NoError(t, err)
		assert.False(t, reachable)
		_, err = s.Upload(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrNoToken))
	})

	t.Run("uploader failure keeps findings", func(t *testing.T) {
		f := newFixture(t)
		d := &domain.ReportDraft{TaskID: "task-9", ShopID: "shop-1"}
		require.NoError(t, f.storage.Drafts.Create(ctx, d))
		s, err := OpenSession(ctx, f.svc, d.ID)
		require.NoError(t, err)
		defer s.Close(ctx)
		_, err = s.SetFindings("Leaking gasket")
		require.NoError(t, err)
		_, err = s.Upload(ctx, nil)
		assert.True(t, errors.Is(err, domain.ErrUploadFailed))
		assert.Equal(t, "Leaking gasket", s.Draft().Findings)
	})
}

func TestSessionStartNew(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "task-1")
	_, _, err := s.AddPhoto(ctx, "a.jpg", encodeJPEG(t, 40, 30), time.Now())
	require.NoError(t, err)
	_, err = s.SetFindings("Tire wear")
	require.NoError(t, err)

	require.NoError(t, s.StartNew(ctx))
	d := s.Draft()
	assert.Empty(t, d.Photos)
	assert.Empty(t, d.Findings)
	assert.False(t, d.CanGenerate())
	assert.Equal(t, "1001", d.RONumber)
}

func TestSessionAnnotate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "task-1")
	p, _, err := s.AddPhoto(ctx, "a.jpg", encodeJPEG(t, 160, 120), time.Now())
	require.NoError(t, err)

	e, err := NewEditorSession(f.cfg.Editor, s.ID(), p)
	require.NoError(t, err)
	_, err = e.Apply([]EditorEvent{
		{Type: "tool", Value: "circle"},
		{Type: "down", X: 100, Y: 100},
		{Type: "move", X: 150, Y: 100},
		{Type: "up", X: 150, Y: 100},
	})
	require.NoError(t, err)
	res, err := e.Save()
	require.NoError(t, err)
	encoded, err := res.Snapshot.Encode()
	require.NoError(t, err)

	annotated, err := s.Annotate(ctx, p.ID, encoded)
	require.NoError(t, err)
	assert.True(t, annotated.HasAnnotation())
	img, _, err := image.DecodeConfig(bytes.NewReader(annotated.Annotated))
	require.NoError(t, err)
	assert.Equal(t, 160, img.Width)
	assert.Equal(t, 120, img.Height)

	stored, err := f.storage.Media.GetPhoto(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, annotated.Annotated, stored.Annotated)

	_, err = s.Annotate(ctx, p.ID, []byte(`{"version":"1.0"`))
	assert.True(t, errors.Is(err, domain.ErrCorruptSnapshot))
	_, err = s.Annotate(ctx, "missing", encoded)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSessionAttachRepairOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("copies the repair order", func(t *testing.T) {
		f := newFixture(t)
		source := &domain.ReportDraft{
			TaskID:       "task-a",
			ShopID:       "shop-1",
			ROID:         "ro-77",
			RONumber:     "2002",
			CustomerName: "John Roe",
			Vehicle:      &domain.Vehicle{Make: "Ford", Model: "Focus"},
		}
		require.NoError(t, f.storage.Drafts.Create(ctx, source))
		target := &domain.ReportDraft{TaskID: "task-b", ShopID: "shop-1"}
		require.NoError(t, f.storage.Drafts.Create(ctx, target))
		s, err := OpenSession(ctx, f.svc, target.ID)
		require.NoError(t, err)
		defer s.Close(ctx)

		ro, err := s.AttachRepairOrder(ctx, " 2002 ")
		require.NoError(t, err)
		assert.Equal(t, "ro-77", ro.ROID)

		d, err := f.storage.Drafts.Get(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, "ro-77", d.ROID)
		assert.Equal(t, "2002", d.RONumber)
		assert.Equal(t, "John Roe", d.CustomerName)
		require.NotNil(t, d.Vehicle)
		assert.Equal(t, "Focus", d.Vehicle.Model)
		assert.Equal(t, "John Roe", s.Draft().CustomerName)
	})

	t.Run("unknown repair order", func(t *testing.T) {
		s := newFixture(t).session(t, "task-1")
		_, err := s.AttachRepairOrder(ctx, "9999")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		_, err = s.AttachRepairOrder(ctx, "  ")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("without lookup", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Lookup = nil
		s := f.session(t, "task-1")
		_, err := s.AttachRepairOrder(ctx, "1001")
		assert.True(t, errors.Is(err, ErrNoLookup))
	})
}

func TestReportFilename(t *testing.T) {
	at := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "Inspection_Report_RO1001_2024-05-06.pdf", ReportFilename(domain.ReportDraft{RONumber: "1001", TaskID: "t"}, at))
	assert.Equal(t, "Inspection_Report_ROtask_7_2024-05-06.pdf", ReportFilename(domain.ReportDraft{TaskID: "task 7"}, at))
}

func TestEditorSession(t *testing.T) {
	cfg := DefaultConfig().Editor
	photo := domain.Photo{ID: "p1", Original: encodeJPEG(t, 400, 300)}
	e, err := NewEditorSession(cfg, "d1", photo)
	require.NoError(t, err)
	w, h := e.Size()
	assert.Equal(t, 800, w)
	assert.Equal(t, 600, h)

	state, err := e.Apply([]EditorEvent{
		{Type: "tool", Value: "rectangle"},
		{Type: "color", Value: "#3B82F6"},
		{Type: "width", Value: "6"},
		{Type: "down", X: 10, Y: 10},
		{Type: "move", X: 120, Y: 90},
		{Type: "up", X: 120, Y: 90},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Shapes)
	assert.Equal(t, "#3B82F6", string(state.Color))
	assert.Equal(t, 6, state.Width)
	assert.True(t, state.CanUndo)

	state, err = e.Apply([]EditorEvent{{Type: "undo"}})
	require.NoError(t, err)
	assert.Equal(t, 0, state.Shapes)
	assert.True(t, state.CanRedo)
	state, err = e.Apply([]EditorEvent{{Type: "redo"}})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Shapes)

	// Invalid events stop the batch and leave earlier ones applied.
	state, err = e.Apply([]EditorEvent{{Type: "tool", Value: "arrow"}, {Type: "color", Value: "#000000"}, {Type: "tool", Value: "circle"}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	assert.Equal(t, "arrow", string(state.Tool))
	_, err = e.Apply([]EditorEvent{{Type: "wiggle"}})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	frame, err := e.Frame()
	require.NoError(t, err)
	cfgImg, _, err := image.DecodeConfig(bytes.NewReader(frame))
	require.NoError(t, err)
	assert.Equal(t, 800, cfgImg.Width)

	res, err := e.Save()
	require.NoError(t, err)
	assert.Len(t, res.Snapshot.Shapes, 1)
	assert.Equal(t, 800, res.Snapshot.CanvasWidth)

	// Reopening restores the saved shapes.
	encoded, err := res.Snapshot.Encode()
	require.NoError(t, err)
	photo.Annotation = encoded
	reopened, err := NewEditorSession(cfg, "d1", photo)
	require.NoError(t, err)
	assert.Equal(t, 1, reopened.State().Shapes)

	e.Close()
	state, err = e.Apply([]EditorEvent{{Type: "down", X: 300, Y: 300}, {Type: "move", X: 400, Y: 400}, {Type: "up", X: 400, Y: 400}})
	require.NoError(t, err)
	assert.Equal(t, 1, state.Shapes)

	_, err = NewEditorSession(cfg, "d1", domain.Photo{ID: "bad", Original: []byte("nope")})
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMedia))
}

func TestIngester(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.session(t, "task-1")

	dir := t.TempDir()
	write := func(rel string, data []byte) string {
		p := filepath.Join(dir, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, data, 0644))
		return p
	}
	photo := encodeJPEG(t, 50, 40)
	photoPath := write("front.jpg", photo)
	copyPath := write("copy.jpg", photo)
	scanPath := write("scans/codes.png", encodePNG(t, 30, 30))
	brakePath := write("brake/pads.png", encodePNG(t, 31, 30))
	textPath := write("notes.txt", []byte("not media"))

	in := NewIngester(s)
	res, err := in.IngestFile(ctx, photoPath)
	require.NoError(t, err)
	require.NotNil(t, res.Photo)
	assert.Equal(t, "front.jpg", res.Photo.Filename)

	res, err = in.IngestFile(ctx, copyPath)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	res, err = in.IngestFile(ctx, scanPath)
	require.NoError(t, err)
	require.NotNil(t, res.Scan)
	assert.Equal(t, domain.ScanOther, res.Scan.Category)

	res, err = in.IngestFile(ctx, brakePath)
	require.NoError(t, err)
	require.NotNil(t, res.Scan)
	assert.Equal(t, domain.ScanBrake, res.Scan.Category)

	_, err = in.IngestFile(ctx, textPath)
	assert.True(t, errors.Is(err, domain.ErrUnsupportedMedia))

	d := s.Draft()
	assert.Len(t, d.Photos, 1)
	assert.Len(t, d.Scans, 2)

	// A new ingester knows what the session already holds.
	res, err = NewIngester(s).IngestFile(ctx, photoPath)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)

	hash, err := HashFile(photoPath)
	require.NoError(t, err)
	assert.Equal(t, res.Hash, hash)
}

func TestReportLabels(t *testing.T) {
	en := ReportLabels("en", ReportConfig{})
	assert.Equal(t, "Vehicle Information", en.VehicleSection)
	assert.Equal(t, "1 Inspection Photo", en.PhotoCount(1))
	assert.Equal(t, "3 Inspection Photos", en.PhotoCount(3))

	pt := ReportLabels("pt-BR", ReportConfig{Disclaimer: "Somente informativo."})
	assert.Equal(t, "Relatório de Inspeção", pt.Title)
	assert.Equal(t, "Informações do Veículo", pt.VehicleSection)
	assert.Equal(t, "Somente informativo.", pt.Disclaimer)
	assert.Equal(t, "3 Fotos de Inspeção", pt.PhotoCount(3))
	assert.Equal(t, "Bateria / Elétrica", pt.Category(domain.ScanBattery))
	assert.Equal(t, "Página 2 de 5", pt.PageCounter(2, 5))
	assert.Equal(t, "06/05/2024", pt.FormatDate(time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)))

	custom := ReportLabels("en", ReportConfig{Title: "Multi-Point Inspection"})
	assert.Equal(t, "Multi-Point Inspection", custom.Title)
}
