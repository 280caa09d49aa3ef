package inspection

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lewtec/vistoria/internal/blobstore"
	"github.com/lewtec/vistoria/internal/canvas"
	"github.com/lewtec/vistoria/internal/compositor"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
	"github.com/lewtec/vistoria/internal/media"
	"github.com/lewtec/vistoria/internal/raster"
)

// ErrNoLookup is returned when a repair order is attached without a lookup
// collaborator.
var ErrNoLookup = errors.New("repair order lookup not configured")

// Services are the collaborators shared by every session.
type Services struct {
	Drafts     domain.DraftRepository
	Media      domain.MediaRepository
	Reports    domain.ReportRepository
	Blobs      *blobstore.Store
	Normalizer *media.Normalizer
	Compositor *compositor.Compositor
	Uploader   domain.Uploader
	Tokens     domain.TokenStatusChecker
	Lookup     domain.RepairOrderLookup
	Cache      *ReportCache
	Previews   *media.PreviewStore
	Limits     media.SizeLimits
	Findings   FindingsConfig
	Now        func() time.Time
}

func (s *Services) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Session is the working state of one draft: its media library with the
// preview handles, the findings autosaver and the generation guard.
type Session struct {
	svc      *Services
	lib      *media.Library
	autosave *Autosaver

	mu      sync.Mutex
	draft   domain.ReportDraft
	version uint64

	generating atomic.Bool
}

// OpenSession loads a draft and its media.
func OpenSession(ctx context.Context, svc *Services, draftID string) (*Session, error) {
	d, err := svc.Drafts.Get(ctx, draftID)
	if err != nil {
		return nil, err
	}
	photos, err := svc.Media.ListPhotos(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("while loading photos of draft %s: %w", draftID, err)
	}
	scans, err := svc.Media.ListScans(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("while loading scans of draft %s: %w", draftID, err)
	}
	s := &Session{
		svc:   svc,
		lib:   media.NewLibrary(svc.Previews),
		draft: *d,
	}
	for _, p := range photos {
		s.lib.AddPhoto(p)
	}
	for _, sc := range scans {
		s.lib.AddScan(sc)
	}
	s.autosave = NewAutosaver(svc.Findings.Debounce(), svc.Findings.MaxLength, s.saveFindings)
	logger.Debug("session: opened draft %s with %d photos and %d scans", draftID, len(photos), len(scans))
	return s, nil
}

// ID returns the draft id.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.ID
}

// Draft returns the draft with its media in report order. Findings still
// waiting for the autosave are included.
func (s *Session) Draft() domain.ReportDraft {
	s.mu.Lock()
	d := s.draft
	s.mu.Unlock()
	if text, ok := s.autosave.Pending(); ok {
		d.Findings = text
	}
	d.Photos = s.lib.Photos()
	d.Scans = s.lib.Scans()
	return d
}

// Library exposes the media library of the session.
func (s *Session) Library() *media.Library {
	return s.lib
}

// changed invalidates the cached report and bumps the draft update time.
func (s *Session) changed(ctx context.Context) {
	s.mu.Lock()
	s.version++
	s.draft.UpdatedAt = s.svc.now()
	id := s.draft.ID
	s.mu.Unlock()
	s.svc.Cache.Invalidate(id)
	if err := s.svc.Drafts.Touch(ctx, id); err != nil {
		logger.Warn("session: %s", err)
	}
}

func (s *Session) saveFindings(ctx context.Context, text string) error {
	id := s.ID()
	if err := s.svc.Drafts.SaveFindings(ctx, id, text); err != nil {
		return err
	}
	s.mu.Lock()
	s.draft.Findings = text
	s.draft.UpdatedAt = s.svc.now()
	s.version++
	s.mu.Unlock()
	s.svc.Cache.Invalidate(id)
	return nil
}

// AddPhoto stores a captured or uploaded photo. The returned warning is
// non-empty for oversized files, which are still accepted.
func (s *Session) AddPhoto(ctx context.Context, filename string, data []byte, capturedAt time.Time) (domain.Photo, string, error) {
	if len(data) == 0 {
		return domain.Photo{}, "", fmt.Errorf("%w: empty photo", domain.ErrInvalidInput)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return domain.Photo{}, "", fmt.Errorf("%w: %s is not an image", domain.ErrUnsupportedMedia, filename)
	}
	warning := s.svc.Limits.CheckSize(filename, int64(len(data)), false)
	if warning != "" {
		logger.Warn("session: %s", warning)
	}
	p := domain.Photo{
		DraftID:    s.ID(),
		Original:   data,
		Filename:   filename,
		CapturedAt: capturedAt,
	}
	if err := s.svc.Media.AddPhoto(ctx, &p); err != nil {
		return domain.Photo{}, warning, err
	}
	p = s.lib.AddPhoto(p)
	s.changed(ctx)
	return p, warning, nil
}

// Photo returns a photo of the session.
func (s *Session) Photo(id string) (domain.Photo, error) {
	for _, p := range s.lib.Photos() {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Photo{}, fmt.Errorf("%w: photo %s", domain.ErrNotFound, id)
}

// RemovePhoto deletes a photo. Removing it twice is a no-op.
func (s *Session) RemovePhoto(ctx context.Context, id string) error {
	if !s.lib.RemovePhoto(id) {
		return nil
	}
	if err := s.svc.Media.DeletePhoto(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.changed(ctx)
	return nil
}

func (s *Session) persistOrder(ctx context.Context) error {
	photos := s.lib.Photos()
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	if err := s.svc.Media.ReorderPhotos(ctx, s.ID(), ids); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// MovePhoto moves a photo one slot up or down.
func (s *Session) MovePhoto(ctx context.Context, id string, dir media.Direction) error {
	if !s.lib.MovePhoto(id, dir) {
		return nil
	}
	return s.persistOrder(ctx)
}

// ReorderPhotos sets the photo order.
func (s *Session) ReorderPhotos(ctx context.Context, ids []string) error {
	if err := s.lib.ReorderPhotos(ids); err != nil {
		return err
	}
	return s.persistOrder(ctx)
}

// SaveAnnotation stores the exported image and the snapshot of an edit.
func (s *Session) SaveAnnotation(ctx context.Context, photoID string, annotated []byte, snap canvas.Snapshot) (domain.Photo, error) {
	encoded, err := snap.Encode()
	if err != nil {
		return domain.Photo{}, fmt.Errorf("while encoding snapshot: %w", err)
	}
	if _, err := s.Photo(photoID); err != nil {
		return domain.Photo{}, err
	}
	if err := s.svc.Media.SetAnnotation(ctx, photoID, annotated, encoded); err != nil {
		return domain.Photo{}, err
	}
	p, err := s.lib.SetAnnotation(photoID, annotated, encoded)
	if err != nil {
		return domain.Photo{}, err
	}
	s.changed(ctx)
	return p, nil
}

// Annotate rasterizes a snapshot over the original photo and stores the
// result.
func (s *Session) Annotate(ctx context.Context, photoID string, snapshot []byte) (domain.Photo, error) {
	snap, err := canvas.DecodeSnapshot(snapshot)
	if err != nil {
		return domain.Photo{}, err
	}
	p, err := s.Photo(photoID)
	if err != nil {
		return domain.Photo{}, err
	}
	annotated, err := RenderAnnotation(p.Original, snap)
	if err != nil {
		return domain.Photo{}, err
	}
	return s.SaveAnnotation(ctx, photoID, annotated, snap)
}

// RenderAnnotation draws snap over the photo at its native resolution and
// returns the JPEG.
func RenderAnnotation(photo []byte, snap canvas.Snapshot) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(photo))
	if err != nil {
		return nil, fmt.Errorf("%w: while decoding photo: %s", domain.ErrUnsupportedMedia, err)
	}
	doc := canvas.NewDocument(snap.CanvasWidth, snap.CanvasHeight)
	doc.SetBackground(img)
	if err := doc.Restore(snap); err != nil {
		return nil, err
	}
	exporter := raster.JPEGExporter{Quality: raster.DefaultExportQuality, PhotoResolution: true}
	data, _, err := exporter.Export(canvas.DocumentScene(doc))
	return data, err
}

// AddScan stores a diagnostic scan. PDF, JPEG and PNG are accepted.
func (s *Session) AddScan(ctx context.Context, filename string, data []byte, category domain.ScanCategory) (domain.ScanDocument, string, error) {
	kind, err := media.DetectScanKind(data)
	if err != nil {
		return domain.ScanDocument{}, "", fmt.Errorf("while adding scan %s: %w", filename, err)
	}
	warning := s.svc.Limits.CheckSize(filename, int64(len(data)), true)
	if warning != "" {
		logger.Warn("session: %s", warning)
	}
	sc := domain.ScanDocument{
		DraftID:  s.ID(),
		Data:     data,
		Filename: filename,
		Category: category,
		Kind:     kind,
		AddedAt:  s.svc.now(),
	}
	if err := s.svc.Media.AddScan(ctx, &sc); err != nil {
		return domain.ScanDocument{}, warning, err
	}
	sc = s.lib.AddScan(sc)
	s.changed(ctx)
	return sc, warning, nil
}

// RemoveScan deletes a scan. Removing it twice is a no-op.
func (s *Session) RemoveScan(ctx context.Context, id string) error {
	if !s.lib.RemoveScan(id) {
		return nil
	}
	if err := s.svc.Media.DeleteScan(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	s.changed(ctx)
	return nil
}

// SetScanCategory recategorizes a scan.
func (s *Session) SetScanCategory(ctx context.Context, id string, category domain.ScanCategory) error {
	if err := s.lib.SetScanCategory(id, category); err != nil {
		return err
	}
	if err := s.svc.Media.SetScanCategory(ctx, id, category); err != nil {
		return err
	}
	s.changed(ctx)
	return nil
}

// ClearMedia removes every photo and scan.
func (s *Session) ClearMedia(ctx context.Context) error {
	if err := s.svc.Media.ClearDraft(ctx, s.ID()); err != nil {
		return err
	}
	s.lib.Clear()
	s.changed(ctx)
	return nil
}

// SetFindings schedules the findings text for saving.
func (s *Session) SetFindings(text string) (FindingsStatus, error) {
	return s.autosave.Update(text)
}

// FindingsStatus measures the current findings text.
func (s *Session) FindingsStatus() FindingsStatus {
	return StatusOf(s.Draft().Findings, s.autosave.Max())
}

// FlushFindings saves pending findings right away.
func (s *Session) FlushFindings(ctx context.Context) error {
	return s.autosave.Flush(ctx)
}

// Generate normalizes the media and composes the report. Only one
// generation runs per session; a second call while one is running gets
// ErrGenerationInProgress.
func (s *Session) Generate(ctx context.Context) (*GeneratedReport, error) {
	if !s.generating.CompareAndSwap(false, true) {
		return nil, domain.ErrGenerationInProgress
	}
	defer s.generating.Store(false)

	if err := s.autosave.Flush(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	draft := s.Draft()
	if !draft.CanGenerate() {
		return nil, domain.ErrEmptyReport
	}

	var photos []domain.NormalizedPage
	for _, p := range draft.Photos {
		page, err := s.svc.Normalizer.NormalizePhoto(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("session: skipping photo %s: %s", p.Filename, err)
			continue
		}
		photos = append(photos, page)
	}
	var scans []domain.NormalizedPage
	for _, sc := range draft.Scans {
		pages, err := s.svc.Normalizer.NormalizeScan(ctx, sc)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("session: skipping scan %s: %s", sc.Filename, err)
			continue
		}
		scans = append(scans, pages...)
	}

	out, err := s.svc.Compositor.Render(draft, photos, scans)
	if err != nil {
		return nil, fmt.Errorf("while composing report: %w", err)
	}
	key, err := s.svc.Blobs.Put(out.Data)
	if err != nil {
		return nil, fmt.Errorf("while storing report: %w", err)
	}
	rep := domain.Report{
		DraftID:     draft.ID,
		BlobKey:     key,
		Pages:       out.Pages,
		Size:        int64(len(out.Data)),
		GeneratedAt: s.svc.now(),
	}
	if err := s.svc.Reports.Create(ctx, &rep); err != nil {
		return nil, err
	}
	generated := &GeneratedReport{Report: rep, Data: out.Data, Skipped: out.Skipped}

	s.mu.Lock()
	current := s.version == version
	s.mu.Unlock()
	if current {
		s.svc.Cache.Put(draft.ID, generated)
	}
	logger.Info("session: generated report %s for draft %s (%d pages, %d skipped)", rep.ID, draft.ID, out.Pages, out.Skipped)
	return generated, nil
}

// Generating reports whether a generation is running.
func (s *Session) Generating() bool {
	return s.generating.Load()
}

// LastReport returns the newest report generated since the draft last
// changed. It returns ErrNotFound when there is none.
func (s *Session) LastReport(ctx context.Context) (*GeneratedReport, error) {
	id := s.ID()
	if r, ok := s.svc.Cache.Get(id); ok {
		return r, nil
	}
	rep, err := s.svc.Reports.Latest(ctx, id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	updated := s.draft.UpdatedAt
	s.mu.Unlock()
	if rep.GeneratedAt.Before(updated.Truncate(time.Millisecond)) {
		return nil, fmt.Errorf("%w: report of draft %s is out of date", domain.ErrNotFound, id)
	}
	data, err := s.svc.Blobs.Get(rep.BlobKey)
	if err != nil {
		return nil, fmt.Errorf("while loading report %s: %w", rep.ID, err)
	}
	r := &GeneratedReport{Report: *rep, Data: data}
	s.svc.Cache.Put(id, r)
	return r, nil
}

// Reachable reports whether the shop of the draft can upload reports.
func (s *Session) Reachable(ctx context.Context) (bool, error) {
	if s.svc.Tokens == nil {
		return true, nil
	}
	s.mu.Lock()
	shop := s.draft.ShopID
	s.mu.Unlock()
	status, err := s.svc.Tokens.TokenStatus(ctx, shop)
	if err != nil {
		return false, fmt.Errorf("while checking token status of shop %s: %w", shop, err)
	}
	return status.HasToken, nil
}

// ReportFilename names the uploaded PDF after the repair order and date.
func ReportFilename(d domain.ReportDraft, at time.Time) string {
	ref := d.RONumber
	if ref == "" {
		ref = d.TaskID
	}
	ref = strings.ReplaceAll(strings.TrimSpace(ref), " ", "_")
	return fmt.Sprintf("Inspection_Report_RO%s_%s.pdf", ref, at.Format("2006-01-02"))
}

// Upload hands the last report, generating one when needed, to the
// uploader. On success the findings are cleared.
func (s *Session) Upload(ctx context.Context, progress func(domain.UploadProgress)) (domain.UploadResult, error) {
	// Pending findings must reach the report before it is picked.
	if err := s.autosave.Flush(ctx); err != nil {
		return domain.UploadResult{}, err
	}
	ok, err := s.Reachable(ctx)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if !ok {
		return domain.UploadResult{}, domain.ErrNoToken
	}
	rep, err := s.LastReport(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		rep, err = s.Generate(ctx)
	}
	if err != nil {
		return domain.UploadResult{}, err
	}

	draft := s.Draft()
	res, err := s.svc.Uploader.Upload(ctx, domain.UploadRequest{
		ShopID:       draft.ShopID,
		ROID:         draft.ROID,
		InspectionID: draft.InspectionID,
		TaskID:       draft.TaskID,
		Filename:     ReportFilename(draft, rep.Report.GeneratedAt),
		Document:     rep.Data,
		Findings:     draft.Findings,
	}, progress)
	if err != nil {
		return domain.UploadResult{}, err
	}
	if err := s.svc.Reports.MarkUploaded(ctx, rep.Report.ID, res.Location, res.UploadedAt); err != nil {
		logger.Warn("session: while marking report %s uploaded: %s", rep.Report.ID, err)
	}
	uploaded := *rep
	at := res.UploadedAt
	uploaded.Report.Location = res.Location
	uploaded.Report.UploadedAt = &at
	s.svc.Cache.Put(draft.ID, &uploaded)

	// Findings belong to the uploaded report now. The report stays the
	// last one of the draft.
	s.autosave.Discard()
	if err := s.svc.Drafts.SaveFindings(ctx, draft.ID, ""); err != nil {
		logger.Warn("session: while clearing findings: %s", err)
	}
	s.mu.Lock()
	s.draft.Findings = ""
	s.mu.Unlock()
	return res, nil
}

// StartNew drops every photo, scan and the findings of the draft.
func (s *Session) StartNew(ctx context.Context) error {
	s.autosave.Discard()
	if err := s.ClearMedia(ctx); err != nil {
		return err
	}
	if err := s.saveFindings(ctx, ""); err != nil {
		return fmt.Errorf("while clearing findings: %w", err)
	}
	return nil
}

// AttachRepairOrder looks up a repair order and copies its number,
// customer and vehicle into the draft. The inspection id comes from the
// task of the draft when the repair order lists it.
func (s *Session) AttachRepairOrder(ctx context.Context, roNumber string) (*domain.RepairOrderResult, error) {
	if s.svc.Lookup == nil {
		return nil, ErrNoLookup
	}
	roNumber = strings.TrimSpace(roNumber)
	if roNumber == "" {
		return nil, fmt.Errorf("%w: empty repair order number", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	d := s.draft
	s.mu.Unlock()

	ro, err := s.svc.Lookup.Lookup(ctx, d.ShopID, roNumber)
	if err != nil {
		return nil, err
	}
	d.ROID = ro.ROID
	d.RONumber = ro.RONumber
	if d.RONumber == "" {
		d.RONumber = roNumber
	}
	if ro.CustomerName != "" {
		d.CustomerName = ro.CustomerName
	}
	if ro.Vehicle != nil {
		v := *ro.Vehicle
		d.Vehicle = &v
	}
	for _, task := range ro.Tasks {
		if task.ID == d.TaskID {
			d.InspectionID = task.InspectionID
		}
	}
	if err := s.svc.Drafts.UpdateRepairOrder(ctx, &d); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.draft.ROID, s.draft.RONumber, s.draft.InspectionID = d.ROID, d.RONumber, d.InspectionID
	s.draft.CustomerName, s.draft.Vehicle = d.CustomerName, d.Vehicle
	s.draft.UpdatedAt = s.svc.now()
	s.version++
	s.mu.Unlock()
	s.svc.Cache.Invalidate(d.ID)
	return ro, nil
}

// Close saves pending findings and releases every preview of the session.
func (s *Session) Close(ctx context.Context) error {
	err := s.autosave.Flush(ctx)
	s.lib.Clear()
	return err
}
