package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
)

// Direction moves a photo one slot in the list.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// Library is the ordered photo and scan collection of one report session.
// Every record owns exactly one preview token; replacing the image and
// removing the record are the only points where a token is released.
type Library struct {
	mu       sync.Mutex
	photos   []domain.Photo
	scans    []domain.ScanDocument
	previews *PreviewStore
}

// NewLibrary creates an empty library backed by previews. A nil store gets
// a private one.
func NewLibrary(previews *PreviewStore) *Library {
	if previews == nil {
		previews = NewPreviewStore()
	}
	return &Library{previews: previews}
}

// Previews returns the preview store of the library.
func (l *Library) Previews() *PreviewStore {
	return l.previews
}

func (l *Library) renumber() {
	for i := range l.photos {
		l.photos[i].Position = i
	}
	for i := range l.scans {
		l.scans[i].Position = i
	}
}

// AddPhoto appends a photo and returns it with its id and preview token.
func (l *Library) AddPhoto(p domain.Photo) domain.Photo {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now()
	}
	p.PreviewToken = l.previews.Acquire(p.Canonical(), ContentType(p.Canonical()))
	l.photos = append(l.photos, p)
	l.renumber()
	return p
}

// Photos returns the photos in report order.
func (l *Library) Photos() []domain.Photo {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Photo(nil), l.photos...)
}

func (l *Library) photoIndex(id string) int {
	for i, p := range l.photos {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// RemovePhoto deletes a photo and releases its preview. Removing a photo
// twice is a no-op.
func (l *Library) RemovePhoto(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.photoIndex(id)
	if i < 0 {
		return false
	}
	l.previews.Release(l.photos[i].PreviewToken)
	l.photos = append(l.photos[:i], l.photos[i+1:]...)
	l.renumber()
	return true
}

// MovePhoto swaps a photo with its neighbour. Moves past either end are
// ignored.
func (l *Library) MovePhoto(id string, dir Direction) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.photoIndex(id)
	j := i + int(dir)
	if i < 0 || j < 0 || j >= len(l.photos) {
		return false
	}
	l.photos[i], l.photos[j] = l.photos[j], l.photos[i]
	l.renumber()
	return true
}

// ReorderPhotos sets the photo order. ids must be a permutation of the
// current photo ids.
func (l *Library) ReorderPhotos(ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(ids) != len(l.photos) {
		return fmt.Errorf("%w: expected %d ids, got %d", domain.ErrInvalidInput, len(l.photos), len(ids))
	}
	ordered := make([]domain.Photo, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		i := l.photoIndex(id)
		if i < 0 || seen[id] {
			return fmt.Errorf("%w: photo %q", domain.ErrInvalidInput, id)
		}
		seen[id] = true
		ordered = append(ordered, l.photos[i])
	}
	l.photos = ordered
	l.renumber()
	return nil
}

// SetAnnotation replaces the annotated image of a photo. The old preview is
// released and a new one is issued for the annotated image.
func (l *Library) SetAnnotation(id string, annotated, snapshot []byte) (domain.Photo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.photoIndex(id)
	if i < 0 {
		return domain.Photo{}, fmt.Errorf("%w: photo %q", domain.ErrNotFound, id)
	}
	p := &l.photos[i]
	l.previews.Release(p.PreviewToken)
	p.Annotated = annotated
	p.Annotation = snapshot
	p.PreviewToken = l.previews.Acquire(p.Canonical(), ContentType(p.Canonical()))
	logger.Debug("media: annotated photo %s", id)
	return *p, nil
}

// AddScan appends a scan document.
func (l *Library) AddScan(s domain.ScanDocument) domain.ScanDocument {
	l.mu.Lock()
	defer l.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now()
	}
	if s.Category == "" {
		s.Category = domain.ScanOther
	}
	s.Size = int64(len(s.Data))
	s.PreviewToken = l.previews.Acquire(s.Data, ContentType(s.Data))
	l.scans = append(l.scans, s)
	l.renumber()
	return s
}

// Scans returns the scans in upload order.
func (l *Library) Scans() []domain.ScanDocument {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.ScanDocument(nil), l.scans...)
}

func (l *Library) scanIndex(id string) int {
	for i, s := range l.scans {
		if s.ID == id {
			return i
		}
	}
	return -1
}

// RemoveScan deletes a scan and releases its preview.
func (l *Library) RemoveScan(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.scanIndex(id)
	if i < 0 {
		return false
	}
	l.previews.Release(l.scans[i].PreviewToken)
	l.scans = append(l.scans[:i], l.scans[i+1:]...)
	l.renumber()
	return true
}

// SetScanCategory recategorizes a scan.
func (l *Library) SetScanCategory(id string, c domain.ScanCategory) error {
	if !c.Valid() {
		return fmt.Errorf("%w: scan category %q", domain.ErrInvalidInput, c)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.scanIndex(id)
	if i < 0 {
		return fmt.Errorf("%w: scan %q", domain.ErrNotFound, id)
	}
	l.scans[i].Category = c
	return nil
}

// Clear removes everything and releases every preview.
func (l *Library) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.photos {
		l.previews.Release(p.PreviewToken)
	}
	for _, s := range l.scans {
		l.previews.Release(s.PreviewToken)
	}
	l.photos = nil
	l.scans = nil
}

// Len returns the number of photos and scans.
func (l *Library) Len() (photos, scans int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.photos), len(l.scans)
}
