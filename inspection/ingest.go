package inspection

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/lewtec/vistoria/internal/blobstore"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/media"
)

func HashFile(filepath string) (string, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return blobstore.HashReader(f)
}

func DecodeImage(filepath string) (image.Image, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, _, err := image.Decode(f)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// IngestResult describes what happened to one inbox file.
type IngestResult struct {
	Path      string
	Hash      string
	Duplicate bool
	Photo     *domain.Photo
	Scan      *domain.ScanDocument
	Warning   string
}

// Ingester files inbox files into a session. PDFs become scans, images in a
// directory named after a scan category (or "scans") become scans of that
// category, every other image becomes a photo. Files already ingested,
// compared by content, are skipped.
type Ingester struct {
	Session *Session

	mu   sync.Mutex
	seen map[string]bool
}

func NewIngester(s *Session) *Ingester {
	seen := map[string]bool{}
	for _, p := range s.Library().Photos() {
		seen[blobstore.Key(p.Original)] = true
	}
	for _, sc := range s.Library().Scans() {
		seen[blobstore.Key(sc.Data)] = true
	}
	return &Ingester{Session: s, seen: seen}
}

func scanCategoryOf(path string) (domain.ScanCategory, bool) {
	dir := filepath.Base(filepath.Dir(path))
	if dir == "scans" {
		return domain.ScanOther, true
	}
	c := domain.ScanCategory(dir)
	return c, c.Valid()
}

func (in *Ingester) IngestFile(ctx context.Context, path string) (*IngestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("while reading %s: %w", path, err)
	}
	res := &IngestResult{Path: path, Hash: blobstore.Key(data)}

	in.mu.Lock()
	defer in.mu.Unlock()
	if in.seen[res.Hash] {
		res.Duplicate = true
		return res, nil
	}

	name := filepath.Base(path)
	kind, kindErr := media.DetectScanKind(data)
	category, inScanDir := scanCategoryOf(path)
	switch {
	case kindErr == nil && (kind == domain.MediaPDF || inScanDir):
		if !inScanDir {
			category = domain.ScanOther
		}
		sc, warning, err := in.Session.AddScan(ctx, name, data, category)
		if err != nil {
			return nil, err
		}
		res.Scan, res.Warning = &sc, warning
	default:
		capturedAt := in.Session.svc.now()
		if info, err := os.Stat(path); err == nil {
			capturedAt = info.ModTime()
		}
		p, warning, err := in.Session.AddPhoto(ctx, name, data, capturedAt)
		if err != nil {
			return nil, err
		}
		res.Photo, res.Warning = &p, warning
	}
	in.seen[res.Hash] = true
	return res, nil
}
