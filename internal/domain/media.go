package domain

import (
	"context"
	"fmt"
	"time"
)

// MediaKind distinguishes raster scans from PDF scans.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaPDF   MediaKind = "pdf"
)

// ScanCategory classifies a diagnostic scan document.
type ScanCategory string

const (
	ScanOBD2      ScanCategory = "obd2"
	ScanAlignment ScanCategory = "alignment"
	ScanBattery   ScanCategory = "battery"
	ScanBrake     ScanCategory = "brake"
	ScanOther     ScanCategory = "other"
)

// ScanCategories lists every category in display order.
var ScanCategories = []ScanCategory{ScanOBD2, ScanAlignment, ScanBattery, ScanBrake, ScanOther}

var scanLabels = map[ScanCategory]string{
	ScanOBD2:      "OBD2 / Code Scan",
	ScanAlignment: "Wheel Alignment",
	ScanBattery:   "Battery / Electrical",
	ScanBrake:     "Brake Inspection",
	ScanOther:     "Other Diagnostic",
}

// Label returns the English display label of the category.
func (c ScanCategory) Label() string {
	if l, ok := scanLabels[c]; ok {
		return l
	}
	return string(c)
}

// Valid reports whether c is a known category.
func (c ScanCategory) Valid() bool {
	_, ok := scanLabels[c]
	return ok
}

// ParseScanCategory validates a category coming from user input. An empty
// value means ScanOther.
func ParseScanCategory(s string) (ScanCategory, error) {
	if s == "" {
		return ScanOther, nil
	}
	c := ScanCategory(s)
	if !c.Valid() {
		return "", fmt.Errorf("%w: scan category %q", ErrInvalidInput, s)
	}
	return c, nil
}

// Photo is a captured inspection photo.
type Photo struct {
	ID      string
	DraftID string
	// Original is the image as captured or uploaded.
	Original []byte
	// Annotated is the rasterized annotation output, if any.
	Annotated []byte
	// Annotation is the JSON snapshot that produced Annotated.
	Annotation   []byte
	Filename     string
	CapturedAt   time.Time
	Position     int
	PreviewToken string
}

// Canonical returns the bytes that go into the report.
func (p Photo) Canonical() []byte {
	if len(p.Annotated) > 0 {
		return p.Annotated
	}
	return p.Original
}

// HasAnnotation reports whether the photo was annotated.
func (p Photo) HasAnnotation() bool {
	return len(p.Annotated) > 0
}

// ScanDocument is an uploaded diagnostic report.
type ScanDocument struct {
	ID           string
	DraftID      string
	Data         []byte
	Filename     string
	Category     ScanCategory
	Kind         MediaKind
	Size         int64
	Position     int
	PreviewToken string
	AddedAt      time.Time
}

// NormalizedPage is one report ready raster.
type NormalizedPage struct {
	// Width and Height describe the resampled output, in pixels.
	Width  int
	Height int
	// Data is JPEG encoded.
	Data []byte
	// PageNumber is the 1-based source page, or 0 for single images.
	PageNumber int
	// PageCount is the number of pages of the source document.
	PageCount int
	Caption   string
	Category  ScanCategory
	Source    string
}

// Landscape reports whether the page is wider than tall. Square pages are
// portrait.
func (p NormalizedPage) Landscape() bool {
	return p.Width > p.Height
}

// MediaRepository stores photos and scans of a draft.
type MediaRepository interface {
	// AddPhoto stores a new photo at the end of the draft photo list
	AddPhoto(ctx context.Context, photo *Photo) error

	// GetPhoto retrieves a photo with its binaries
	GetPhoto(ctx context.Context, id string) (*Photo, error)

	// ListPhotos returns the photos of a draft ordered by position
	ListPhotos(ctx context.Context, draftID string) ([]Photo, error)

	// SetAnnotation replaces the annotated image and snapshot of a photo
	SetAnnotation(ctx context.Context, photoID string, annotated, snapshot []byte) error

	// ReorderPhotos rewrites positions following ids
	ReorderPhotos(ctx context.Context, draftID string, ids []string) error

	// DeletePhoto removes a photo
	DeletePhoto(ctx context.Context, id string) error

	// AddScan stores a new scan document
	AddScan(ctx context.Context, scan *ScanDocument) error

	// ListScans returns the scans of a draft ordered by position
	ListScans(ctx context.Context, draftID string) ([]ScanDocument, error)

	// SetScanCategory changes the category of a scan
	SetScanCategory(ctx context.Context, id string, category ScanCategory) error

	// DeleteScan removes a scan document
	DeleteScan(ctx context.Context, id string) error

	// ClearDraft removes every photo and scan of a draft
	ClearDraft(ctx context.Context, draftID string) error
}
