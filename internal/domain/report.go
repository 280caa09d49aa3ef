package domain

import (
	"context"
	"strings"
	"time"
)

// Vehicle is the vehicle block printed on the report cover.
type Vehicle struct {
	Year  string
	Make  string
	Model string
	VIN   string
	Plate string
}

// Description joins year, make and model, skipping blanks.
func (v Vehicle) Description() string {
	var parts []string
	for _, p := range []string{v.Year, v.Make, v.Model} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// ReportDraft is the report being assembled for a repair order task.
type ReportDraft struct {
	ID           string
	TaskID       string
	ShopID       string
	ROID         string
	InspectionID string
	RONumber     string
	Vehicle      *Vehicle
	CustomerName string
	Photos       []Photo
	Scans        []ScanDocument
	Findings     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CanGenerate is true when there is anything to put in a report.
func (d ReportDraft) CanGenerate() bool {
	return len(d.Photos) > 0 || len(d.Scans) > 0 || strings.TrimSpace(d.Findings) != ""
}

// Report is a generated PDF.
type Report struct {
	ID          string
	DraftID     string
	BlobKey     string
	Pages       int
	Size        int64
	GeneratedAt time.Time
	// Location is set once the report was accepted by the uploader.
	Location   string
	UploadedAt *time.Time
}

// Uploaded reports whether the upload collaborator accepted the report.
func (r Report) Uploaded() bool {
	return r.UploadedAt != nil
}

// DraftStats is a summary of a draft for listings.
type DraftStats struct {
	Photos  int64
	Scans   int64
	Reports int64
}

// DraftRepository defines the interface for draft storage operations
type DraftRepository interface {
	// Create stores a new draft
	Create(ctx context.Context, draft *ReportDraft) error

	// Get retrieves a draft by id, without media
	Get(ctx context.Context, id string) (*ReportDraft, error)

	// GetByTask retrieves the draft bound to a task
	GetByTask(ctx context.Context, taskID string) (*ReportDraft, error)

	// List retrieves every draft, newest first
	List(ctx context.Context) ([]*ReportDraft, error)

	// SaveFindings persists the findings text of a draft
	SaveFindings(ctx context.Context, id, findings string) error

	// UpdateRepairOrder rewrites the repair order, vehicle and customer fields
	UpdateRepairOrder(ctx context.Context, draft *ReportDraft) error

	// Touch marks the draft as changed
	Touch(ctx context.Context, id string) error

	// Stats counts the media and reports of a draft
	Stats(ctx context.Context, id string) (*DraftStats, error)

	// Delete removes a draft and everything attached to it
	Delete(ctx context.Context, id string) error
}

// ReportRepository defines the interface for generated report storage
type ReportRepository interface {
	// Create stores a generated report
	Create(ctx context.Context, report *Report) error

	// Latest returns the newest report of a draft
	Latest(ctx context.Context, draftID string) (*Report, error)

	// List returns every report of a draft, newest first
	List(ctx context.Context, draftID string) ([]*Report, error)

	// MarkUploaded records a successful upload
	MarkUploaded(ctx context.Context, id, location string, at time.Time) error
}
