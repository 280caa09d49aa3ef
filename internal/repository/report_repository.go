package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/vistoria/internal/domain"
)

// ReportRepository implements domain.ReportRepository on SQLite
type ReportRepository struct {
	db querier
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create stores a generated report. The PDF itself must already be in the
// blob store under BlobKey.
func (r *ReportRepository) Create(ctx context.Context, rep *domain.Report) error {
	if rep.BlobKey == "" {
		return fmt.Errorf("%w: report without blob", domain.ErrInvalidInput)
	}
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	if rep.GeneratedAt.IsZero() {
		rep.GeneratedAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO reports (id, draft_id, blob_key, pages, size, generated_at, location, uploaded_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rep.ID, rep.DraftID, rep.BlobKey, rep.Pages, rep.Size, toMillis(rep.GeneratedAt), rep.Location, nullMillis(rep.UploadedAt))
	if err != nil {
		return fmt.Errorf("while storing report of draft %s: %w", rep.DraftID, err)
	}
	return nil
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

const reportColumns = `id, draft_id, blob_key, pages, size, generated_at, location, uploaded_at`

func scanReport(row scanner) (*domain.Report, error) {
	var (
		rep       domain.Report
		generated int64
		uploaded  sql.NullInt64
	)
	if err := row.Scan(&rep.ID, &rep.DraftID, &rep.BlobKey, &rep.Pages, &rep.Size, &generated, &rep.Location, &uploaded); err != nil {
		return nil, err
	}
	rep.GeneratedAt = fromMillis(generated)
	if uploaded.Valid {
		t := fromMillis(uploaded.Int64)
		rep.UploadedAt = &t
	}
	return &rep, nil
}

// Latest returns the newest report of a draft
func (r *ReportRepository) Latest(ctx context.Context, draftID string) (*domain.Report, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE draft_id = ?
ORDER BY generated_at DESC, rowid DESC LIMIT 1`, draftID)
	rep, err := scanReport(row)
	if err != nil {
		return nil, notFound("report of draft", draftID, err)
	}
	return rep, nil
}

// List returns every report of a draft, newest first
func (r *ReportRepository) List(ctx context.Context, draftID string) ([]*domain.Report, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE draft_id = ?
ORDER BY generated_at DESC, rowid DESC`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rep)
	}
	return result, rows.Err()
}

// MarkUploaded records a successful upload
func (r *ReportRepository) MarkUploaded(ctx context.Context, id, location string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE reports SET location = ?, uploaded_at = ? WHERE id = ?`, location, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("while marking report %s uploaded: %w", id, err)
	}
	return mustAffect(res, "report", id)
}

// Verify interface compliance
var _ domain.ReportRepository = (*ReportRepository)(nil)
