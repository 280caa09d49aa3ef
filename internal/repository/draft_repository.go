package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/vistoria/internal/domain"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms)
}

func notFound(what, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, what, id)
	}
	return err
}

func mustAffect(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, what, id)
	}
	return nil
}

// DraftRepository implements domain.DraftRepository on SQLite
type DraftRepository struct {
	db  querier
	now func() time.Time
}

// NewDraftRepository creates a new DraftRepository
func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db, now: time.Now}
}

// NewDraftRepositoryWithTx creates a new DraftRepository with a transaction
func NewDraftRepositoryWithTx(tx *sql.Tx) *DraftRepository {
	return &DraftRepository{db: tx, now: time.Now}
}

const draftColumns = `id, task_id, shop_id, ro_id, inspection_id, ro_number,
  has_vehicle, vehicle_year, vehicle_make, vehicle_model, vehicle_vin, vehicle_plate,
  customer_name, findings, created_at, updated_at`

// Create stores a new draft. An empty id gets a fresh uuid.
func (r *DraftRepository) Create(ctx context.Context, d *domain.ReportDraft) error {
	if d.TaskID == "" {
		return fmt.Errorf("%w: draft without task", domain.ErrInvalidInput)
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := r.now()
	d.CreatedAt, d.UpdatedAt = now, now
	v := domain.Vehicle{}
	if d.Vehicle != nil {
		v = *d.Vehicle
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO drafts (`+draftColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.TaskID, d.ShopID, d.ROID, d.InspectionID, d.RONumber,
		d.Vehicle != nil, v.Year, v.Make, v.Model, v.VIN, v.Plate,
		d.CustomerName, d.Findings, toMillis(now), toMillis(now))
	if err != nil {
		return fmt.Errorf("while creating draft for task %s: %w", d.TaskID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDraft(row scanner) (*domain.ReportDraft, error) {
	var (
		d                domain.ReportDraft
		v                domain.Vehicle
		hasVehicle       bool
		created, updated int64
	)
	err := row.Scan(&d.ID, &d.TaskID, &d.ShopID, &d.ROID, &d.InspectionID, &d.RONumber,
		&hasVehicle, &v.Year, &v.Make, &v.Model, &v.VIN, &v.Plate,
		&d.CustomerName, &d.Findings, &created, &updated)
	if err != nil {
		return nil, err
	}
	if hasVehicle {
		d.Vehicle = &v
	}
	d.CreatedAt = fromMillis(created)
	d.UpdatedAt = fromMillis(updated)
	return &d, nil
}

// Get retrieves a draft by id, without media
func (r *DraftRepository) Get(ctx context.Context, id string) (*domain.ReportDraft, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE id = ?`, id)
	d, err := scanDraft(row)
	if err != nil {
		return nil, notFound("draft", id, err)
	}
	return d, nil
}

// GetByTask retrieves the draft bound to a task
func (r *DraftRepository) GetByTask(ctx context.Context, taskID string) (*domain.ReportDraft, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+draftColumns+` FROM drafts WHERE task_id = ?`, taskID)
	d, err := scanDraft(row)
	if err != nil {
		return nil, notFound("draft for task", taskID, err)
	}
	return d, nil
}

// List retrieves every draft, most recently updated first
func (r *DraftRepository) List(ctx context.Context) ([]*domain.ReportDraft, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+draftColumns+` FROM drafts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.ReportDraft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// SaveFindings persists the findings text of a draft
func (r *DraftRepository) SaveFindings(ctx context.Context, id, findings string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drafts SET findings = ?, updated_at = ? WHERE id = ?`,
		findings, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("while saving findings of draft %s: %w", id, err)
	}
	return mustAffect(res, "draft", id)
}

// Stats counts the media and reports of a draft
func (r *DraftRepository) Stats(ctx context.Context, id string) (*domain.DraftStats, error) {
	var s domain.DraftStats
	err := r.db.QueryRowContext(ctx, `SELECT
  (SELECT COUNT(*) FROM photos WHERE draft_id = ?),
  (SELECT COUNT(*) FROM scans WHERE draft_id = ?),
  (SELECT COUNT(*) FROM reports WHERE draft_id = ?)`, id, id, id).Scan(&s.Photos, &s.Scans, &s.Reports)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes a draft and, through the foreign keys, everything
// attached to it
func (r *DraftRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("while deleting draft %s: %w", id, err)
	}
	return mustAffect(res, "draft", id)
}

// UpdateRepairOrder rewrites the repair order, vehicle and customer of a
// draft.
func (r *DraftRepository) UpdateRepairOrder(ctx context.Context, d *domain.ReportDraft) error {
	v := domain.Vehicle{}
	if d.Vehicle != nil {
		v = *d.Vehicle
	}
	d.UpdatedAt = r.now()
	res, err := r.db.ExecContext(ctx, `UPDATE drafts SET
  ro_id = ?, inspection_id = ?, ro_number = ?,
  has_vehicle = ?, vehicle_year = ?, vehicle_make = ?, vehicle_model = ?, vehicle_vin = ?, vehicle_plate = ?,
  customer_name = ?, updated_at = ?
WHERE id = ?`,
		d.ROID, d.InspectionID, d.RONumber,
		d.Vehicle != nil, v.Year, v.Make, v.Model, v.VIN, v.Plate,
		d.CustomerName, toMillis(d.UpdatedAt), d.ID)
	if err != nil {
		return fmt.Errorf("while updating repair order of draft %s: %w", d.ID, err)
	}
	return mustAffect(res, "draft", d.ID)
}

// Touch bumps the update time of a draft.
func (r *DraftRepository) Touch(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE drafts SET updated_at = ? WHERE id = ?`, toMillis(r.now()), id)
	if err != nil {
		return fmt.Errorf("while touching draft %s: %w", id, err)
	}
	return mustAffect(res, "draft", id)
}

// Verify interface compliance
var _ domain.DraftRepository = (*DraftRepository)(nil)
