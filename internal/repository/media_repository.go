package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lewtec/vistoria/internal/blobstore"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
)

// MediaRepository implements domain.MediaRepository. Rows live in SQLite,
// binaries in the blob store.
type MediaRepository struct {
	db    *sql.DB
	blobs *blobstore.Store
}

// NewMediaRepository creates a new MediaRepository
func NewMediaRepository(db *sql.DB, blobs *blobstore.Store) *MediaRepository {
	return &MediaRepository{db: db, blobs: blobs}
}

// releaseBlob deletes a blob nothing references anymore.
func releaseBlob(ctx context.Context, db querier, blobs *blobstore.Store, key string) {
	if key == "" {
		return
	}
	var refs int
	err := db.QueryRowContext(ctx, `SELECT
  (SELECT COUNT(*) FROM photos WHERE original_key = ?1 OR annotated_key = ?1) +
  (SELECT COUNT(*) FROM scans WHERE blob_key = ?1) +
  (SELECT COUNT(*) FROM reports WHERE blob_key = ?1)`, key).Scan(&refs)
	if err != nil {
		logger.Warn("repository: while counting references of blob %s: %s", key, err)
		return
	}
	if refs > 0 {
		return
	}
	if err := blobs.Delete(key); err != nil {
		logger.Warn("repository: %s", err)
	}
}

// AddPhoto stores a new photo at the end of the draft photo list
func (r *MediaRepository) AddPhoto(ctx context.Context, p *domain.Photo) error {
	if len(p.Original) == 0 {
		return fmt.Errorf("%w: empty photo", domain.ErrInvalidInput)
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CapturedAt.IsZero() {
		p.CapturedAt = time.Now()
	}
	originalKey, err := r.blobs.Put(p.Original)
	if err != nil {
		return err
	}
	var annotatedKey sql.NullString
	if len(p.Annotated) > 0 {
		key, err := r.blobs.Put(p.Annotated)
		if err != nil {
			return err
		}
		annotatedKey = sql.NullString{String: key, Valid: true}
	}
	err = r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM photos WHERE draft_id = ?`, p.DraftID).Scan(&p.Position)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO photos (id, draft_id, position, filename, original_key, annotated_key, annotation, captured_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.DraftID, p.Position, p.Filename, originalKey, annotatedKey, p.Annotation, toMillis(p.CapturedAt))
	if err != nil {
		return fmt.Errorf("while adding photo to draft %s: %w", p.DraftID, err)
	}
	return nil
}

const photoColumns = `id, draft_id, position, filename, original_key, annotated_key, annotation, captured_at`

func (r *MediaRepository) scanPhoto(row scanner) (*domain.Photo, error) {
	var (
		p            domain.Photo
		originalKey  string
		annotatedKey sql.NullString
		captured     int64
	)
	if err := row.Scan(&p.ID, &p.DraftID, &p.Position, &p.Filename, &originalKey, &annotatedKey, &p.Annotation, &captured); err != nil {
		return nil, err
	}
	p.CapturedAt = fromMillis(captured)
	var err error
	if p.Original, err = r.blobs.Get(originalKey); err != nil {
		return nil, fmt.Errorf("while loading photo %s: %w", p.ID, err)
	}
	if annotatedKey.Valid {
		if p.Annotated, err = r.blobs.Get(annotatedKey.String); err != nil {
			return nil, fmt.Errorf("while loading annotated photo %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// GetPhoto retrieves a photo with its binaries
func (r *MediaRepository) GetPhoto(ctx context.Context, id string) (*domain.Photo, error) {
	p, err := r.scanPhoto(r.db.QueryRowContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
	if err != nil {
		return nil, notFound("photo", id, err)
	}
	return p, nil
}

// ListPhotos returns the photos of a draft ordered by position
func (r *MediaRepository) ListPhotos(ctx context.Context, draftID string) ([]domain.Photo, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+photoColumns+` FROM photos WHERE draft_id = ? ORDER BY position, id`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Photo
	for rows.Next() {
		p, err := r.scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

// SetAnnotation replaces the annotated image and snapshot of a photo
func (r *MediaRepository) SetAnnotation(ctx context.Context, photoID string, annotated, snapshot []byte) error {
	var old sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT annotated_key FROM photos WHERE id = ?`, photoID).Scan(&old)
	if err != nil {
		return notFound("photo", photoID, err)
	}
	var key sql.NullString
	if len(annotated) > 0 {
		k, err := r.blobs.Put(annotated)
		if err != nil {
			return err
		}
		key = sql.NullString{String: k, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, `UPDATE photos SET annotated_key = ?, annotation = ? WHERE id = ?`, key, snapshot, photoID)
	if err != nil {
		return fmt.Errorf("while saving annotation of photo %s: %w", photoID, err)
	}
	if old.Valid && old.String != key.String {
		releaseBlob(ctx, r.db, r.blobs, old.String)
	}
	return nil
}

// ReorderPhotos rewrites positions following ids, which must list every
// photo of the draft exactly once
func (r *MediaRepository) ReorderPhotos(ctx context.Context, draftID string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM photos WHERE draft_id = ?`, draftID).Scan(&count); err != nil {
		return err
	}
	if count != len(ids) {
		return fmt.Errorf("%w: draft has %d photos, got %d ids", domain.ErrInvalidInput, count, len(ids))
	}
	seen := map[string]bool{}
	for i, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: photo %s listed twice", domain.ErrInvalidInput, id)
		}
		seen[id] = true
		res, err := tx.ExecContext(ctx, `UPDATE photos SET position = ? WHERE id = ? AND draft_id = ?`, i, id, draftID)
		if err != nil {
			return err
		}
		if err := mustAffect(res, "photo", id); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// DeletePhoto removes a photo and the blobs only it used
func (r *MediaRepository) DeletePhoto(ctx context.Context, id string) error {
	var original string
	var annotated sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT original_key, annotated_key FROM photos WHERE id = ?`, id).Scan(&original, &annotated)
	if err != nil {
		return notFound("photo", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM photos WHERE id = ?`, id); err != nil {
		return fmt.Errorf("while deleting photo %s: %w", id, err)
	}
	releaseBlob(ctx, r.db, r.blobs, original)
	releaseBlob(ctx, r.db, r.blobs, annotated.String)
	return nil
}

// AddScan stores a new scan document
func (r *MediaRepository) AddScan(ctx context.Context, s *domain.ScanDocument) error {
	if len(s.Data) == 0 {
		return fmt.Errorf("%w: empty scan", domain.ErrInvalidInput)
	}
	if s.Category == "" {
		s.Category = domain.ScanOther
	}
	if !s.Category.Valid() {
		return fmt.Errorf("%w: scan category %q", domain.ErrInvalidInput, s.Category)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.AddedAt.IsZero() {
		s.AddedAt = time.Now()
	}
	s.Size = int64(len(s.Data))
	key, err := r.blobs.Put(s.Data)
	if err != nil {
		return err
	}
	err = r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position) + 1, 0) FROM scans WHERE draft_id = ?`, s.DraftID).Scan(&s.Position)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO scans (id, draft_id, position, filename, category, kind, size, blob_key, added_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.DraftID, s.Position, s.Filename, string(s.Category), string(s.Kind), s.Size, key, toMillis(s.AddedAt))
	if err != nil {
		return fmt.Errorf("while adding scan to draft %s: %w", s.DraftID, err)
	}
	return nil
}

// ListScans returns the scans of a draft ordered by position
func (r *MediaRepository) ListScans(ctx context.Context, draftID string) ([]domain.ScanDocument, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, draft_id, position, filename, category, kind, size, blob_key, added_at
FROM scans WHERE draft_id = ? ORDER BY position, id`, draftID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ScanDocument
	for rows.Next() {
		var (
			s        domain.ScanDocument
			category string
			kind     string
			key      string
			addedAt  int64
		)
		if err := rows.Scan(&s.ID, &s.DraftID, &s.Position, &s.Filename, &category, &kind, &s.Size, &key, &addedAt); err != nil {
			return nil, err
		}
		s.Category = domain.ScanCategory(category)
		s.Kind = domain.MediaKind(kind)
		s.AddedAt = fromMillis(addedAt)
		if s.Data, err = r.blobs.Get(key); err != nil {
			return nil, fmt.Errorf("while loading scan %s: %w", s.ID, err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// SetScanCategory changes the category of a scan
func (r *MediaRepository) SetScanCategory(ctx context.Context, id string, category domain.ScanCategory) error {
	if !category.Valid() {
		return fmt.Errorf("%w: scan category %q", domain.ErrInvalidInput, category)
	}
	res, err := r.db.ExecContext(ctx, `UPDATE scans SET category = ? WHERE id = ?`, string(category), id)
	if err != nil {
		return err
	}
	return mustAffect(res, "scan", id)
}

// DeleteScan removes a scan document
func (r *MediaRepository) DeleteScan(ctx context.Context, id string) error {
	var key string
	if err := r.db.QueryRowContext(ctx, `SELECT blob_key FROM scans WHERE id = ?`, id).Scan(&key); err != nil {
		return notFound("scan", id, err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM scans WHERE id = ?`, id); err != nil {
		return fmt.Errorf("while deleting scan %s: %w", id, err)
	}
	releaseBlob(ctx, r.db, r.blobs, key)
	return nil
}

// ClearDraft removes every photo and scan of a draft
func (r *MediaRepository) ClearDraft(ctx context.Context, draftID string) error {
	var keys []string
	rows, err := r.db.QueryContext(ctx, `SELECT original_key FROM photos WHERE draft_id = ?1
UNION SELECT annotated_key FROM photos WHERE draft_id = ?1 AND annotated_key IS NOT NULL
UNION SELECT blob_key FROM scans WHERE draft_id = ?1`, draftID)
	if err != nil {
		return err
	}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			rows.Close()
			return err
		}
		keys = append(keys, key)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM photos WHERE draft_id = ?`, draftID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scans WHERE draft_id = ?`, draftID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("while clearing draft %s: %w", draftID, err)
	}
	for _, key := range keys {
		releaseBlob(ctx, r.db, r.blobs, key)
	}
	return nil
}

// Verify interface compliance
var _ domain.MediaRepository = (*MediaRepository)(nil)
