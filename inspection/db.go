package inspection

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/lewtec/vistoria/db"
	"github.com/lewtec/vistoria/internal/blobstore"
	"github.com/lewtec/vistoria/internal/outbox"
	"github.com/lewtec/vistoria/internal/repository"
)

// Storage bundles the database, the blob store and the outbox.
type Storage struct {
	DB      *sql.DB
	Blobs   *blobstore.Store
	Drafts  *repository.DraftRepository
	Media   *repository.MediaRepository
	Reports *repository.ReportRepository
	Outbox  *outbox.Uploader
}

func newStorage(conn *sql.DB, blobs *blobstore.Store, out *outbox.Uploader) *Storage {
	return &Storage{
		DB:      conn,
		Blobs:   blobs,
		Drafts:  repository.NewDraftRepository(conn),
		Media:   repository.NewMediaRepository(conn, blobs),
		Reports: repository.NewReportRepository(conn),
		Outbox:  out,
	}
}

// OpenStorage opens and migrates the database and binds the blob and outbox
// directories named by the config.
func OpenStorage(cfg StorageConfig) (*Storage, error) {
	log.Printf("storage: opening database %s", cfg.Database)
	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("while opening database: %w", err)
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("while migrating database: %w", err)
	}
	log.Printf("storage: blobs in %s, outbox in %s", cfg.Blobs, cfg.Outbox)
	return newStorage(conn, blobstore.NewOS(cfg.Blobs), outbox.NewOS(cfg.Outbox)), nil
}

// OpenMemoryStorage keeps everything in memory. Used by tests and dry runs.
func OpenMemoryStorage() (*Storage, error) {
	conn, err := db.Open(":memory:")
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return newStorage(conn, blobstore.NewMemory(), outbox.NewMemory()), nil
}

func (s *Storage) Close() error {
	return s.DB.Close()
}
