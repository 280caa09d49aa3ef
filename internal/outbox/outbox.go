// Package outbox is the local upload collaborator: it files finished
// reports, their findings and a manifest into a directory tree, one folder
// per shop, repair order and task.
package outbox

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
	"github.com/lewtec/vistoria/internal/blobstore"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
	"gopkg.in/yaml.v3"
)

// ManifestName is the file written next to every delivered report.
const ManifestName = "manifest.yaml"

// FindingsName holds the findings text of a delivery.
const FindingsName = "findings.md"

// Manifest describes one delivery.
type Manifest struct {
	ShopID       string    `yaml:"shop_id"`
	ROID         string    `yaml:"ro_id"`
	InspectionID string    `yaml:"inspection_id"`
	TaskID       string    `yaml:"task_id"`
	Filename     string    `yaml:"filename"`
	Size         int       `yaml:"size"`
	SHA256       string    `yaml:"sha256"`
	HasFindings  bool      `yaml:"has_findings"`
	UploadedAt   time.Time `yaml:"uploaded_at"`
}

// Uploader implements domain.Uploader on a billy filesystem.
type Uploader struct {
	fs  billy.Filesystem
	now func() time.Time
}

// New creates an uploader writing into fs.
func New(fs billy.Filesystem) *Uploader {
	return &Uploader{fs: fs, now: time.Now}
}

// NewOS creates an uploader writing below a host directory.
func NewOS(root string) *Uploader {
	return New(osfs.New(root))
}

// NewMemory creates an uploader that keeps deliveries in memory.
func NewMemory() *Uploader {
	return New(memfs.New())
}

// Filesystem returns the filesystem deliveries are written to.
func (u *Uploader) Filesystem() billy.Filesystem {
	return u.fs
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, s)
}

// Dir returns the folder a request is delivered to.
func Dir(req domain.UploadRequest) string {
	return path.Join(safeName(req.ShopID), safeName(req.ROID), safeName(req.TaskID))
}

func (u *Uploader) write(name string, data []byte) error {
	f, err := u.fs.Create(name)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Upload delivers the report. Progress goes through preparing, uploading,
// updating and complete, or ends with an error step.
func (u *Uploader) Upload(ctx context.Context, req domain.UploadRequest, progress func(domain.UploadProgress)) (domain.UploadResult, error) {
	notify := func(step domain.UploadStep, msg string) {
		if progress != nil {
			progress(domain.ProgressFor(step, msg))
		}
	}
	fail := func(err error) (domain.UploadResult, error) {
		notify(domain.UploadError, err.Error())
		logger.Error("outbox: %s", err)
		return domain.UploadResult{}, fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}

	notify(domain.UploadPreparing, "Preparing report")
	if len(req.Document) == 0 || !bytes.HasPrefix(req.Document, []byte("%PDF-")) {
		return fail(fmt.Errorf("%w: document is not a PDF", domain.ErrInvalidInput))
	}
	if req.ShopID == "" || req.ROID == "" || req.TaskID == "" {
		return fail(fmt.Errorf("%w: shop, repair order and task are required", domain.ErrInvalidInput))
	}
	filename := req.Filename
	if filename == "" {
		filename = "inspection-report.pdf"
	}
	filename = safeName(filename)
	dir := Dir(req)
	if err := u.fs.MkdirAll(dir, 0o755); err != nil {
		return fail(fmt.Errorf("while creating %s: %w", dir, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	notify(domain.UploadUploading, "Uploading report")
	location := path.Join(dir, filename)
	if err := u.write(location, req.Document); err != nil {
		return fail(fmt.Errorf("while writing %s: %w", location, err))
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	notify(domain.UploadUpdating, "Updating repair order")
	at := u.now()
	findings := strings.TrimSpace(req.Findings)
	if findings != "" {
		if err := u.write(path.Join(dir, FindingsName), []byte(findings+"\n")); err != nil {
			return fail(fmt.Errorf("while writing findings: %w", err))
		}
	}
	manifest, err := yaml.Marshal(Manifest{
		ShopID:       req.ShopID,
		ROID:         req.ROID,
		InspectionID: req.InspectionID,
		TaskID:       req.TaskID,
		Filename:     filename,
		Size:         len(req.Document),
		SHA256:       blobstore.Key(req.Document),
		HasFindings:  findings != "",
		UploadedAt:   at,
	})
	if err != nil {
		return fail(fmt.Errorf("while encoding manifest: %w", err))
	}
	if err := u.write(path.Join(dir, ManifestName), manifest); err != nil {
		return fail(fmt.Errorf("while writing manifest: %w", err))
	}

	notify(domain.UploadComplete, "Report uploaded")
	logger.Info("outbox: delivered %s (%d bytes)", location, len(req.Document))
	return domain.UploadResult{Location: location, UploadedAt: at}, nil
}

// ReadManifest loads the manifest of a delivery folder.
func (u *Uploader) ReadManifest(dir string) (*Manifest, error) {
	f, err := u.fs.Open(path.Join(dir, ManifestName))
	if err != nil {
		return nil, fmt.Errorf("while opening manifest: %w", err)
	}
	defer f.Close()
	var m Manifest
	if err := yaml.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("while decoding manifest: %w", err)
	}
	return &m, nil
}

var _ domain.Uploader = (*Uploader)(nil)
