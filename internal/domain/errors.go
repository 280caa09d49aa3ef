package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNoToken indicates the shop has no usable session credential.
	ErrNoToken = errors.New("no session token for shop")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedMedia indicates an upload that is neither PDF, JPEG nor PNG.
	ErrUnsupportedMedia = errors.New("unsupported media type")

	// ErrEmptyReport indicates a draft with no photos, scans or findings.
	ErrEmptyReport = errors.New("report has no content")

	// ErrGenerationInProgress indicates a report is already being generated.
	ErrGenerationInProgress = errors.New("report generation in progress")

	// ErrFindingsTooLong indicates findings above the configured length.
	ErrFindingsTooLong = errors.New("findings too long")

	// ErrCorruptSnapshot indicates an annotation snapshot that can not be restored.
	ErrCorruptSnapshot = errors.New("corrupt annotation snapshot")

	// ErrUploadFailed indicates the upload collaborator rejected the report.
	ErrUploadFailed = errors.New("upload failed")
)
