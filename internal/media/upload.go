package media

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/lewtec/vistoria/internal/domain"
)

// Default oversize thresholds.
const (
	DefaultPhotoWarnBytes = 10 * 1000 * 1000
	DefaultScanWarnBytes  = 25 * 1000 * 1000
)

// SizeLimits holds the sizes above which an upload gets a warning.
type SizeLimits struct {
	Photo int64
	Scan  int64
}

// DefaultSizeLimits returns the default thresholds.
func DefaultSizeLimits() SizeLimits {
	return SizeLimits{Photo: DefaultPhotoWarnBytes, Scan: DefaultScanWarnBytes}
}

// CheckSize returns a human readable warning when size exceeds the limit
// for its kind, or "" otherwise. Oversized files are still accepted.
func (l SizeLimits) CheckSize(filename string, size int64, scan bool) string {
	limit, what := l.Photo, "photo"
	if scan {
		limit, what = l.Scan, "scan"
	}
	if limit <= 0 || size <= limit {
		return ""
	}
	return fmt.Sprintf("%s %s is %s, larger than the recommended %s; the report may be slow to build",
		what, filename, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(limit)))
}

// CheckSize checks size against the default thresholds.
func CheckSize(filename string, size int64, scan bool) string {
	return DefaultSizeLimits().CheckSize(filename, size, scan)
}

// ContentType sniffs the MIME type of data.
func ContentType(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return ct
}

// DetectScanKind accepts PDF, JPEG and PNG scan uploads.
func DetectScanKind(data []byte) (domain.MediaKind, error) {
	switch ct := ContentType(data); ct {
	case "application/pdf":
		return domain.MediaPDF, nil
	case "image/jpeg", "image/png":
		return domain.MediaImage, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, ct)
	}
}
