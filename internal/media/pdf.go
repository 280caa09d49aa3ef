package media

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lewtec/vistoria/internal/logger"
)

// PDFRasterizer opens PDF documents for page rendering.
type PDFRasterizer interface {
	Open(ctx context.Context, data []byte) (PDFDocument, error)
}

// PDFDocument is an opened PDF. Pages are numbered from 1.
type PDFDocument interface {
	Pages() int
	Render(ctx context.Context, page int, scale float64) (image.Image, error)
	Close() error
}

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("while running %s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Poppler rasterizes PDFs with the pdfinfo and pdftoppm tools.
type Poppler struct {
	Runner   CommandRunner
	PDFInfo  string
	PDFToPPM string
	TempDir  string
}

// NewPoppler creates a rasterizer that looks the tools up in PATH.
func NewPoppler() *Poppler {
	return &Poppler{Runner: ExecRunner{}, PDFInfo: "pdfinfo", PDFToPPM: "pdftoppm"}
}

// Available reports whether pdftoppm can be found.
func (p *Poppler) Available() bool {
	_, err := exec.LookPath(p.PDFToPPM)
	return err == nil
}

// InstallInstructions tells the user how to get the poppler tools.
func InstallInstructions() string {
	return "PDF scans need poppler: brew install poppler (macOS) or apt install poppler-utils (Debian/Ubuntu)"
}

func (p *Poppler) Open(ctx context.Context, data []byte) (PDFDocument, error) {
	dir, err := os.MkdirTemp(p.TempDir, "vistoria-pdf-")
	if err != nil {
		return nil, fmt.Errorf("while creating work dir: %w", err)
	}
	doc := &popplerDocument{p: p, dir: dir, file: filepath.Join(dir, "input.pdf")}
	if err := os.WriteFile(doc.file, data, 0o600); err != nil {
		doc.Close()
		return nil, fmt.Errorf("while writing pdf: %w", err)
	}
	out, err := p.Runner.Run(ctx, p.PDFInfo, doc.file)
	if err != nil {
		doc.Close()
		return nil, err
	}
	pages, err := ParsePageCount(out)
	if err != nil {
		doc.Close()
		return nil, err
	}
	doc.pages = pages
	logger.Debug("media: opened pdf with %d pages", pages)
	return doc, nil
}

// ParsePageCount reads the "Pages:" line of pdfinfo output.
func ParsePageCount(out []byte) (int, error) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok || strings.TrimSpace(key) != "Pages" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0, fmt.Errorf("while parsing page count: %w", err)
		}
		return n, nil
	}
	return 0, fmt.Errorf("page count not found in pdfinfo output")
}

type popplerDocument struct {
	p     *Poppler
	dir   string
	file  string
	pages int
}

func (d *popplerDocument) Pages() int {
	return d.pages
}

func (d *popplerDocument) Render(ctx context.Context, page int, scale float64) (image.Image, error) {
	if page < 1 || page > d.pages {
		return nil, fmt.Errorf("page %d out of range 1..%d", page, d.pages)
	}
	n := strconv.Itoa(page)
	dpi := strconv.Itoa(int(72 * scale))
	prefix := filepath.Join(d.dir, "page")
	if _, err := d.p.Runner.Run(ctx, d.p.PDFToPPM, "-f", n, "-l", n, "-r", dpi, "-png", "-singlefile", d.file, prefix); err != nil {
		return nil, err
	}
	out := prefix + ".png"
	defer os.Remove(out)
	f, err := os.Open(out)
	if err != nil {
		return nil, fmt.Errorf("while opening rendered page: %w", err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("while decoding rendered page: %w", err)
	}
	return img, nil
}

func (d *popplerDocument) Close() error {
	return os.RemoveAll(d.dir)
}
