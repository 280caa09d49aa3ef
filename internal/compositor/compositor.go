// Package compositor lays normalized photos, scan pages and findings out
// as a paginated A4 PDF report.
//
// A Compositor holds no lock; callers must not run two compositions of
// the same draft at once.
package compositor

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
)

// PageKind tells cover, photo and scan pages apart.
type PageKind int

const (
	PageCover PageKind = iota
	PagePhoto
	PageScan
)

func (k PageKind) String() string {
	switch k {
	case PageCover:
		return "cover"
	case PagePhoto:
		return "photo"
	case PageScan:
		return "scan"
	}
	return fmt.Sprintf("PageKind(%d)", int(k))
}

// PagePlan describes one page of the report before it is drawn.
type PagePlan struct {
	Kind PageKind
	// Number is the 1-based page number in the final document.
	Number    int
	Landscape bool
	Header    string
	Caption   string
	Image     *domain.NormalizedPage

	imageName string
}

// Orientation returns the fpdf orientation of the page.
func (p PagePlan) Orientation() string {
	if p.Landscape {
		return "L"
	}
	return "P"
}

// Options tunes the PDF output.
type Options struct {
	Compress bool
	// Now stamps the cover date and the document metadata.
	Now func() time.Time
}

// Output is a composed report.
type Output struct {
	Data  []byte
	Pages int
	// Skipped counts images that could not be embedded.
	Skipped int
}

// Compositor builds inspection report PDFs.
type Compositor struct {
	labels Labels
	opts   Options
}

// New creates a compositor. Blank labels fall back to English.
func New(labels Labels, opts Options) *Compositor {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Compositor{labels: labels.withDefaults(), opts: opts}
}

// Labels returns the labels in use.
func (c *Compositor) Labels() Labels {
	return c.labels
}

// Plan lists the pages of the report: the cover, one page per photo in
// order, then one page per scan page.
func (c *Compositor) Plan(draft domain.ReportDraft, photos, scans []domain.NormalizedPage) []PagePlan {
	plan := []PagePlan{{Kind: PageCover, Number: 1, Header: c.labels.Title}}
	for i := range photos {
		p := &photos[i]
		plan = append(plan, PagePlan{
			Kind:      PagePhoto,
			Number:    len(plan) + 1,
			Landscape: p.Landscape(),
			Header:    c.labels.PhotoHeader(i+1, len(photos)),
			Caption:   p.Caption,
			Image:     p,
			imageName: fmt.Sprintf("photo-%d", i),
		})
	}
	for i := range scans {
		s := &scans[i]
		caption := s.Caption
		if s.PageNumber > 0 && s.PageCount > 1 {
			caption = c.labels.PageCaption(s.Caption, s.PageNumber)
		}
		plan = append(plan, PagePlan{
			Kind:      PageScan,
			Number:    len(plan) + 1,
			Landscape: s.Landscape(),
			Header:    strings.ToUpper(c.labels.Category(s.Category)),
			Caption:   caption,
			Image:     s,
			imageName: fmt.Sprintf("scan-%d", i),
		})
	}
	return plan
}

// Compose renders the report and returns the PDF bytes.
func (c *Compositor) Compose(draft domain.ReportDraft, photos, scans []domain.NormalizedPage) ([]byte, error) {
	out, err := c.Render(draft, photos, scans)
	if err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Render renders the report. Images fpdf can not embed are dropped with a
// warning before pages are numbered; only a failed serialization is an
// error.
func (c *Compositor) Render(draft domain.ReportDraft, photos, scans []domain.NormalizedPage) (Output, error) {
	now := c.opts.Now()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(c.opts.Compress)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(coverMargin, coverMargin, coverMargin)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.SetCatalogSort(true)
	pdf.SetTitle(c.labels.Title, true)
	pdf.SetCreator("vistoria", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	var skipped int
	photos, skipped = register(pdf, "photo", photos, skipped)
	scans, skipped = register(pdf, "scan", scans, skipped)

	plan := c.Plan(draft, photos, scans)
	total := len(plan)
	pdf.SetFooterFunc(func() {
		c.footer(pdf, tr, total)
	})
	for _, page := range plan {
		pdf.AddPageFormat(page.Orientation(), a4)
		switch page.Kind {
		case PageCover:
			c.cover(pdf, tr, draft, now, len(photos), len(scans))
		case PagePhoto:
			photoPage(pdf, tr, page)
		case PageScan:
			scanPage(pdf, tr, page)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return Output{}, fmt.Errorf("while writing pdf: %w", err)
	}
	logger.Info("compositor: %d pages, %d bytes, %d skipped", total, buf.Len(), skipped)
	return Output{Data: buf.Bytes(), Pages: total, Skipped: skipped}, nil
}

// register embeds the page images. A kept page is registered under the
// name its plan entry will use.
func register(pdf *fpdf.Fpdf, prefix string, pages []domain.NormalizedPage, skipped int) ([]domain.NormalizedPage, int) {
	kept := make([]domain.NormalizedPage, 0, len(pages))
	for _, p := range pages {
		name := fmt.Sprintf("%s-%d", prefix, len(kept))
		pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: "jpg"}, bytes.NewReader(p.Data))
		if err := pdf.Error(); err != nil {
			logger.Warn("compositor: skipping %s %q: %s", prefix, p.Caption, err)
			pdf.ClearError()
			skipped++
			continue
		}
		kept = append(kept, p)
	}
	return kept, skipped
}
