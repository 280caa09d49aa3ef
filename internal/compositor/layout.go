package compositor

import (
	"math"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/lewtec/vistoria/internal/domain"
)

// Page geometry in millimetres.
const (
	coverMargin = 14.0
	imageMargin = 7.0
	// footerReserve is kept free at the bottom of every page.
	footerReserve = 16.0
	ptToMM        = 25.4 / 72
	lineSpacing   = 1.5
)

var a4 = fpdf.SizeType{Wd: 210, Ht: 297}

// Findings start at findingsMaxPt and shrink one point at a time down to
// findingsMinPt before lines are dropped.
const (
	findingsMaxPt = 11.0
	findingsMinPt = 8.0
	ellipsis      = "..."
)

type rgb struct{ r, g, b int }

var (
	navy      = rgb{30, 58, 138}
	blue      = rgb{37, 99, 235}
	gray      = rgb{107, 114, 128}
	lightGray = rgb{156, 163, 175}
	rule      = rgb{229, 231, 235}
	ink       = rgb{17, 24, 39}
	slate     = rgb{55, 65, 81}
)

func textColor(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetTextColor(c.r, c.g, c.b)
}

func drawColor(pdf *fpdf.Fpdf, c rgb) {
	pdf.SetDrawColor(c.r, c.g, c.b)
}

func lineHeight(pt float64) float64 {
	return pt * ptToMM * lineSpacing
}

func (c *Compositor) footer(pdf *fpdf.Fpdf, tr func(string) string, total int) {
	w, h := pdf.GetPageSize()
	m := imageMargin
	drawColor(pdf, rule)
	pdf.SetLineWidth(0.3)
	pdf.Line(m, h-12, w-m, h-12)
	pdf.SetFont("Helvetica", "", 8)
	textColor(pdf, lightGray)
	pdf.SetXY(m, h-10)
	pdf.CellFormat((w-2*m)*0.7, 4, tr(c.labels.Disclaimer), "", 0, "L", false, 0, "")
	pdf.SetXY(m, h-10)
	pdf.CellFormat(w-2*m, 4, tr(c.labels.PageCounter(pdf.PageNo(), total)), "", 0, "R", false, 0, "")
}

func section(pdf *fpdf.Fpdf, tr func(string) string, title string) {
	w, _ := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "B", 14)
	textColor(pdf, navy)
	pdf.SetX(coverMargin)
	pdf.CellFormat(0, 8, tr(title), "", 1, "L", false, 0, "")
	y := pdf.GetY()
	drawColor(pdf, rule)
	pdf.SetLineWidth(0.3)
	pdf.Line(coverMargin, y, w-coverMargin, y)
	pdf.SetY(y + 2)
}

type infoItem struct {
	label string
	value string
}

// infoGrid prints label/value pairs in two columns.
func infoGrid(pdf *fpdf.Fpdf, tr func(string) string, items []infoItem) {
	w, _ := pdf.GetPageSize()
	col := (w - 2*coverMargin) / 2
	y := pdf.GetY()
	for i, item := range items {
		x := coverMargin + float64(i%2)*col
		pdf.SetXY(x, y)
		pdf.SetFont("Helvetica", "", 8)
		textColor(pdf, gray)
		pdf.CellFormat(col, 4, tr(strings.ToUpper(item.label)), "", 0, "L", false, 0, "")
		pdf.SetXY(x, y+4)
		pdf.SetFont("Helvetica", "", 11)
		textColor(pdf, ink)
		pdf.CellFormat(col, 6, tr(item.value), "", 0, "L", false, 0, "")
		if i%2 == 1 || i == len(items)-1 {
			y += 12
		}
	}
	pdf.SetXY(coverMargin, y+2)
}

func (c *Compositor) cover(pdf *fpdf.Fpdf, tr func(string) string, draft domain.ReportDraft, now time.Time, photos, scans int) {
	w, h := pdf.GetPageSize()
	pdf.SetXY(coverMargin, coverMargin)
	pdf.SetFont("Helvetica", "B", 24)
	textColor(pdf, navy)
	pdf.CellFormat(0, 11, tr(c.labels.Title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	textColor(pdf, gray)
	pdf.CellFormat(0, 6, tr(c.labels.FormatDate(now)), "", 1, "L", false, 0, "")
	y := pdf.GetY() + 4
	drawColor(pdf, blue)
	pdf.SetLineWidth(0.7)
	pdf.Line(coverMargin, y, w-coverMargin, y)
	pdf.SetY(y + 6)

	var vehicle []infoItem
	if v := draft.Vehicle; v != nil {
		vehicle = append(vehicle, infoItem{c.labels.YearMakeModel, v.Description()})
		if v.VIN != "" {
			vehicle = append(vehicle, infoItem{c.labels.VIN, v.VIN})
		}
		if v.Plate != "" {
			vehicle = append(vehicle, infoItem{c.labels.Plate, v.Plate})
		}
	}
	if draft.RONumber != "" {
		vehicle = append(vehicle, infoItem{c.labels.RONumber, draft.RONumber})
	}
	if len(vehicle) > 0 {
		section(pdf, tr, c.labels.VehicleSection)
		infoGrid(pdf, tr, vehicle)
	}
	if name := strings.TrimSpace(draft.CustomerName); name != "" {
		section(pdf, tr, c.labels.CustomerSection)
		infoGrid(pdf, tr, []infoItem{{c.labels.CustomerName, name}})
	}

	var attachments []string
	if photos > 0 {
		attachments = append(attachments, c.labels.PhotoCount(photos))
	}
	if scans > 0 {
		attachments = append(attachments, c.labels.ScanPageCount(scans))
	}
	attachmentsHeight := 0.0
	if len(attachments) > 0 {
		attachmentsHeight = 12 + float64(len(attachments))*6
	}

	if findings := strings.TrimSpace(draft.Findings); findings != "" {
		section(pdf, tr, c.labels.FindingsSection)
		width := w - 2*coverMargin
		avail := h - footerReserve - attachmentsHeight - pdf.GetY() - 4
		size, lines := fitText(pdf, tr(findings), width, avail)
		pdf.SetFont("Helvetica", "", size)
		textColor(pdf, slate)
		for _, line := range lines {
			pdf.SetX(coverMargin)
			pdf.CellFormat(width, lineHeight(size), string(line), "", 1, "L", false, 0, "")
		}
		pdf.SetY(pdf.GetY() + 4)
	}

	if len(attachments) > 0 {
		section(pdf, tr, c.labels.AttachmentsSection)
		pdf.SetFont("Helvetica", "", 11)
		textColor(pdf, ink)
		for _, a := range attachments {
			pdf.SetX(coverMargin)
			pdf.CellFormat(0, 6, tr("- "+a), "", 1, "L", false, 0, "")
		}
	}
}

// fitText wraps text to width, shrinking the font until it fits in avail.
// At the smallest size the overflow is cut and the last line ends with an
// ellipsis. text must already be translated to the core font encoding.
func fitText(pdf *fpdf.Fpdf, text string, width, avail float64) (float64, [][]byte) {
	var lines [][]byte
	for size := findingsMaxPt; size >= findingsMinPt; size-- {
		pdf.SetFont("Helvetica", "", size)
		lines = pdf.SplitLines([]byte(text), width)
		if float64(len(lines))*lineHeight(size) <= avail {
			return size, lines
		}
	}
	max := int(math.Floor(avail / lineHeight(findingsMinPt)))
	if max < 1 {
		max = 1
	}
	if max >= len(lines) {
		return findingsMinPt, lines
	}
	lines = lines[:max]
	last := strings.TrimRight(string(lines[max-1]), " ")
	for len(last) > 0 && pdf.GetStringWidth(last+ellipsis) > width-2 {
		last = last[:len(last)-1]
	}
	lines[max-1] = []byte(last + ellipsis)
	return findingsMinPt, lines
}

// placeImage draws the page image as large as fits in the box, centered,
// keeping its aspect ratio. It returns the bottom edge of the image.
func placeImage(pdf *fpdf.Fpdf, page PagePlan, x, y, bw, bh float64) float64 {
	img := page.Image
	if img == nil || img.Width <= 0 || img.Height <= 0 || bw <= 0 || bh <= 0 {
		return y
	}
	s := math.Min(bw/float64(img.Width), bh/float64(img.Height))
	iw, ih := float64(img.Width)*s, float64(img.Height)*s
	ix, iy := x+(bw-iw)/2, y+(bh-ih)/2
	pdf.ImageOptions(page.imageName, ix, iy, iw, ih, false, fpdf.ImageOptions{ImageType: "jpg"}, 0, "")
	return iy + ih
}

func photoPage(pdf *fpdf.Fpdf, tr func(string) string, page PagePlan) {
	w, h := pdf.GetPageSize()
	m := imageMargin
	pdf.SetXY(m, m+2)
	pdf.SetFont("Helvetica", "B", 12)
	textColor(pdf, navy)
	pdf.CellFormat(w-2*m, 7, tr(page.Header), "", 0, "C", false, 0, "")

	top := m + 12
	captionHeight := 0.0
	if page.Caption != "" {
		captionHeight = 8
	}
	bottom := placeImage(pdf, page, m, top, w-2*m, h-top-captionHeight-footerReserve)
	if page.Caption != "" {
		pdf.SetXY(m, bottom+2)
		pdf.SetFont("Helvetica", "", 10)
		textColor(pdf, gray)
		pdf.CellFormat(w-2*m, 5, tr(page.Caption), "", 0, "C", false, 0, "")
	}
}

func scanPage(pdf *fpdf.Fpdf, tr func(string) string, page PagePlan) {
	w, h := pdf.GetPageSize()
	m := imageMargin
	pdf.SetXY(m, m+2)
	pdf.SetFont("Helvetica", "B", 11)
	textColor(pdf, slate)
	pdf.CellFormat(w-2*m, 6, tr(page.Header), "", 0, "C", false, 0, "")
	pdf.SetXY(m, m+8)
	pdf.SetFont("Helvetica", "", 9)
	textColor(pdf, gray)
	pdf.CellFormat(w-2*m, 5, tr(page.Caption), "", 0, "C", false, 0, "")

	top := m + 16
	placeImage(pdf, page, m, top, w-2*m, h-top-footerReserve)
}
