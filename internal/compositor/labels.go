package compositor

import (
	"fmt"
	"strings"
	"time"

	"github.com/lewtec/vistoria/internal/domain"
)

// Labels holds every string printed on a report.
type Labels struct {
	Title              string
	VehicleSection     string
	YearMakeModel      string
	VIN                string
	Plate              string
	RONumber           string
	CustomerSection    string
	CustomerName       string
	FindingsSection    string
	AttachmentsSection string
	Disclaimer         string

	PhotoCount    func(n int) string
	ScanPageCount func(n int) string
	PhotoHeader   func(n, total int) string
	PageCaption   func(name string, page int) string
	PageCounter   func(page, total int) string
	Category      func(c domain.ScanCategory) string
	FormatDate    func(t time.Time) string
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf(one, n)
	}
	return fmt.Sprintf(many, n)
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		Title:              "Inspection Report",
		VehicleSection:     "Vehicle Information",
		YearMakeModel:      "Year / Make / Model",
		VIN:                "VIN",
		Plate:              "License Plate",
		RONumber:           "RO Number",
		CustomerSection:    "Customer",
		CustomerName:       "Name",
		FindingsSection:    "Technician Findings",
		AttachmentsSection: "Attachments",
		Disclaimer:         "This report is provided for informational purposes only.",
		PhotoCount: func(n int) string {
			return plural(n, "%d Inspection Photo", "%d Inspection Photos")
		},
		ScanPageCount: func(n int) string {
			return plural(n, "%d Scan Report Page", "%d Scan Report Pages")
		},
		PhotoHeader: func(n, total int) string {
			return fmt.Sprintf("Inspection Photo %d of %d", n, total)
		},
		PageCaption: func(name string, page int) string {
			return fmt.Sprintf("%s - Page %d", name, page)
		},
		PageCounter: func(page, total int) string {
			return fmt.Sprintf("Page %d of %d", page, total)
		},
		Category: func(c domain.ScanCategory) string {
			return c.Label()
		},
		FormatDate: func(t time.Time) string {
			return t.Format("January 2, 2006")
		},
	}
}

// withDefaults fills the blanks of l from the English labels.
func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	fill := func(s *string, def string) {
		if strings.TrimSpace(*s) == "" {
			*s = def
		}
	}
	fill(&l.Title, d.Title)
	fill(&l.VehicleSection, d.VehicleSection)
	fill(&l.YearMakeModel, d.YearMakeModel)
	fill(&l.VIN, d.VIN)
	fill(&l.Plate, d.Plate)
	fill(&l.RONumber, d.RONumber)
	fill(&l.CustomerSection, d.CustomerSection)
	fill(&l.CustomerName, d.CustomerName)
	fill(&l.FindingsSection, d.FindingsSection)
	fill(&l.AttachmentsSection, d.AttachmentsSection)
	fill(&l.Disclaimer, d.Disclaimer)
	if l.PhotoCount == nil {
		l.PhotoCount = d.PhotoCount
	}
	if l.ScanPageCount == nil {
		l.ScanPageCount = d.ScanPageCount
	}
	if l.PhotoHeader == nil {
		l.PhotoHeader = d.PhotoHeader
	}
	if l.PageCaption == nil {
		l.PageCaption = d.PageCaption
	}
	if l.PageCounter == nil {
		l.PageCounter = d.PageCounter
	}
	if l.Category == nil {
		l.Category = d.Category
	}
	if l.FormatDate == nil {
		l.FormatDate = d.FormatDate
	}
	return l
}
