package inspection

import (
	"context"
	"embed"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/lewtec/vistoria/internal/compositor"
	"github.com/lewtec/vistoria/internal/domain"
	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localesFS embed.FS

var (
	bundle        *i18n.Bundle
	defaultLocal  *i18n.Localizer
	currentLocale string = "en"
)

type localizerKey struct{}

func init() {
	bundle = i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, locale := range Languages {
		data, err := localesFS.ReadFile("locales/" + locale + ".json")
		if err != nil {
			log.Printf("Warning: failed to read locale file %s: %v", locale, err)
			continue
		}

		_, err = bundle.ParseMessageFileBytes(data, locale+".json")
		if err != nil {
			log.Printf("Warning: failed to parse locale file %s: %v", locale, err)
		}
	}

	defaultLocal = i18n.NewLocalizer(bundle, currentLocale)
}

// SetLanguage sets the fallback language of pages and reports
func SetLanguage(lang string) {
	currentLocale = lang
	defaultLocal = i18n.NewLocalizer(bundle, currentLocale)
}

// NewLocalizer returns a localizer for the given languages, falling back to
// the configured one.
func NewLocalizer(langs ...string) *i18n.Localizer {
	return i18n.NewLocalizer(bundle, append(langs, currentLocale)...)
}

// GetLocalizerFromContext retrieves the localizer from context, or returns default
func GetLocalizerFromContext(ctx context.Context) *i18n.Localizer {
	if ctx == nil {
		return defaultLocal
	}

	if localizer, ok := ctx.Value(localizerKey{}).(*i18n.Localizer); ok {
		return localizer
	}
	return defaultLocal
}

// WithLocalizer adds a localizer to the context
func WithLocalizer(ctx context.Context, localizer *i18n.Localizer) context.Context {
	return context.WithValue(ctx, localizerKey{}, localizer)
}

// RequestLanguages returns the languages asked for by a request: the lang
// query parameter first, then Accept-Language in preference order.
func RequestLanguages(r *http.Request) []string {
	var langs []string
	if lang := r.URL.Query().Get("lang"); lang != "" {
		langs = append(langs, lang)
	}
	tags, _, err := language.ParseAcceptLanguage(r.Header.Get("Accept-Language"))
	if err == nil {
		for _, tag := range tags {
			langs = append(langs, tag.String())
		}
	}
	return langs
}

// GetLocalizerFromRequest creates a localizer based on the request languages
func GetLocalizerFromRequest(r *http.Request) *i18n.Localizer {
	return NewLocalizer(RequestLanguages(r)...)
}

func localize(l *i18n.Localizer, id string, data map[string]any, count any) (string, bool) {
	msg, err := l.Localize(&i18n.LocalizeConfig{
		MessageID:    id,
		TemplateData: data,
		PluralCount:  count,
	})
	if err != nil {
		return "", false
	}
	return msg, true
}

// T translates a message ID using the default localizer
func T(messageID string) string {
	if msg, ok := localize(defaultLocal, messageID, nil, nil); ok {
		return msg
	}
	return messageID
}

// LocalizeWithContext translates a message using the localizer from context
func LocalizeWithContext(ctx context.Context, messageID string) string {
	return LocalizeWithContextAndData(ctx, messageID, nil)
}

// LocalizeWithContextAndData translates a message with template data using
// context. A Count entry in data selects the plural form.
func LocalizeWithContextAndData(ctx context.Context, messageID string, data map[string]any) string {
	var count any
	if c, ok := data["Count"]; ok {
		count = c
	}
	if msg, ok := localize(GetLocalizerFromContext(ctx), messageID, data, count); ok {
		return msg
	}
	return messageID
}

// ReportLabels builds the report labels of a language. Messages missing from
// the locale keep their English default. Non-empty overrides from the
// config replace the title and the disclaimer.
func ReportLabels(lang string, cfg ReportConfig) compositor.Labels {
	l := NewLocalizer(lang)
	labels := compositor.DefaultLabels()

	text := map[string]*string{
		"report.title":               &labels.Title,
		"report.vehicle_section":     &labels.VehicleSection,
		"report.year_make_model":     &labels.YearMakeModel,
		"report.vin":                 &labels.VIN,
		"report.plate":               &labels.Plate,
		"report.ro_number":           &labels.RONumber,
		"report.customer_section":    &labels.CustomerSection,
		"report.customer_name":       &labels.CustomerName,
		"report.findings_section":    &labels.FindingsSection,
		"report.attachments_section": &labels.AttachmentsSection,
		"report.disclaimer":          &labels.Disclaimer,
	}
	for id, field := range text {
		if msg, ok := localize(l, id, nil, nil); ok {
			*field = msg
		}
	}
	if cfg.Title != "" {
		labels.Title = cfg.Title
	}
	if cfg.Disclaimer != "" {
		labels.Disclaimer = cfg.Disclaimer
	}

	defaults := compositor.DefaultLabels()
	labels.PhotoCount = func(n int) string {
		if msg, ok := localize(l, "report.photo_count", map[string]any{"Count": n}, n); ok {
			return msg
		}
		return defaults.PhotoCount(n)
	}
	labels.ScanPageCount = func(n int) string {
		if msg, ok := localize(l, "report.scan_page_count", map[string]any{"Count": n}, n); ok {
			return msg
		}
		return defaults.ScanPageCount(n)
	}
	labels.PhotoHeader = func(n, total int) string {
		if msg, ok := localize(l, "report.photo_header", map[string]any{"N": n, "Total": total}, nil); ok {
			return msg
		}
		return defaults.PhotoHeader(n, total)
	}
	labels.PageCaption = func(name string, page int) string {
		if msg, ok := localize(l, "report.page_caption", map[string]any{"Name": name, "Page": page}, nil); ok {
			return msg
		}
		return defaults.PageCaption(name, page)
	}
	labels.PageCounter = func(page, total int) string {
		if msg, ok := localize(l, "report.page_counter", map[string]any{"Page": page, "Total": total}, nil); ok {
			return msg
		}
		return defaults.PageCounter(page, total)
	}
	labels.Category = func(c domain.ScanCategory) string {
		if msg, ok := localize(l, "scan.category."+string(c), nil, nil); ok {
			return msg
		}
		return c.Label()
	}
	layout := "January 2, 2006"
	if msg, ok := localize(l, "report.date_format", nil, nil); ok {
		layout = msg
	}
	labels.FormatDate = func(t time.Time) string {
		return t.Format(layout)
	}
	return labels
}
