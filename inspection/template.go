package inspection

import (
	"context"
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/russross/blackfriday/v2"
)

var (
	//go:embed templates
	templateFS embed.FS

	//go:embed assets/css/output.css
	cssContent string

	//go:embed assets/favicon.svg
	faviconContent string

	//go:embed assets/js/*.js
	scriptFS embed.FS

	// Template manager with mold for layout support
	templateManager *TemplateManager = nil

	// TemplateFuncMap contains custom template functions available globally
	TemplateFuncMap = template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"markdown": func(text string) template.HTML {
			return template.HTML(blackfriday.Run([]byte(text), blackfriday.WithExtensions(blackfriday.CommonExtensions|blackfriday.HardLineBreak)))
		},
		"bytes": func(n int64) string {
			if n < 0 {
				n = 0
			}
			return humanize.Bytes(uint64(n))
		},
		"ago": func(t time.Time) string {
			return humanize.Time(t)
		},
	}
)

func init() {
	var err error
	templateManager, err = NewTemplateManager(templateFS, "templates", TemplateFuncMap)
	if err != nil {
		panic(err)
	}
}

// RenderPageWithContext renders a page with context-aware i18n. Templates
// translate with {{call .T "id"}}, {{call .TN "id" count}} and
// {{call .TD "id" "Key" value ...}}.
func RenderPageWithContext(ctx context.Context, w io.Writer, pageName string, data map[string]any) error {
	if data == nil {
		data = make(map[string]any)
	}
	data["CSS"] = template.CSS(cssContent)
	data["Lang"] = currentLocale
	data["T"] = func(id string) string {
		return LocalizeWithContext(ctx, id)
	}
	data["TN"] = func(id string, count int64) string {
		return LocalizeWithContextAndData(ctx, id, map[string]any{"Count": count})
	}
	data["TD"] = func(id string, kv ...any) string {
		values := map[string]any{}
		for i := 0; i+1 < len(kv); i += 2 {
			if k, ok := kv[i].(string); ok {
				values[k] = kv[i+1]
			}
		}
		return LocalizeWithContextAndData(ctx, id, values)
	}
	if _, ok := data["Title"]; !ok {
		data["Title"] = LocalizeWithContext(ctx, "app.title")
	}
	return templateManager.Render(w, "pages/"+pageName+".html", data)
}

// RenderPageWithRequest renders a page with request-aware i18n
// ALWAYS use this function for rendering pages to ensure proper i18n support
func RenderPageWithRequest(r *http.Request, w io.Writer, pageName string, data map[string]any) error {
	return RenderPageWithContext(r.Context(), w, pageName, data)
}

// GetFavicon returns the embedded favicon content
func GetFavicon() string {
	return faviconContent
}

// scriptHandler serves the embedded scripts below /static/.
func scriptHandler() http.Handler {
	sub, err := fs.Sub(scriptFS, "assets/js")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}
