package inspection

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/lewtec/vistoria/internal/domain"
)

// i18nMiddleware adds the appropriate localizer to the request context
func i18nMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		localizer := GetLocalizerFromRequest(r)
		ctx := WithLocalizer(r.Context(), localizer)
		handler.ServeHTTP(w, r.WithContext(ctx))
	})
}

func HTTPLogger(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		initialTime := time.Now()
		method := r.Method
		path := r.URL.String()
		wr := NewStatusCodeRecorderResponseWriter(w)
		handler.ServeHTTP(wr, r)
		elapsed := time.Since(initialTime)
		log.Printf("http: time:%dms %d %s %s %dB", elapsed/time.Millisecond, wr.Status, method, path, wr.Bytes)
	})
}

type StatusCodeRecorderResponseWriter struct {
	http.ResponseWriter
	Status int
	Bytes  int
}

func (r *StatusCodeRecorderResponseWriter) WriteHeader(status int) {
	r.Status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *StatusCodeRecorderResponseWriter) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.Bytes += n
	return n, err
}

func NewStatusCodeRecorderResponseWriter(w http.ResponseWriter) *StatusCodeRecorderResponseWriter {
	return &StatusCodeRecorderResponseWriter{ResponseWriter: w, Status: 200}
}

// StatusFor maps an error to the HTTP status it is answered with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUploadFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrCorruptSnapshot),
		errors.Is(err, domain.ErrEmptyReport):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrFindingsTooLong):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrUnsupportedMedia):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrGenerationInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoToken):
		return http.StatusForbidden
	case errors.Is(err, ErrNoLookup):
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("error: http: while encoding response: %s", err)
	}
}

// wantsJSON is true for fetch requests from the page scripts.
func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json" || r.Header.Get("Content-Type") == "application/json"
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status >= 500 {
		log.Printf("error: http: %s %s: %s", r.Method, r.URL.Path, err)
	}
	if wantsJSON(r) {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	title := LocalizeWithContext(r.Context(), "error.generic")
	if status == http.StatusNotFound {
		title = LocalizeWithContext(r.Context(), "error.not_found")
	}
	if rerr := RenderPageWithRequest(r, w, "error", map[string]any{"Title": title, "Message": err.Error()}); rerr != nil {
		log.Printf("error: http: while rendering error page: %s", rerr)
	}
}
