package inspection

import (
	"context"
	"net/http"
	"sync"

	"github.com/lewtec/vistoria/internal/domain"
)

// GeneratedReport is a composed PDF with its stored record.
type GeneratedReport struct {
	Report  domain.Report
	Data    []byte
	Skipped int
}

// ReportCache keeps the last generated report of each draft until the draft
// changes.
type ReportCache struct {
	mu      sync.RWMutex
	reports map[string]*GeneratedReport
}

func NewReportCache() *ReportCache {
	return &ReportCache{reports: map[string]*GeneratedReport{}}
}

func (c *ReportCache) Get(draftID string) (*GeneratedReport, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.reports[draftID]
	return r, ok
}

func (c *ReportCache) Put(draftID string, r *GeneratedReport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports[draftID] = r
}

// Invalidate drops the cached report of a draft.
func (c *ReportCache) Invalidate(draftID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.reports, draftID)
}

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const requestCacheKey contextKey = "request_cache"

// DraftSummary is a draft with its media counts, as shown on the index.
type DraftSummary struct {
	Draft *domain.ReportDraft
	Stats *domain.DraftStats
}

// RequestCache holds cached data for a single HTTP request
type RequestCache struct {
	mu     sync.RWMutex
	drafts []DraftSummary
}

// NewRequestCache creates a new request cache
func NewRequestCache() *RequestCache {
	return &RequestCache{}
}

// GetDrafts returns cached draft summaries if available
func (rc *RequestCache) GetDrafts() ([]DraftSummary, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if rc.drafts != nil {
		return rc.drafts, true
	}
	return nil, false
}

// SetDrafts caches the draft summaries
func (rc *RequestCache) SetDrafts(drafts []DraftSummary) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if drafts == nil {
		drafts = []DraftSummary{}
	}
	rc.drafts = drafts
}

// WithRequestCache adds a request cache to the context
func WithRequestCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, requestCacheKey, NewRequestCache())
}

// GetRequestCache retrieves the request cache from context
func GetRequestCache(ctx context.Context) *RequestCache {
	if cache, ok := ctx.Value(requestCacheKey).(*RequestCache); ok {
		return cache
	}
	return nil
}

// requestCacheMiddleware adds a request cache to the context for each request
func requestCacheMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithRequestCache(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
