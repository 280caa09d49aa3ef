package media

import (
	"sync"

	"github.com/google/uuid"
)

// Preview is a live preview payload.
type Preview struct {
	Data        []byte
	ContentType string
}

// PreviewStore hands out preview tokens. Each token stays valid until it is
// released exactly once; releasing an unknown or already released token is
// a no-op. It is safe for concurrent use.
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]Preview
	released int
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: map[string]Preview{}}
}

// Acquire stores a preview and returns its token.
func (s *PreviewStore) Acquire(data []byte, contentType string) string {
	token := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.previews[token] = Preview{Data: data, ContentType: contentType}
	return token
}

// Get returns the preview behind a live token.
func (s *PreviewStore) Get(token string) (Preview, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.previews[token]
	return p, ok
}

// Release drops a token. It reports whether the token was live.
func (s *PreviewStore) Release(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.previews[token]; !ok {
		return false
	}
	delete(s.previews, token)
	s.released++
	return true
}

// Live returns the number of unreleased tokens.
func (s *PreviewStore) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// Released returns how many tokens were released so far.
func (s *PreviewStore) Released() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.released
}
