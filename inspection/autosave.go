package inspection

import (
	"context"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/lewtec/vistoria/internal/domain"
	"github.com/lewtec/vistoria/internal/logger"
)

const (
	// DefaultFindingsMaxLength is the longest findings text accepted, in
	// characters.
	DefaultFindingsMaxLength = 5000
	// DefaultAutosaveDebounce is the quiet period before findings are saved.
	DefaultAutosaveDebounce = 500 * time.Millisecond
	// nearLimitRatio is where the counter starts warning.
	nearLimitRatio = 0.8
)

// FindingsStatus describes the length of a findings text against its limit.
type FindingsStatus struct {
	Length    int  `json:"length"`
	Max       int  `json:"max"`
	NearLimit bool `json:"near_limit"`
}

// StatusOf measures text against max.
func StatusOf(text string, max int) FindingsStatus {
	n := utf8.RuneCountInString(text)
	return FindingsStatus{
		Length:    n,
		Max:       max,
		NearLimit: float64(n) >= float64(max)*nearLimitRatio,
	}
}

// Autosaver persists findings after a quiet period. The last text wins;
// Flush saves it right away.
type Autosaver struct {
	mu      sync.Mutex
	save    func(ctx context.Context, text string) error
	delay   time.Duration
	max     int
	timer   *time.Timer
	pending *string
	lastErr error
}

func NewAutosaver(delay time.Duration, max int, save func(ctx context.Context, text string) error) *Autosaver {
	if delay <= 0 {
		delay = DefaultAutosaveDebounce
	}
	if max <= 0 {
		max = DefaultFindingsMaxLength
	}
	return &Autosaver{save: save, delay: delay, max: max}
}

// Update schedules text to be saved. Texts over the limit are rejected and
// leave the pending text untouched.
func (a *Autosaver) Update(text string) (FindingsStatus, error) {
	status := StatusOf(text, a.max)
	if status.Length > a.max {
		return status, fmt.Errorf("%w: %d characters, at most %d", domain.ErrFindingsTooLong, status.Length, a.max)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &text
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, a.fire)
	return status, nil
}

func (a *Autosaver) fire() {
	if err := a.Flush(context.Background()); err != nil {
		logger.Error("autosave: %s", err)
	}
}

// Flush saves the pending text, if any, and cancels the timer.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.pending == nil {
		return nil
	}
	text := *a.pending
	if err := a.save(ctx, text); err != nil {
		a.lastErr = err
		return fmt.Errorf("while saving findings: %w", err)
	}
	a.pending = nil
	a.lastErr = nil
	logger.Debug("autosave: saved %d characters", utf8.RuneCountInString(text))
	return nil
}

// Pending returns the text waiting to be saved.
func (a *Autosaver) Pending() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending == nil {
		return "", false
	}
	return *a.pending, true
}

// Err returns the error of the last failed save.
func (a *Autosaver) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Discard drops the pending text without saving it.
func (a *Autosaver) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

// Max returns the findings length limit.
func (a *Autosaver) Max() int {
	return a.max
}
