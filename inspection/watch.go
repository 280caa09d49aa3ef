package inspection

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/lewtec/vistoria/internal/logger"
)

// DefaultSettleDelay is how long a file must stay unchanged before it is
// ingested. Cameras and scanners write in several passes.
const DefaultSettleDelay = 750 * time.Millisecond

// InboxWatcher feeds the files dropped below a directory to an ingester.
type InboxWatcher struct {
	Root     string
	Ingester *Ingester
	Settle   time.Duration
	// OnResult is called after every ingested file. It may be nil.
	OnResult func(*IngestResult, error)

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func NewInboxWatcher(root string, in *Ingester) *InboxWatcher {
	return &InboxWatcher{Root: root, Ingester: in, Settle: DefaultSettleDelay, pending: map[string]*time.Timer{}}
}

func hidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

// handleEvent returns the file an event asks to ingest. Directories are
// reported separately so they can be watched too.
func (w *InboxWatcher) handleEvent(ev fsnotify.Event) (file string, dir bool, ok bool) {
	if hidden(ev.Name) {
		return "", false, false
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false, false
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return "", false, false
	}
	if info.IsDir() {
		return ev.Name, true, ev.Has(fsnotify.Create)
	}
	return ev.Name, false, true
}

// Scan ingests the files already in the inbox.
func (w *InboxWatcher) Scan(ctx context.Context) error {
	return filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != w.Root && hidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		w.ingest(ctx, path)
		return nil
	})
}

func (w *InboxWatcher) ingest(ctx context.Context, path string) {
	res, err := w.Ingester.IngestFile(ctx, path)
	switch {
	case err != nil:
		logger.Warn("watch: %s: %s", path, err)
	case res.Duplicate:
		logger.Debug("watch: %s already ingested", path)
	default:
		logger.Info("watch: ingested %s", path)
	}
	if w.OnResult != nil {
		w.OnResult(res, err)
	}
}

// schedule ingests path once it stopped changing for the settle delay.
func (w *InboxWatcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() == nil {
			w.ingest(ctx, path)
		}
	})
}

func (w *InboxWatcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Run scans the inbox and then watches it until ctx is done.
func (w *InboxWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("while creating watcher: %w", err)
	}
	defer watcher.Close()
	defer w.stopPending()

	err = filepath.WalkDir(w.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.Root && hidden(path) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("while watching %s: %w", w.Root, err)
	}
	if err := w.Scan(ctx); err != nil {
		return err
	}
	logger.Info("watch: watching %s", w.Root)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			path, dir, ok := w.handleEvent(ev)
			if !ok {
				continue
			}
			if dir {
				if err := watcher.Add(path); err != nil {
					logger.Warn("watch: while watching %s: %s", path, err)
				}
				continue
			}
			w.schedule(ctx, path)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch: %s", err)
		}
	}
}
