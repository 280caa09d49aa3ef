package inspection

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxWatcherHandleEvent(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(dir string) string
		op        fsnotify.Op
		wantOK    bool
		wantIsDir bool
	}{
		{
			name:   "created file",
			setup:  func(dir string) string { return writeFile(t, dir, "a.jpg") },
			op:     fsnotify.Create,
			wantOK: true,
		},
		{
			name:   "written file",
			setup:  func(dir string) string { return writeFile(t, dir, "a.jpg") },
			op:     fsnotify.Write,
			wantOK: true,
		},
		{
			name:   "chmod is ignored",
			setup:  func(dir string) string { return writeFile(t, dir, "a.jpg") },
			op:     fsnotify.Chmod,
			wantOK: false,
		},
		{
			name:   "removed file is ignored",
			setup:  func(dir string) string { return filepath.Join(dir, "gone.jpg") },
			op:     fsnotify.Remove,
			wantOK: false,
		},
		{
			name:   "hidden file is ignored",
			setup:  func(dir string) string { return writeFile(t, dir, ".partial.jpg") },
			op:     fsnotify.Create,
			wantOK: false,
		},
		{
			name: "created directory",
			setup: func(dir string) string {
				p := filepath.Join(dir, "brake")
				require.NoError(t, os.Mkdir(p, 0755))
				return p
			},
			op:        fsnotify.Create,
			wantOK:    true,
			wantIsDir: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := tt.setup(dir)
			w := NewInboxWatcher(dir, nil)
			got, isDir, ok := w.handleEvent(fsnotify.Event{Name: path, Op: tt.op})
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, path, got)
				assert.Equal(t, tt.wantIsDir, isDir)
			}
		})
	}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
	return p
}

func TestInboxWatcherScan(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "task-1")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "front.jpg"), encodeJPEG(t, 30, 20), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden.jpg"), encodeJPEG(t, 31, 20), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alignment"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "alignment", "sheet.png"), encodePNG(t, 20, 30), 0644))

	w := NewInboxWatcher(dir, NewIngester(s))
	var results int
	w.OnResult = func(_ *IngestResult, err error) {
		require.NoError(t, err)
		results++
	}
	require.NoError(t, w.Scan(context.Background()))
	assert.Equal(t, 2, results)
	assert.Len(t, s.Draft().Photos, 1)
	assert.Len(t, s.Draft().Scans, 1)
}

func TestInboxWatcherRun(t *testing.T) {
	f := newFixture(t)
	s := f.session(t, "task-1")
	dir := t.TempDir()

	w := NewInboxWatcher(dir, NewIngester(s))
	w.Settle = 20 * time.Millisecond
	var mu sync.Mutex
	var ingested []string
	w.OnResult = func(res *IngestResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err == nil && !res.Duplicate {
			ingested = append(ingested, filepath.Base(res.Path))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "door.jpg"), encodeJPEG(t, 30, 20), 0644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) == 1
	}, 5*time.Second, 20*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []string{"door.jpg"}, ingested)
	mu.Unlock()

	cancel()
	require.NoError(t, <-done)
}
