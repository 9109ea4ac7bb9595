package watcher

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

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
)

type fakeReloader struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeReloader) ReloadCurrent(context.Context) (*glossary.ReloadReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return &glossary.ReloadReport{Generation: uint64(f.calls)}, nil
}

func (f *fakeReloader) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func start(t *testing.T, w *Watcher) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	time.Sleep(50 * time.Millisecond)
}

func TestWatcher_DebouncesBurstIntoOneReload(t *testing.T) {
	dir := t.TempDir()
	r := &fakeReloader{}
	w, err := New(dir, "", 100*time.Millisecond, r)
	require.NoError(t, err)
	start(t, w)

	path := filepath.Join(dir, "acth.json")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte(`{"names":["ACTH"]}`), 0o644))
	}

	require.Eventually(t, func() bool { return r.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, r.count())
	assert.Equal(t, int64(1), w.Reloads())
}

func TestWatcher_IgnoresNonDocuments(t *testing.T) {
	dir := t.TempDir()
	r := &fakeReloader{}
	w, err := New(dir, "", 50*time.Millisecond, r)
	require.NoError(t, err)
	start(t, w)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".acth.json.swp"), []byte("x"), 0o644))

	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, r.count())
}

func TestWatcher_PaletteChangeTriggersReload(t *testing.T) {
	dir := t.TempDir()
	paletteDir := filepath.Join(dir, "_palette")
	require.NoError(t, os.Mkdir(paletteDir, 0o755))
	palette := filepath.Join(paletteDir, "tags.json")

	r := &fakeReloader{}
	w, err := New(dir, palette, 50*time.Millisecond, r)
	require.NoError(t, err)
	start(t, w)

	require.NoError(t, os.WriteFile(palette, []byte(`{"ID":{"accent":"#f00"}}`), 0o644))
	require.Eventually(t, func() bool { return r.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_MissingDirectory(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "absent"), "", 0, &fakeReloader{})
	assert.Error(t, err)
}

func TestRelevant(t *testing.T) {
	w := &Watcher{termsDir: "/terms", palettePath: "/terms/_palette/tags.json"}

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"json write", fsnotify.Event{Name: "/terms/a.json", Op: fsnotify.Write}, true},
		{"yaml create", fsnotify.Event{Name: "/terms/a.yml", Op: fsnotify.Create}, true},
		{"remove", fsnotify.Event{Name: "/terms/a.yaml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "/terms/a.json", Op: fsnotify.Chmod}, false},
		{"hidden", fsnotify.Event{Name: "/terms/.a.json", Op: fsnotify.Write}, false},
		{"backup", fsnotify.Event{Name: "/terms/a.json~", Op: fsnotify.Write}, false},
		{"palette", fsnotify.Event{Name: "/terms/_palette/tags.json", Op: fsnotify.Write}, true},
		{"other palette dir file", fsnotify.Event{Name: "/terms/_palette/old.json", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.relevant(tt.event))
		})
	}
}
