// Package watcher reloads the glossary when term documents or the tag
// palette change on disk. Bursts of events (editors usually write a file
// several times per save) are collapsed into one reload.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/internal/glossary/term"
	"github.com/Adithya-Monish-Kumar-K/Glossary-Term-Engine/pkg/logger"
)

// Reloader rebuilds the glossary with the mute tags already in force.
// *glossary.Engine implements it.
type Reloader interface {
	ReloadCurrent(ctx context.Context) (*glossary.ReloadReport, error)
}

type Watcher struct {
	fw          *fsnotify.Watcher
	termsDir    string
	palettePath string
	debounce    time.Duration
	reloader    Reloader
	reloads     atomic.Int64
	logger      *slog.Logger
}

// New watches termsDir and, when it lives elsewhere, the directory holding
// the palette file.
func New(termsDir, palettePath string, debounce time.Duration, reloader Reloader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fw.Add(termsDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", termsDir, err)
	}
	if palettePath != "" {
		paletteDir := filepath.Dir(palettePath)
		if filepath.Clean(paletteDir) != filepath.Clean(termsDir) {
			if err := fw.Add(paletteDir); err != nil {
				// The palette is optional; its directory may not exist yet.
				slog.Default().Warn("palette directory not watched", "path", paletteDir, "error", err)
			}
		}
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		fw:          fw,
		termsDir:    termsDir,
		palettePath: palettePath,
		debounce:    debounce,
		reloader:    reloader,
		logger:      logger.WithComponent("glossary-watcher"),
	}, nil
}

// Run consumes file events until ctx is cancelled, then releases the
// underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	pending := false

	w.logger.Info("watching term documents", "dir", w.termsDir, "debounce", w.debounce)
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("term document changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)

		case <-timer.C:
			if !pending {
				continue
			}
			pending = false
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	report, err := w.reloader.ReloadCurrent(ctx)
	if err != nil {
		w.logger.Error("reload after file change failed", "error", err)
		return
	}
	w.reloads.Add(1)
	w.logger.Info("glossary reloaded after file change",
		"generation", report.Generation,
		"terms", report.Terms,
		"added", len(report.Diff.Added),
		"updated", len(report.Diff.Updated),
		"removed", len(report.Diff.Removed),
	)
}

// Reloads counts reloads triggered by this watcher.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.palettePath != "" && filepath.Clean(event.Name) == filepath.Clean(w.palettePath) {
		return true
	}
	if filepath.Clean(filepath.Dir(event.Name)) != filepath.Clean(w.termsDir) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	return term.IsDocument(base)
}
