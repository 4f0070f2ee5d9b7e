package ruleset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/dgallion1/docsect/internal/sections"
	"gopkg.in/fsnotify.v1"
)

// Watcher owns the Sectionizer built from a sections file and rebuilds it when the
// file changes. Readers always see a complete, immutable Sectionizer.
type Watcher struct {
	path    string
	markers []string
	log     *slog.Logger

	mu      sync.Mutex // serializes reloads
	current atomic.Pointer[sections.Sectionizer]
}

// NewWatcher loads path once and returns a Watcher serving the result.
func NewWatcher(path string, extraMarkers []string, log *slog.Logger) (*Watcher, error) {
	w := &Watcher{
		path:    path,
		markers: extraMarkers,
		log:     log,
	}
	if err := w.Reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Path returns the watched sections file.
func (w *Watcher) Path() string {
	return w.path
}

// Current returns the active Sectionizer.
func (w *Watcher) Current() *sections.Sectionizer {
	return w.current.Load()
}

// Reload re-reads the sections file. On failure the previous Sectionizer stays active.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	f, err := Load(w.path)
	if err != nil {
		return fmt.Errorf("load sections file %s: %w", w.path, err)
	}
	for _, msg := range f.Warnings {
		w.log.Warn("skipped sections config row", "file", w.path, "detail", msg)
	}

	s, warnings := Build(f, w.markers)
	for _, rw := range warnings {
		w.log.Warn("skipped section rule", "file", w.path, "index", rw.Index, "id", rw.ID, "reason", rw.Reason)
	}
	if s.Table().Len() == 0 {
		w.log.Warn("sections file has no usable rules; every document will be a single segment", "file", w.path)
	}

	w.current.Store(s)
	w.log.Info("loaded section rules", "file", w.path, "rules", s.Table().Len(), "end_markers", len(s.EndMarkers()))
	return nil
}

// Watch reloads the file whenever it is written, created, or replaced, until ctx ends.
// The parent directory is watched so editors that save via rename are picked up.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching directory %s: %w", dir, err)
	}

	go w.watchLoop(ctx, fw)
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context, fw *fsnotify.Watcher) {
	defer fw.Close()
	target := filepath.Clean(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if err := w.Reload(); err != nil {
				w.log.Error("reload section rules", "error", err)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("sections watcher error", "error", err)
		}
	}
}
