package ingest

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/ansuz/internal/note"
	"github.com/starford/ansuz/internal/store"
)

// Ingestor imports Markdown files into the store. A file whose title
// matches an existing note updates that note; otherwise a new note is
// created.
type Ingestor struct {
	store  *store.Store
	logger *slog.Logger
}

// New creates an Ingestor over the given store.
func New(s *store.Store, logger *slog.Logger) *Ingestor {
	return &Ingestor{store: s, logger: logger}
}

// File imports a single Markdown file. A file with neither a title nor
// a body is skipped without error.
func (in *Ingestor) File(path string) (note.Note, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return note.Note{}, false, err
	}

	p := Parse(data)
	if p.Title == "" && strings.TrimSpace(p.Body) == "" {
		return note.Note{}, false, nil
	}
	if p.Title == "" {
		// Fall back to the file name so an untitled note stays findable.
		p.Title = strings.TrimSuffix(filepath.Base(path), ".md")
	}

	n := note.Note{Title: p.Title, Body: p.Body, Tags: p.Tags, Color: p.Color}
	if existing, ok := in.store.ByTitle(p.Title); ok {
		n.ID = existing.ID
	}

	saved, err := in.store.Upsert(n)
	if err != nil {
		return saved, true, err
	}
	return saved, true, nil
}

// Dir walks root and imports every .md file. Per-file failures are
// logged and skipped; the walk itself continues.
func (in *Ingestor) Dir(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}
		if _, imported, err := in.File(path); err != nil {
			in.logger.Warn("ingest: import failed", slog.String("path", path), slog.String("error", err.Error()))
		} else if imported {
			count++
		}
		return nil
	})
	return count, err
}

// EventCallback is invoked after a watcher-driven import.
type EventCallback func(n note.Note)

// Watch imports .md files as they are created or written under root
// until ctx is cancelled. New subdirectories are added to the watch
// list. Writes are debounced per path so editors that write in bursts
// trigger one import.
func (in *Ingestor) Watch(ctx context.Context, root string, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	in.logger.Info("ingest: watcher started", slog.String("root", root))

	const debounce = 200 * time.Millisecond
	timers := make(map[string]*time.Timer)
	fire := make(chan string, 64)

	for {
		select {
		case <-ctx.Done():
			for _, t := range timers {
				t.Stop()
			}
			in.logger.Info("ingest: watcher stopped")
			return nil

		case path := <-fire:
			delete(timers, path)
			n, imported, err := in.File(path)
			if err != nil {
				in.logger.Warn("ingest: import failed", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			if imported {
				in.logger.Debug("ingest: imported", slog.String("path", path), slog.String("id", n.ID))
				if cb != nil {
					cb(n)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						in.logger.Warn("ingest: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, ".md") {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			path := ev.Name
			if t, ok := timers[path]; ok {
				t.Reset(debounce)
			} else {
				timers[path] = time.AfterFunc(debounce, func() { fire <- path })
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.logger.Error("ingest: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
