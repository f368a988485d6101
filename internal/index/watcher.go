package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/synamic/internal/apperr"
	"github.com/starford/synamic/internal/content"
	"github.com/starford/synamic/internal/storage"
)

// Change kinds reported to an EventCallback.
const (
	KindCreated = "created"
	KindUpdated = "updated"
	KindDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// Change describes one watcher-driven index change. Model and Title are
// set for valid files; Error is set when the file was recorded invalid.
type Change struct {
	Kind   string
	Path   string
	Model  string
	Title  string
	Status string
	Error  string
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Change)

// Watch starts an fsnotify watcher on the content root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each index mutation, including files recorded as invalid.
//
// New directories created at runtime are automatically added to the watch
// list. Rename events trigger a reconciliation pass that removes stale
// index entries whose files no longer exist on disk.
func Watch(ctx context.Context, db *DB, store storage.Provider, loader *content.Loader, logger *slog.Logger, cb EventCallback) error {
	root := store.Root()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	// reconcileTimer debounces rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileAfterRename(db, store, loader, logger, cb)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			absPath := ev.Name

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					// Index any content files already in the new directory.
					indexNewDir(db, store, loader, absPath, logger, cb)
					continue
				}
			}

			if !strings.HasSuffix(absPath, content.Ext) {
				continue
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := KindUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = KindCreated
				}
				if ch, ok := indexPath(db, store, loader, rel, kind, logger); ok {
					logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
					if cb != nil {
						cb(ch)
					}
				}

			case ev.Op&fsnotify.Remove != 0:
				if delErr := db.DeleteContent(rel); delErr != nil {
					logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
					continue
				}
				logger.Debug("watcher: deleted", slog.String("path", rel))
				if cb != nil {
					cb(Change{Kind: KindDeleted, Path: rel})
				}

			case ev.Op&fsnotify.Rename != 0:
				// fsnotify fires Rename on the OLD path only. The new
				// path will arrive as a separate Create event (if it
				// stays within a watched dir). We delete the old entry
				// immediately and schedule a short reconciliation pass
				// to catch any stragglers.
				if delErr := db.DeleteContent(rel); delErr != nil {
					logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", delErr.Error()))
				} else {
					logger.Debug("watcher: rename old deleted", slog.String("path", rel))
					if cb != nil {
						cb(Change{Kind: KindDeleted, Path: rel})
					}
				}
				scheduleReconcile()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// indexPath reads and indexes rel. It reports whether the index changed;
// a file recorded as invalid counts as a change.
func indexPath(db *DB, store storage.Provider, loader *content.Loader, rel, kind string, logger *slog.Logger) (Change, bool) {
	data, err := store.Read(rel)
	if err != nil {
		logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return Change{}, false
	}
	doc, err := IndexFile(db, loader, rel, data)
	if err != nil {
		logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		if errors.Is(err, apperr.ErrInvalid) || errors.Is(err, apperr.ErrConflict) {
			return Change{Kind: kind, Path: rel, Status: StatusInvalid, Error: err.Error()}, true
		}
		return Change{}, false
	}
	return Change{Kind: kind, Path: rel, Model: doc.Model, Title: doc.Title, Status: StatusValid}, true
}

// reconcileAfterRename does a lightweight sync using batch lookups:
// finds index entries without a corresponding file on disk and removes them,
// and finds on-disk files that are not indexed and indexes them.
func reconcileAfterRename(db *DB, store storage.Provider, loader *content.Loader, logger *slog.Logger, cb EventCallback) {
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}

	metas, err := store.List("", content.Ext)
	if err != nil {
		logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if delErr := db.DeleteContent(p); delErr == nil {
				logger.Debug("reconcile: removed stale", slog.String("path", p))
				if cb != nil {
					cb(Change{Kind: KindDeleted, Path: p})
				}
			}
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if ch, ok := indexPath(db, store, loader, p, KindCreated, logger); ok {
			logger.Debug("reconcile: indexed new", slog.String("path", p))
			if cb != nil {
				cb(ch)
			}
		}
	}
}

// indexNewDir indexes any content files found in a newly created directory.
func indexNewDir(db *DB, store storage.Provider, loader *content.Loader, dirPath string, logger *slog.Logger, cb EventCallback) {
	_ = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, content.Ext) {
			return nil
		}
		rel, relErr := filepath.Rel(store.Root(), path)
		if relErr != nil {
			return nil
		}
		if ch, ok := indexPath(db, store, loader, rel, KindCreated, logger); ok {
			logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			if cb != nil {
				cb(ch)
			}
		}
		return nil
	})
}

// WatchModels calls onChange, debounced, whenever a model definition under
// root is created, written, removed or renamed. It returns when ctx is
// cancelled.
func WatchModels(ctx context.Context, root string, logger *slog.Logger, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}
	logger.Info("model watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case <-fire:
			fire = nil
			logger.Info("model watcher: models changed")
			onChange()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(ev.Name, content.ModelExt) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reconcileDelay)
			} else {
				timer.Reset(reconcileDelay)
			}
			fire = timer.C
		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("model watcher: error", slog.String("error", watchErr.Error()))
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
