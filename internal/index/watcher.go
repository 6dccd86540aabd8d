package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/folio/internal/checksum"
	"github.com/starford/folio/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

const (
	// Writes to a path are indexed once it has been quiet this long.
	settleDelay    = 100 * time.Millisecond
	reconcileDelay = 200 * time.Millisecond
)

// Watch watches the posts folder under contentRoot and keeps db in step
// with it until ctx is cancelled. cb, if non-nil, is called after every
// index change that altered a post.
//
// Directories created at runtime are watched as they appear. Renames and
// new directories schedule a full reconciliation against the store.
func Watch(ctx context.Context, db *DB, store storage.Provider, contentRoot string, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{
		db:          db,
		store:       store,
		contentRoot: contentRoot,
		logger:      logger,
		notify:      cb,
		fsw:         fsw,
		pending:     map[string]struct{}{},
	}
	root := filepath.Join(contentRoot, filepath.FromSlash(db.folder))
	if err := w.addTree(root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", root))
	return w.loop(ctx)
}

type watcher struct {
	db          *DB
	store       storage.Provider
	contentRoot string
	logger      *slog.Logger
	notify      EventCallback
	fsw         *fsnotify.Watcher

	pending   map[string]struct{} // paths written since the last flush
	settle    *time.Timer
	reconcile *time.Timer
}

func timerC(t *time.Timer) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func arm(t **time.Timer, d time.Duration) {
	if *t == nil {
		*t = time.NewTimer(d)
		return
	}
	(*t).Reset(d)
}

func (w *watcher) loop(ctx context.Context) error {
	defer func() {
		for _, t := range []*time.Timer{w.settle, w.reconcile} {
			if t != nil {
				t.Stop()
			}
		}
	}()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher: stopped")
			return nil

		case <-timerC(w.settle):
			w.flush()

		case <-timerC(w.reconcile):
			w.flush()
			w.reconcileAll()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			// Files may land in the directory before it is watched.
			arm(&w.reconcile, reconcileDelay)
			return
		}
	}

	if !storage.IsPostFile(filepath.Base(ev.Name)) {
		return
	}
	rel, err := filepath.Rel(w.contentRoot, ev.Name)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		w.pending[rel] = struct{}{}
		arm(&w.settle, settleDelay)

	case ev.Has(fsnotify.Remove):
		delete(w.pending, rel)
		w.remove(rel)

	case ev.Has(fsnotify.Rename):
		// fsnotify reports Rename on the old path only; the new name shows
		// up as a Create when it stays inside a watched dir.
		delete(w.pending, rel)
		w.remove(rel)
		arm(&w.reconcile, reconcileDelay)
	}
}

// flush indexes every settled path in lexical order.
func (w *watcher) flush() {
	if len(w.pending) == 0 {
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	slices.Sort(paths)
	for _, p := range paths {
		w.index(p)
	}
}

// index reads p and upserts it unless its content is already indexed.
func (w *watcher) index(p string) {
	data, err := w.store.Read(p)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			w.logger.Warn("watcher: read failed", slog.String("path", p), slog.String("error", err.Error()))
		}
		return
	}
	prior, _ := w.db.GetChecksum(p)
	if prior == checksum.Sum(data) {
		return
	}
	if err := indexFile(w.db, p, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if prior == "" {
		kind = EventCreated
	}
	w.logger.Debug("watcher: indexed", slog.String("path", p), slog.String("op", kind))
	w.emit(kind, p)
}

func (w *watcher) remove(p string) {
	if cs, _ := w.db.GetChecksum(p); cs == "" {
		return
	}
	if err := w.db.DeletePost(p); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", p))
	w.emit(EventDeleted, p)
}

// reconcileAll drops index entries whose file is gone and indexes files
// the index does not have or has stale.
func (w *watcher) reconcileAll() {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List(w.db.folder)
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		if indexed[m.Path] != m.Checksum {
			w.index(m.Path)
		}
	}
	for p := range indexed {
		if _, ok := onDisk[p]; !ok {
			w.remove(p)
		}
	}
}

func (w *watcher) emit(kind, p string) {
	if w.notify != nil {
		w.notify(kind, p)
	}
}

// addTree watches root and every directory below it.
func (w *watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}
