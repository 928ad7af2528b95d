// Package watcher keeps the index current while a project is being
// edited. It watches the manifest's resource and source roots
// recursively with fsnotify and emits settled batches of changed paths
// after a quiet period, so a burst of editor writes triggers one rebuild
// instead of one per event.
package watcher

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"aster/internal/config"
	"aster/internal/errors"
	"aster/internal/manifest"
)

// Handler receives each settled batch of changed paths, relative to the
// scan root and sorted.
type Handler func(changed []string)

// Watcher watches a project's input trees for changes.
type Watcher struct {
	scanRoot string
	roots    []string
	debounce time.Duration
	logger   *slog.Logger
	handler  Handler
}

// New creates a watcher over the manifest's resource and source roots.
// Roots that do not exist are skipped with a warning; nested roots
// collapse into their parent so each directory is walked once.
func New(scanRoot string, man *manifest.Manifest, cfg *config.Config, logger *slog.Logger, handler Handler) (*Watcher, error) {
	absRoot, err := filepath.Abs(scanRoot)
	if err != nil {
		return nil, errors.New(errors.ScanRootInvalid, "cannot resolve scan root "+scanRoot, err)
	}

	seen := make(map[string]bool)
	var candidates []string
	for _, rel := range append([]string{man.ResRoot}, man.SourceRoots...) {
		root := filepath.Clean(filepath.Join(absRoot, filepath.FromSlash(rel)))
		if seen[root] {
			continue
		}
		seen[root] = true
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			logger.Warn("skipping missing watch root", "root", rel)
			continue
		}
		candidates = append(candidates, root)
	}

	roots := collapseNested(candidates)
	if len(roots) == 0 {
		return nil, errors.Newf(errors.ScanRootInvalid, "no watchable roots under %s", absRoot)
	}

	debounce := time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
	if debounce <= 0 {
		debounce = time.Duration(config.DefaultConfig().Watch.DebounceMs) * time.Millisecond
	}

	return &Watcher{
		scanRoot: absRoot,
		roots:    roots,
		debounce: debounce,
		logger:   logger,
		handler:  handler,
	}, nil
}

// collapseNested drops roots that live inside another root.
func collapseNested(roots []string) []string {
	var out []string
	for _, r := range roots {
		nested := false
		for _, q := range roots {
			if q != r && strings.HasPrefix(r, q+string(filepath.Separator)) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r)
		}
	}
	return out
}

// Run watches until ctx is canceled or the watcher fails to start.
// Batches are handed to the handler from a timer goroutine and emit one
// at a time, so a batch that settles during a rebuild waits for it.
// Cancellation is the normal exit and returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, d, err := w.start()
	if err != nil {
		return err
	}
	defer fsw.Close()
	defer d.cancel()

	return w.loop(ctx, fsw, d)
}

// start creates the fsnotify watcher, registers every directory under
// the roots, and builds the debouncer. Watches are established before
// this returns.
func (w *Watcher) start() (*fsnotify.Watcher, *debouncer, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	dirs := 0
	for _, root := range w.roots {
		n, err := addRecursive(fsw, root)
		if err != nil {
			fsw.Close()
			return nil, nil, err
		}
		dirs += n
	}

	d := newDebouncer(w.debounce, func(changed []string) {
		w.logger.Debug("changes settled", "files", len(changed))
		if w.handler != nil {
			w.handler(changed)
		}
	})

	w.logger.Info("watching for changes",
		"roots", len(w.roots),
		"dirs", dirs,
		"debounce", w.debounce.String())
	return fsw, d, nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, d *debouncer) error {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watch stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fsw, event, d)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(fsw *fsnotify.Watcher, event fsnotify.Event, d *debouncer) {
	abs := filepath.Clean(event.Name)
	rel := w.relPath(abs)
	if ignorePath(rel) {
		return
	}

	// Directories created under a watched root join the watch, so files
	// written into them later are seen.
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(abs); err == nil && info.IsDir() {
			if _, err := addRecursive(fsw, abs); err != nil {
				w.logger.Warn("cannot watch new directory", "path", rel, "error", err)
			}
		}
	}

	// Chmod alone does not change index inputs.
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}
	d.add(rel)
}

func (w *Watcher) relPath(abs string) string {
	rel, err := filepath.Rel(w.scanRoot, abs)
	if err != nil {
		return filepath.ToSlash(abs)
	}
	return filepath.ToSlash(rel)
}

// ignorePath reports whether a changed path is outside the indexed
// inputs: anything under a dot directory (.aster, .git, .gradle), build
// output, or editor noise files.
func ignorePath(rel string) bool {
	if rel == "." {
		return true
	}
	for _, seg := range strings.Split(rel, "/") {
		if skipDirName(seg) {
			return true
		}
	}
	return noiseFile(rel[strings.LastIndex(rel, "/")+1:])
}

func skipDirName(name string) bool {
	return strings.HasPrefix(name, ".") || name == "build" || name == "node_modules"
}

func noiseFile(name string) bool {
	return strings.HasSuffix(name, ".swp") || strings.HasSuffix(name, ".swx") ||
		strings.HasSuffix(name, "~") || strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".log")
}

// addRecursive watches root and every directory below it, skipping
// ignored directory names. It returns the number of directories added.
func addRecursive(fsw *fsnotify.Watcher, root string) (int, error) {
	added := 0
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && skipDirName(d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(p); err != nil {
			return err
		}
		added++
		return nil
	})
	return added, err
}
