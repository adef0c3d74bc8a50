// Package watch reports geometry and material library files that changed on
// disk, once they have been quiet for a debounce interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultExtensions lists the file types a directory watch reports.
var DefaultExtensions = []string{".obj", ".mtl"}

var errClosed = errors.New("watcher already closed")

// Watcher watches files and directories. Files are watched through their
// parent directory so editors that replace files on save are still seen.
type Watcher struct {
	// Extensions filters events in watched directories. Explicitly added
	// files are always reported.
	Extensions []string

	fs        *fsnotify.Watcher
	debounced func(f func())
	log       *zap.Logger

	mu      sync.Mutex
	files   map[string]bool
	dirs    map[string]bool
	pending map[string]bool
	closed  bool

	batches chan []string
	stop    chan struct{}
}

// New creates a watcher that coalesces events until none arrive for interval.
func New(interval time.Duration, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		Extensions: DefaultExtensions,
		fs:         fsw,
		debounced:  debounce.New(interval),
		log:        log,
		files:      make(map[string]bool),
		dirs:       make(map[string]bool),
		pending:    make(map[string]bool),
		batches:    make(chan []string, 1),
		stop:       make(chan struct{}),
	}, nil
}

// Add starts watching path, a file or a directory.
func (w *Watcher) Add(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return errClosed
	}

	dir := abs
	if info.IsDir() {
		w.dirs[abs] = true
	} else {
		w.files[abs] = true
		dir = filepath.Dir(abs)
	}
	return w.fs.Add(dir)
}

// Matches reports whether an event on path should be reported.
func (w *Watcher) Matches(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[path] {
		return true
	}
	if !w.dirs[filepath.Dir(path)] {
		return false
	}
	ext := filepath.Ext(path)
	for _, e := range w.Extensions {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// Run delivers batches of changed paths, sorted, to onChange until ctx is
// done. onChange runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case e, ok := <-w.fs.Events:
			if !ok {
				return errClosed
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !w.Matches(e.Name) {
				continue
			}
			w.log.Debug("file changed", zap.String("path", e.Name), zap.String("op", e.Op.String()))
			w.mu.Lock()
			w.pending[e.Name] = true
			w.mu.Unlock()
			w.debounced(w.flush)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return errClosed
			}
			w.log.Warn("watch error", zap.Error(err))

		case paths := <-w.batches:
			onChange(paths)
		}
	}
}

// flush runs on the debounce timer and hands the pending set to Run.
func (w *Watcher) flush() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	slices.Sort(paths)
	select {
	case w.batches <- paths:
	case <-w.stop:
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	close(w.stop)
	return w.fs.Close()
}
