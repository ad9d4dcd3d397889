// Package watcher reports changes under a platforms directory using fsnotify.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/plataformas/internal/logger"
)

// DefaultQuiet is how long the tree must stay unchanged before a batch is emitted.
const DefaultQuiet = 2 * time.Second

// Batch is a set of party folders that changed together.
type Batch struct {
	Folders []string
}

// Watcher watches a root directory and each party folder directly below it.
type Watcher struct {
	root  string
	quiet time.Duration
	fs    *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]struct{}
}

// New starts watching root. Close releases the watch.
func New(root string, quiet time.Duration) (*Watcher, error) {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", abs)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	w := &Watcher{root: abs, quiet: quiet, fs: fw, pending: map[string]struct{}{}}

	if err := fw.Add(abs); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("read %s: %w", abs, err)
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			w.addFolder(filepath.Join(abs, e.Name()))
		}
	}
	return w, nil
}

func (w *Watcher) addFolder(dir string) {
	if err := w.fs.Add(dir); err != nil {
		logger.Warn("cannot watch %s: %v", dir, err)
	}
}

// Run emits a Batch on out each time the tree has been quiet for the
// configured interval after a relevant change. It returns when ctx ends.
func (w *Watcher) Run(ctx context.Context, out chan<- Batch) error {
	timer := time.NewTimer(w.quiet)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if folder, relevant := w.classify(ev); relevant {
				w.mu.Lock()
				w.pending[folder] = struct{}{}
				w.mu.Unlock()
				timer.Reset(w.quiet)
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			batch := w.drain()
			if len(batch.Folders) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// classify maps an event to the party folder it concerns.
func (w *Watcher) classify(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	parts := strings.Split(rel, string(filepath.Separator))
	if strings.HasPrefix(parts[0], ".") {
		return "", false
	}
	folder := filepath.Join(w.root, parts[0])

	if len(parts) == 1 {
		// A new folder directly under root.
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
				w.addFolder(ev.Name)
				return folder, true
			}
		}
		return "", false
	}

	name := strings.ToLower(parts[len(parts)-1])
	if strings.HasSuffix(name, ".pdf") || name == "metadata.json" {
		return folder, true
	}
	return "", false
}

func (w *Watcher) drain() Batch {
	w.mu.Lock()
	defer w.mu.Unlock()
	b := Batch{Folders: make([]string, 0, len(w.pending))}
	for f := range w.pending {
		b.Folders = append(b.Folders, f)
	}
	w.pending = map[string]struct{}{}
	return b
}

// Root returns the absolute watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}
