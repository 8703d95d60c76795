package filesystem

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sophialabs/httpmocker/internal/infrastructure/ports"
)

// Watcher reports edits to scenario files below a root directory.
// Changes are collected until the tree has been quiet for the debounce
// period, then delivered in one batch of root-relative slash paths.
type Watcher struct {
	rootDir    string
	extensions []string
	debounce   time.Duration
	logger     ports.Logger
	watcher    *fsnotify.Watcher
	onChange   func(paths []string)
	done       chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewWatcher creates a watcher for scenario files with the given
// extensions (without the dot). The root directory must exist.
func NewWatcher(rootDir string, extensions []string, debounce time.Duration, logger ports.Logger, onChange func(paths []string)) (*Watcher, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	exts := make([]string, len(extensions))
	for i, e := range extensions {
		exts[i] = "." + strings.ToLower(strings.TrimPrefix(e, "."))
	}

	w := &Watcher{
		rootDir:    absRoot,
		extensions: exts,
		debounce:   debounce,
		logger:     logger,
		watcher:    fsWatcher,
		onChange:   onChange,
		done:       make(chan struct{}),
	}

	if err := w.addRecursive(absRoot); err != nil {
		_ = fsWatcher.Close()
		return nil, err
	}

	return w, nil
}

// Start begins watching for file changes in a goroutine.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop terminates the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		_ = w.watcher.Close()
	})
	w.wg.Wait()
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time
	pending := make(map[string]struct{})

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			if !w.isScenarioFile(event.Name) {
				// Recorded folders appear at runtime and must be watched too.
				if event.Has(fsnotify.Create) {
					if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
						_ = w.addRecursive(event.Name)
					}
				}
				continue
			}

			rel, err := filepath.Rel(w.rootDir, event.Name)
			if err != nil {
				continue
			}
			pending[filepath.ToSlash(rel)] = struct{}{}
			w.logger.Debug("scenario file change detected", "file", rel, "op", event.Op.String())

			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			timerC = timer.C

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-timerC:
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			clear(pending)
			timerC = nil

			w.logger.Info("scenario files changed", "count", len(paths))
			w.onChange(paths)
		}
	}
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}

func (w *Watcher) isScenarioFile(name string) bool {
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(name)))
}
