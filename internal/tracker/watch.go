package tracker

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval is how long the watcher waits after the last event
// before flushing a batch.
const debounceInterval = 2 * time.Second

// relevantOps are the event kinds that count as changes. Chmod does
// not; permission-only churn would otherwise trigger rebuilds.
const relevantOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watch monitors root for file changes and invokes onBatch with the
// sorted root-relative paths accumulated over each debounce window.
// Directories matching the root's .gitignore plus .git and .modmap are
// not watched. Blocks until the context is cancelled.
func Watch(ctx context.Context, root string, onBatch func(paths []string)) error {
	matcher, err := loadGitignoreMatcher(root)
	if err != nil {
		matcher = nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if shouldSkipDir(d.Name(), path, root, matcher) {
			return filepath.SkipDir
		}
		return watcher.Add(path)
	})
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	changed := make(map[string]bool)
	debounce := time.NewTimer(debounceInterval)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&relevantOps == 0 {
				continue
			}
			rel, err := relSlash(root, event.Name)
			if err != nil {
				continue
			}
			if skipPath(rel) || ignored(matcher, rel, false) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(event.Name); statErr == nil && info.IsDir() {
					if !shouldSkipDir(info.Name(), event.Name, root, matcher) {
						_ = watcher.Add(event.Name)
					}
					continue
				}
			}
			changed[rel] = true
			debounce.Reset(debounceInterval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Watch error: %v\n", err)

		case <-debounce.C:
			if len(changed) == 0 {
				continue
			}
			paths := make([]string, 0, len(changed))
			for p := range changed {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			onBatch(paths)
			changed = make(map[string]bool)
		}
	}
}

// skipPath reports whether a relative path falls inside a directory
// the tracker never follows.
func skipPath(rel string) bool {
	for _, skip := range []string{".git", ".modmap"} {
		if rel == skip || strings.HasPrefix(rel, skip+"/") {
			return true
		}
	}
	return false
}
