package vault

import (
	"context"
	"io/fs"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher observes the vault tree for manual edits and invalidates the
// Manager's anchor cache when something changes on disk. Our own atomic
// renames also fire here; clearing the cache is cheap and correct either
// way, so no attempt is made to tell the two apart.
type Watcher struct {
	manager *Manager
	watcher *fsnotify.Watcher
}

// NewWatcher creates a watcher over the manager's root tree.
func NewWatcher(manager *Manager) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{manager: manager, watcher: fsw}
	if err := w.addTree(manager.Root()); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes events until ctx is done. Bursts of events collapse into a
// single cache clear after a short quiet period.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if strings.HasSuffix(ev.Name, ".tmp") {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				// New subdirectories need watching too; plain files are
				// skipped by the walk.
				_ = w.addTree(ev.Name)
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				timer.Reset(debounce)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[WARN] Vault watcher: %v", err)

		case <-fire:
			w.manager.ClearCache()
			timer = nil
			fire = nil
		}
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.watcher.Add(path)
		}
		return nil
	})
}
