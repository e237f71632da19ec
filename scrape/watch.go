package scrape

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads a selector config file whenever it changes on disk
// and swaps it into a Store. Bad edits are rejected with a log line and
// the previous config stays active.
type Watcher struct {
	path   string
	store  *Store
	log    *log.Logger
	chStop chan struct{}
}

// NewWatcher returns a watcher for path that updates store.
func NewWatcher(path string, store *Store) *Watcher {
	return &Watcher{
		path:   path,
		store:  store,
		log:    log.New(os.Stderr, "ConfigWatch: ", log.LstdFlags|log.Lmsgprefix),
		chStop: make(chan struct{}),
	}
}

// Run watches until Stop is called. The parent directory is watched
// rather than the file itself because most editors replace the file on
// save, which would drop an inode-level watch.
func (w *Watcher) Run() error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("Error creating fs watcher: %w", err)
	}
	defer fw.Close()

	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		return fmt.Errorf("Error watching %v: %w", dir, err)
	}

	base := filepath.Base(w.path)
	var pending <-chan time.Time

	for {
		select {
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
				!ev.Has(fsnotify.Rename) {
				continue
			}
			// editors emit several events per save, coalesce them
			pending = time.After(250 * time.Millisecond)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Println("Watch error:", err)

		case <-pending:
			pending = nil
			cfg, err := LoadConfig(w.path)
			if err != nil {
				w.log.Println("Reload rejected:", err)
				continue
			}
			w.store.Set(cfg)
			w.log.Println("Selector config reloaded from", w.path)

		case <-w.chStop:
			return nil
		}
	}
}

// Stop terminates Run.
func (w *Watcher) Stop(_ error) {
	close(w.chStop)
}
