package inbox

import (
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Watcher emits the email id of each JSON message file created in the inbox
// directory. Editors and mail fetchers often write then rename, so both
// Create and Rename-target Write events count; duplicates are the caller's
// problem since processing is idempotent anyway.
type Watcher struct {
	watcher *fsnotify.Watcher
	ids     chan string
	done    chan struct{}
}

// NewWatcher starts watching dir for new message files.
func NewWatcher(dir string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		ids:     make(chan string, 16),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Messages returns the channel of newly arrived email ids. Closed when the
// watcher shuts down.
func (w *Watcher) Messages() <-chan string { return w.ids }

func (w *Watcher) run() {
	defer close(w.ids)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")
			select {
			case w.ids <- id:
			case <-w.done:
				return
			}
		case <-w.watcher.Errors:
			// Keep watching; a missed event surfaces on the next scan.
		}
	}
}

// Close stops the watcher and closes the message channel.
func (w *Watcher) Close() {
	close(w.done)
	w.watcher.Close()
}
