package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/turtacn/simhost/pkg/logger"
)

// DefaultDebounceInterval is the quiet period after the last change before
// OnChange fires.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher reports edits to configuration files. The resolved configuration is
// immutable, so a change only produces a notification.
type Watcher struct {
	mu       sync.Mutex
	files    map[string]bool
	onChange func(path string)
	debounce time.Duration
	log      logger.Logger

	fsw     *fsnotify.Watcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	timer   *time.Timer
	pending string
}

func NewWatcher(files []string, onChange func(path string), log logger.Logger) *Watcher {
	w := &Watcher{
		files:    make(map[string]bool),
		onChange: onChange,
		debounce: DefaultDebounceInterval,
		log:      logger.Or(log),
	}
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.files[abs] = true
		}
	}
	return w
}

// Start watches the parent directories of the files, so editors that replace
// a file by rename are still seen.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	dirs := make(map[string]bool)
	for f := range w.files {
		dirs[filepath.Dir(f)] = true
	}
	for d := range dirs {
		if err := fsw.Add(d); err != nil {
			fsw.Close()
			return err
		}
	}

	w.fsw = fsw
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	go w.loop(fsw.Events, fsw.Errors)
	w.log.Info("Config: watching files", "count", len(w.files))
	return nil
}

func (w *Watcher) loop(events <-chan fsnotify.Event, errs <-chan error) {
	defer close(w.doneCh)
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.log.Warn("Config: watch error", "err", err)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	abs, err := filepath.Abs(ev.Name)
	if err != nil || !w.files[abs] {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = abs
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	path := w.pending
	running := w.fsw != nil
	w.mu.Unlock()
	if !running {
		return
	}
	w.log.Warn("Config: file changed on disk, restart to apply", "path", path)
	if w.onChange != nil {
		w.onChange(path)
	}
}

func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	close(w.stopCh)
	fsw.Close()
	<-w.doneCh
}

// Personal.AI order the ending
