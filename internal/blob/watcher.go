package blob

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// WatcherOps creates file system watchers. Tests substitute a fake.
type WatcherOps interface {
	NewWatcher() (WatcherInstance, error)
}

// WatcherInstance is an active file system watcher.
type WatcherInstance interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type realWatcherOps struct{}

func (realWatcherOps) NewWatcher() (WatcherInstance, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &realWatcherInstance{w: w}, nil
}

type realWatcherInstance struct {
	w *fsnotify.Watcher
}

func (r *realWatcherInstance) Add(name string) error         { return r.w.Add(name) }
func (r *realWatcherInstance) Close() error                  { return r.w.Close() }
func (r *realWatcherInstance) Events() <-chan fsnotify.Event { return r.w.Events }
func (r *realWatcherInstance) Errors() <-chan error          { return r.w.Errors }

// DefaultDebounce coalesces bursts of events, such as an upload's create,
// write and rename, into one change notification.
const DefaultDebounce = 150 * time.Millisecond

// Watcher reports changes under a blob root. fsnotify is not recursive, so
// every directory is added at start and whenever one is created.
type Watcher struct {
	watcher  WatcherInstance
	onChange func()
	onError  func(error)
	debounce time.Duration

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
	done   chan struct{}
}

// NewWatcher starts watching root. onChange runs on its own goroutine after
// each burst of changes; onError receives watcher failures. A nil ops uses
// fsnotify.
func NewWatcher(root string, onChange func(), onError func(error), debounce time.Duration, ops WatcherOps) (*Watcher, error) {
	if ops == nil {
		ops = realWatcherOps{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if onError == nil {
		onError = func(error) {}
	}
	wi, err := ops.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	w := &Watcher{
		watcher:  wi,
		onChange: onChange,
		onError:  onError,
		debounce: debounce,
		done:     make(chan struct{}),
	}
	if err := w.addTree(root); err != nil {
		_ = wi.Close()
		return nil, err
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.watcher.Add(p); err != nil {
			return errors.Wrapf(err, "watch %s", p)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case ev, ok := <-w.watcher.Events():
			if !ok {
				return
			}
			if strings.HasPrefix(filepath.Base(ev.Name), tempPrefix) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						w.onError(err)
					}
				}
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors():
			if !ok {
				return
			}
			w.onError(errors.Wrap(err, "blob watcher"))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if !closed && w.onChange != nil {
		w.onChange()
	}
}

// Close stops the watcher. Pending notifications are dropped. Close is
// idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	<-w.done
	return err
}
