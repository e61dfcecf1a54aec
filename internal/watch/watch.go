// Package watch reloads a configuration file whenever it changes on disk.
package watch

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/san-kum/verlet/internal/config"
)

// Debounce is how long the file must stay quiet before it is reloaded.
// Editors often truncate and write in separate operations.
const Debounce = 100 * time.Millisecond

type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	base    *config.Config
	Events  chan *config.Config
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New watches path. The parent directory is watched so that editors which
// replace the file by rename are still seen.
func New(path string) (*Watcher, error) {
	return NewOver(config.DefaultConfig(), path)
}

// NewOver is New with every reload layered over base instead of the defaults.
func NewOver(base *config.Config, path string) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		path:    abs,
		base:    base.Clone(),
		Events:  make(chan *config.Config, 4),
		Errors:  make(chan error, 4),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Path is the absolute path being watched.
func (w *Watcher) Path() string { return w.path }

// Close stops the watcher. Events and Errors are closed once it returns.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
	})
	return err
}

func (w *Watcher) run() {
	defer func() {
		close(w.Events)
		close(w.Errors)
		close(w.done)
	}()

	timer := time.NewTimer(Debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			timer.Reset(Debounce)
		case <-timer.C:
			cfg, err := config.LoadOver(w.base, w.path)
			if err != nil {
				if !w.send(nil, err) {
					return
				}
				continue
			}
			if !w.send(cfg, nil) {
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if !w.send(nil, err) {
				return
			}
		case <-w.closeCh:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) send(cfg *config.Config, err error) bool {
	if err != nil {
		select {
		case w.Errors <- err:
			return true
		case <-w.closeCh:
			return false
		}
	}
	select {
	case w.Events <- cfg:
		return true
	case <-w.closeCh:
		return false
	}
}
