package config

import (
	"errors"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/geopool/engine/core"
)

// Watcher reports rewrites of a config file so the frame driver can reload
// it between frames. Reload never happens mid-frame; the watcher only
// signals, the driver decides when to act.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	changes  chan struct{}
	done     chan struct{}
	isClosed bool
}

func NewWatcher(path string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     path,
		fsnotify: fsWatch,
		changes:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}

	// Watch the directory, not the file: editors replace files on save and
	// the watch would be lost with it.
	if err := fsWatch.Add(filepath.Dir(path)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	go w.start()
	return w, nil
}

// Changes signals once per observed rewrite of the config file.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

func (w *Watcher) start() {
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != filepath.Clean(w.path) {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				core.LogDebug("config file %s changed", e.Name)
				select {
				case w.changes <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err.Error())
		case <-w.done:
			w.fsnotify.Close()
			return
		}
	}
}

func (w *Watcher) Close() error {
	if w.isClosed {
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	close(w.done)
	return nil
}
