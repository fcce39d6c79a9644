package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/theirongolddev/runledger/internal/model"
	"github.com/theirongolddev/runledger/internal/source"
)

// watcher turns filesystem activity in chat_log and gkp directories into
// debounced poll requests.
type watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	logger   *slog.Logger
	onChange func()

	mu      sync.Mutex
	watched map[string]bool
}

func newWatcher(debounce time.Duration, logger *slog.Logger, onChange func()) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	return &watcher{
		fs:       fw,
		debounce: debounce,
		logger:   logger,
		onChange: onChange,
		watched:  make(map[string]bool),
	}, nil
}

// sync adds watches for folders not yet watched. Missing directories are
// retried on the next sync.
func (w *watcher) sync(folders []model.Folder) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, f := range folders {
		for _, dir := range []string{source.ChatLogDir(f.Path), source.SidecarDir(f.Path)} {
			if w.watched[dir] {
				continue
			}
			if err := w.fs.Add(dir); err != nil {
				w.logger.Debug("not watching directory", "dir", dir, "err", err)
				continue
			}
			w.watched[dir] = true
			w.logger.Info("watching directory", "dir", dir)
		}
	}
}

func (w *watcher) loop(ctx context.Context) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				w.forget(ev.Name)
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, w.onChange)
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "err", err)
		}
	}
}

// forget drops a watched directory that went away so sync re-adds it.
func (w *watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.watched, path)
}

func (w *watcher) Close() error {
	return w.fs.Close()
}
