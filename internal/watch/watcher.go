package watch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/plotdeck/plotdeck/internal/logging"
)

var watchLog = logging.ForComponent(logging.CompWatch)

// debounceDelay coalesces the burst of events editors emit on save
// (truncate + write, or write-to-temp + rename).
const debounceDelay = 100 * time.Millisecond

// ScriptWatcher watches one script file and invokes a reload callback when
// it changes. Editors replace files rather than rewrite them, so the watch
// is placed on the parent directory and events are filtered by name.
type ScriptWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	reload  func(path string) error
	limiter *rate.Limiter
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScriptWatcher creates a watcher for the script at path. reload is
// called after each debounced change. Call Start() in a goroutine.
func NewScriptWatcher(path string, reload func(path string) error) (*ScriptWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &ScriptWatcher{
		path:    abs,
		watcher: watcher,
		reload:  reload,
		// At most 2 reloads a second regardless of how fast the file churns.
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching. Blocks until Stop() is called or the watcher dies.
func (w *ScriptWatcher) Start() {
	defer close(w.done)

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		watchLog.Warn("watch_add_failed",
			slog.String("dir", filepath.Dir(w.path)),
			slog.String("error", err.Error()),
		)
		return
	}
	watchLog.Info("watching script", slog.String("path", w.path))

	var debounceTimer *time.Timer
	var debounceMu sync.Mutex

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}

			debounceMu.Lock()
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, w.fire)
			debounceMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			watchLog.Warn("watch_error", slog.String("error", err.Error()))
		}
	}
}

func (w *ScriptWatcher) fire() {
	if err := w.limiter.Wait(w.ctx); err != nil {
		return
	}
	watchLog.Debug("script changed", slog.String("path", w.path))
	if err := w.reload(w.path); err != nil {
		watchLog.Warn("reload failed",
			slog.String("path", w.path),
			slog.String("error", err.Error()),
		)
	}
}

// Stop shuts the watcher down and waits for Start to return.
func (w *ScriptWatcher) Stop() {
	w.cancel()
	_ = w.watcher.Close()
	<-w.done
}

// Done is closed when the watch loop has exited.
func (w *ScriptWatcher) Done() <-chan struct{} {
	return w.done
}
