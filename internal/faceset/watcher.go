package faceset

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of filesystem events (extraction passes
// rewrite hundreds of files) into one change notification.
const DefaultDebounce = 500 * time.Millisecond

// Watcher monitors the input directory and fires onChange when its face
// images are added, removed, or rewritten. A change means the face
// collection and every derived cache are stale.
type Watcher struct {
	dir      string
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	fw     *fsnotify.Watcher
	mu     sync.Mutex
	timer  *time.Timer
	stopCh chan struct{}
	once   sync.Once
}

// NewWatcher creates a watcher for dir. Call Start to begin watching.
func NewWatcher(dir string, onChange func(), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		debounce: DefaultDebounce,
		onChange: onChange,
		logger:   logger,
		fw:       fw,
		stopCh:   make(chan struct{}),
	}, nil
}

// Start begins watching in the background.
func (w *Watcher) Start() error {
	if err := w.fw.Add(w.dir); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop tears the watcher down. Pending debounced notifications are dropped.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		w.fw.Close()
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !isFaceImage(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.bump()
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("directory watch error", "dir", w.dir, "error", err)
		}
	}
}

// bump (re)arms the debounce timer.
func (w *Watcher) bump() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case <-w.stopCh:
			return
		default:
		}
		w.onChange()
	})
}

func isFaceImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := faceExtensions[ext]
	return ok
}
