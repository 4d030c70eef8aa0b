package retrieval

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/WonderMr/agents/core/document"
	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultDebounce coalesces bursts of file events (editors typically write
// several events per save).
const DefaultDebounce = 200 * time.Millisecond

// ErrWatcherClosed indicates the watcher was already stopped.
var ErrWatcherClosed = errors.New("watcher is closed")

// WatcherConfig configures a library watcher.
type WatcherConfig struct {
	// Dir is the document directory to watch.
	Dir string

	// ExcludePatterns are glob patterns for paths to ignore.
	ExcludePatterns []string

	// Debounce is the quiet interval before the change callback fires.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher monitors a document directory and invokes a callback once per
// settled burst of changes. Retrievers use the callback to mark their
// collection stale so the next retrieve re-indexes.
type Watcher struct {
	watcher  *fsnotify.Watcher
	excludes []glob.Glob
	debounce time.Duration
	onChange func()
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
}

// NewWatcher starts watching cfg.Dir. onChange runs on the watcher
// goroutine; it must be cheap and non-blocking.
func NewWatcher(cfg WatcherConfig, onChange func()) (*Watcher, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	excludes := make([]glob.Glob, 0, len(cfg.ExcludePatterns))
	for _, pattern := range cfg.ExcludePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		excludes = append(excludes, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		excludes: excludes,
		debounce: cfg.Debounce,
		onChange: onChange,
		logger:   cfg.Logger.With("dir", cfg.Dir),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("document change", "path", event.Name, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// relevant filters to canonical document files not matching any exclude
// pattern.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Op.Has(fsnotify.Create) &&
		!event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) &&
		!event.Op.Has(fsnotify.Rename) {
		return false
	}
	if !strings.HasSuffix(event.Name, document.Extension) {
		return false
	}
	base := filepath.Base(event.Name)
	for _, g := range w.excludes {
		if g.Match(base) || g.Match(event.Name) {
			return false
		}
	}
	return true
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
