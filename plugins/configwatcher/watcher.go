// Package configwatcher reloads label rendering settings when the
// configuration file changes, without restarting the bridge.
package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/packbridge/scalebridge/pkg/bridge"
)

// Target is the reload surface of a running bridge. The watcher reads
// the current settings, overlays the file's keys and pushes the result
// back, so flag-set values survive a file that omits them.
type Target interface {
	RenderConfig() bridge.Config
	SetRenderConfig(cfg bridge.Config)
}

// Config holds configuration options for the watcher.
type Config struct {
	// Path is the TOML configuration file to watch.
	Path string

	// DebounceDelay is the delay after a file change before reloading,
	// so editors that write in several steps trigger one reload.
	// Default: 100 milliseconds
	DebounceDelay time.Duration
}

// renderFile is the subset of the configuration file the watcher
// applies at runtime. Connection settings require a restart. Fields are
// pointers so a key absent from the file leaves the running value alone.
type renderFile struct {
	LabelWidth       *float64 `toml:"label_width"`
	LabelHeight      *float64 `toml:"label_height"`
	DPI              *int     `toml:"dpi"`
	Template         *string  `toml:"template"`
	DetailedPrefix   *string  `toml:"detailed_prefix"`
	CompactThreshold *float64 `toml:"compact_threshold"`
	UnstableMarker   *bool    `toml:"unstable_marker"`
	LineNumber       *string  `toml:"line_number"`
}

// Watcher monitors the config file and pushes render settings into the
// bridge on change.
type Watcher struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	logger        bridge.Logger
	target        Target

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// New creates a watcher for the given config file.
func New(cfg Config, logger bridge.Logger) *Watcher {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Watcher{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		logger:        logger,
	}
}

// Start begins watching. It applies the file once immediately so the
// bridge picks up edits made while it was down.
func (w *Watcher) Start(ctx context.Context, target Target) error {
	w.mu.Lock()
	w.target = target
	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	if w.path == "" {
		w.logger.Warn("config watcher disabled: no config file path")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		cancel()
		return err
	}

	// Watch the directory, not the file: editors replace files on save
	// and the watch would die with the old inode.
	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		_ = watcher.Close()
		cancel()
		return err
	}

	w.reload()

	w.wg.Add(1)
	go w.run(runCtx, watcher)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) run(ctx context.Context, watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	target := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload()

		case _, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error")
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.debounceDelay, w.reload)
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config reload skipped: read failed")
		return
	}

	var rf renderFile
	if err := toml.Unmarshal(data, &rf); err != nil {
		w.logger.Warn("config reload skipped: parse failed")
		return
	}

	w.mu.Lock()
	target := w.target
	w.mu.Unlock()
	if target == nil {
		return
	}

	cfg := target.RenderConfig()
	if rf.LabelWidth != nil {
		cfg.LabelWidth = *rf.LabelWidth
	}
	if rf.LabelHeight != nil {
		cfg.LabelHeight = *rf.LabelHeight
	}
	if rf.DPI != nil {
		cfg.DPI = *rf.DPI
	}
	if rf.Template != nil {
		cfg.Template = *rf.Template
	}
	if rf.DetailedPrefix != nil {
		cfg.DetailedPrefix = *rf.DetailedPrefix
	}
	if rf.CompactThreshold != nil {
		cfg.CompactThreshold = *rf.CompactThreshold
	}
	if rf.UnstableMarker != nil {
		cfg.UnstableMarker = *rf.UnstableMarker
	}
	if rf.LineNumber != nil {
		cfg.LineNumber = *rf.LineNumber
	}

	target.SetRenderConfig(cfg)
	w.logger.Info("label settings reloaded")
}
