package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/arborworks/arbor/internal/pkg/options"
	"github.com/arborworks/arbor/pkg/logger"
)

// debounce: wait this long after the last event before reloading, so
// editors that write in several passes trigger one reload.
const reloadDebounce = 500 * time.Millisecond

// Watcher re-reads the model catalog when the config file changes, so
// price-table updates take effect without a restart.
type Watcher struct {
	path     string
	onModels func(*options.ModelOptions)

	watcher *fsnotify.Watcher
	closeCh chan struct{}
	once    sync.Once
}

// Watch starts a background watcher on the given config file. onModels
// is invoked with the freshly parsed model catalog after each change.
func Watch(path string, onModels func(*options.ModelOptions)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(path); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %q: %w", path, err)
	}

	w := &Watcher{
		path:     path,
		onModels: onModels,
		watcher:  fw,
		closeCh:  make(chan struct{}),
	}
	go w.loop()
	logger.DebugX("config", "watching %s for price-table updates", path)
	return w, nil
}

func (w *Watcher) loop() {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var fire <-chan time.Time
		if timer != nil {
			fire = timer.C
		}
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if timer == nil {
					timer = time.NewTimer(reloadDebounce)
				} else {
					timer.Reset(reloadDebounce)
				}
				// Editors that rename-replace drop the watch on the old
				// inode; re-add so the next save is still observed.
				_ = w.watcher.Add(w.path)
			}
		case <-fire:
			timer = nil
			w.reload()
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		case <-w.closeCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	v := viper.New()
	v.SetConfigFile(w.path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		logger.WarnX("config", "reload %s: %v", w.path, err)
		return
	}

	mo := options.NewModelOptions()
	if err := v.UnmarshalKey("models", mo); err != nil {
		logger.WarnX("config", "reload %s: %v", w.path, err)
		return
	}
	w.onModels(mo)
	logger.InfoX("config", "model catalog reloaded from %s", w.path)
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.once.Do(func() { close(w.closeCh) })
	return w.watcher.Close()
}
