package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads the global profile store when files in the config directory change
type ConfigWatcher struct {
	watcher    *fsnotify.Watcher
	configDir  string
	mu         sync.Mutex
	logger     *slog.Logger
	reloadChan chan error
	done       chan struct{}
}

// StartWatcher initializes and starts the configuration watcher
func StartWatcher(configDir string, logger *slog.Logger) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	cw := &ConfigWatcher{
		watcher:    watcher,
		configDir:  configDir,
		logger:     logger,
		reloadChan: make(chan error, 1),
		done:       make(chan struct{}),
	}

	// Watch the config directory and its subdirectories
	if err := filepath.Walk(configDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	}); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	go cw.watch()
	return cw, nil
}

// ReloadChan receives the outcome of every reload: nil on success, the load error otherwise
func (cw *ConfigWatcher) ReloadChan() <-chan error {
	return cw.reloadChan
}

// reloadDelay coalesces the bursts of events an editor save produces
const reloadDelay = 200 * time.Millisecond

func (cw *ConfigWatcher) watch() {
	defer close(cw.done)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	var changed string

	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				timer.Stop()
				return
			}
			if !isProfileFile(event.Name) {
				continue
			}
			// atomic saves show up as rename + create
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				changed = event.Name
				timer.Reset(reloadDelay)
			}

		case <-timer.C:
			cw.handleConfigChange(changed)

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				timer.Stop()
				return
			}
			cw.logger.Error("watcher error", "error", err)
		}
	}
}

// isProfileFile reports profile and template files, skipping editor temp files
func isProfileFile(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, "~") {
		return false
	}
	if strings.HasSuffix(base, ConfigSuffix) {
		return true
	}
	return filepath.Base(filepath.Dir(name)) == "templates" && filepath.Ext(base) == ".yaml"
}

func (cw *ConfigWatcher) handleConfigChange(path string) {
	cw.logger.Info("detected configuration change", "path", path)

	err := LoadConfigs(cw.configDir)
	if err != nil {
		cw.logger.Error("failed to reload configurations",
			"error", err,
			"path", path,
		)
	} else {
		cw.logger.Info("configurations reloaded", "count", len(ListConfigs()))
	}

	// Keep only the latest outcome if nobody consumed the previous one
	select {
	case <-cw.reloadChan:
	default:
	}
	select {
	case cw.reloadChan <- err:
	default:
	}
}

// Stop stops the configuration watcher
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.watcher == nil {
		return nil
	}
	if err := cw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	<-cw.done
	cw.watcher = nil
	return nil
}
