package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"imbridge/internal/models"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const (
	defaultWatchInterval = 5 * time.Second
	defaultDebounce      = 200 * time.Millisecond
)

// ConfigWatcher watches the configuration file and reloads it on change.
// Only settings that can change at runtime are acted on by callbacks; the
// rest are logged as requiring a restart.
type ConfigWatcher struct {
	configPath string
	interval   time.Duration
	logger     *logrus.Logger
	mu         sync.RWMutex
	config     *models.Config
	modTime    time.Time
	callbacks  []func(*models.Config)
}

// NewConfigWatcher creates a watcher seeded with the already loaded config
func NewConfigWatcher(configPath string, initial *models.Config, logger *logrus.Logger) *ConfigWatcher {
	cw := &ConfigWatcher{
		configPath: configPath,
		interval:   defaultWatchInterval,
		logger:     logger,
		config:     initial,
	}
	if stat, err := os.Stat(configPath); err == nil {
		cw.modTime = stat.ModTime()
	}
	return cw
}

// Start watches the config file until ctx is done. File system
// notifications are used when available, otherwise the file is polled.
func (cw *ConfigWatcher) Start(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err == nil {
		err = watcher.Add(filepath.Dir(cw.configPath))
		if err != nil {
			_ = watcher.Close()
		}
	}
	if err != nil {
		cw.logger.WithError(err).Warn("File notifications unavailable, polling configuration file")
		cw.poll(ctx)
		return
	}
	defer watcher.Close()

	cw.logger.WithField("path", cw.configPath).Info("Configuration watcher started")

	target := filepath.Clean(cw.configPath)
	var debounce <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			// editors often write in several steps
			debounce = time.After(defaultDebounce)
		case <-debounce:
			debounce = nil
			cw.checkForChanges()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			cw.logger.WithError(err).Warn("Configuration watcher error")
		}
	}
}

func (cw *ConfigWatcher) poll(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("Configuration watcher stopping")
			return
		case <-ticker.C:
			cw.checkForChanges()
		}
	}
}

// GetConfig returns the current configuration
func (cw *ConfigWatcher) GetConfig() *models.Config {
	cw.mu.RLock()
	defer cw.mu.RUnlock()
	return cw.config
}

// OnConfigChange registers a callback to be called when configuration changes
func (cw *ConfigWatcher) OnConfigChange(callback func(*models.Config)) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

func (cw *ConfigWatcher) checkForChanges() {
	stat, err := os.Stat(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to stat configuration file")
		return
	}
	if !stat.ModTime().After(cw.modTime) {
		return
	}
	cw.modTime = stat.ModTime()
	cw.logger.Debug("Configuration file changed")
	cw.reloadConfig()
}

func (cw *ConfigWatcher) reloadConfig() {
	newConfig, err := LoadConfig(cw.configPath)
	if err != nil {
		cw.logger.WithError(err).Error("Failed to reload configuration")
		return
	}

	cw.mu.Lock()
	oldConfig := cw.config
	cw.config = newConfig
	callbacks := make([]func(*models.Config), len(cw.callbacks))
	copy(callbacks, cw.callbacks)
	cw.mu.Unlock()

	cw.logger.Info("Configuration reloaded successfully")
	cw.logConfigChanges(oldConfig, newConfig)

	for _, callback := range callbacks {
		cw.notify(callback, newConfig)
	}
}

func (cw *ConfigWatcher) notify(callback func(*models.Config), cfg *models.Config) {
	defer func() {
		if r := recover(); r != nil {
			cw.logger.WithField("panic", r).Error("Config change callback panicked")
		}
	}()
	callback(cfg)
}

// logConfigChanges logs notable configuration changes
func (cw *ConfigWatcher) logConfigChanges(old, new *models.Config) {
	if old == nil {
		return
	}

	if old.LogLevel != new.LogLevel {
		cw.logger.WithFields(logrus.Fields{
			"old": old.LogLevel,
			"new": new.LogLevel,
		}).Info("Log level changed")
	}

	if old.SDK.Driver != new.SDK.Driver || old.SDK.BaseURL != new.SDK.BaseURL {
		cw.logger.Warn("SDK driver settings changed; restart required to take effect")
	}

	if old.Bridge != new.Bridge {
		cw.logger.Warn("Bridge settings changed; restart required to take effect")
	}
}
