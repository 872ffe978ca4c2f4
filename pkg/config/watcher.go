// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Watcher monitors a configuration file for changes and triggers reload.
type Watcher struct {
	mu          sync.RWMutex
	path        string
	interval    time.Duration
	lastModTime time.Time
	config      *Config
	listeners   []func(*Config)
	stopCh      chan struct{}
	doneCh      chan struct{}
	logger      *slog.Logger
}

// WatcherOption configures the watcher.
type WatcherOption func(*Watcher)

// WithWatchInterval sets the polling interval for file changes.
func WithWatchInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWatchLogger sets the logger for the watcher.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// NewWatcher creates a watcher for the given config file. The initial
// configuration is loaded immediately.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: time.Second,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	w.config = cfg
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
	}
	return w, nil
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

// OnReload registers a listener invoked with the new configuration after a
// successful reload.
func (w *Watcher) OnReload(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Start begins polling until the context is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer close(w.doneCh)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stopCh:
				return
			case <-ticker.C:
				w.checkOnce()
			}
		}
	}()
}

// Stop halts polling and waits for the watch loop to exit.
func (w *Watcher) Stop() {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
}

func (w *Watcher) checkOnce() {
	info, err := os.Stat(w.path)
	if err != nil {
		return
	}
	w.mu.RLock()
	changed := info.ModTime().After(w.lastModTime)
	w.mu.RUnlock()
	if !changed {
		return
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	w.lastModTime = info.ModTime()
	w.config = cfg
	listeners := make([]func(*Config), len(w.listeners))
	copy(listeners, w.listeners)
	w.mu.Unlock()

	w.logger.Info("configuration reloaded", "path", w.path)
	for _, fn := range listeners {
		fn(cfg)
	}
}
