package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/altafino/mdimg-publish/internal/config"
	"github.com/altafino/mdimg-publish/internal/publish"
	"github.com/altafino/mdimg-publish/internal/scheduler"
	"github.com/altafino/mdimg-publish/internal/types"
)

// watchDebounce collapses bursts of editor writes into one publish
const watchDebounce = 500 * time.Millisecond

// App runs the long-lived modes: watch and schedule
type App struct {
	logger    *slog.Logger
	configDir string
	configID  string
	env       Env
	// Override adjusts every (re)loaded profile, e.g. with CLI flags
	Override func(*types.Config)

	scheduler *scheduler.Scheduler
	watcher   *config.ConfigWatcher
	wg        sync.WaitGroup

	mu       sync.Mutex
	sessions map[string]*Session
}

// New creates a new application instance. Profiles must already be loaded
// into the global config store.
func New(logger *slog.Logger, configDir, configID string, env Env) *App {
	return &App{
		logger:    logger,
		configDir: configDir,
		configID:  configID,
		env:       env,
		sessions:  make(map[string]*Session),
	}
}

// configs returns the profiles this app serves
func (a *App) configs() ([]*types.Config, error) {
	if a.configID != "" {
		cfg, err := config.GetConfig(a.configID)
		if err != nil {
			return nil, fmt.Errorf("failed to get config %s: %w", a.configID, err)
		}
		return []*types.Config{cfg}, nil
	}
	return config.GetEnabledConfigs(), nil
}

func (a *App) prepare(cfg *types.Config) *types.Config {
	c := *cfg
	if a.Override != nil {
		a.Override(&c)
	}
	return &c
}

// session returns the cached session for cfg, building it on first use
func (a *App) session(ctx context.Context, cfg *types.Config, vaultRoot string) (*Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	key := cfg.Meta.ID + "\x00" + vaultRoot
	if s, ok := a.sessions[key]; ok {
		return s, nil
	}
	env := a.env
	env.VaultRoot = vaultRoot
	s, err := NewSession(ctx, a.prepare(cfg), env, a.logger)
	if err != nil {
		return nil, err
	}
	a.sessions[key] = s
	return s, nil
}

// resetSessions drops every cached session so the next run rebuilds its backend
func (a *App) resetSessions() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for key, s := range a.sessions {
		if err := s.Close(); err != nil {
			a.logger.Warn("failed to close session", "error", err)
		}
		delete(a.sessions, key)
	}
}

func (a *App) startConfigWatcher() error {
	watcher, err := config.StartWatcher(a.configDir, a.logger)
	if err != nil {
		return fmt.Errorf("failed to start config watcher: %w", err)
	}
	a.watcher = watcher
	return nil
}

// Schedule registers a republish job per profile and keeps them in step
// with the config directory until ctx is cancelled
func (a *App) Schedule(ctx context.Context) error {
	if err := a.startConfigWatcher(); err != nil {
		return err
	}
	defer a.Stop()

	a.scheduler = scheduler.NewScheduler(a.logger, a.republish)
	a.scheduler.Start(ctx)

	configs, err := a.configs()
	if err != nil {
		return err
	}
	for _, cfg := range configs {
		if err := a.startServices(cfg); err != nil {
			return err
		}
	}

	a.wg.Add(1)
	go a.watchConfigs(ctx)

	<-ctx.Done()
	a.logger.Info("stopping scheduler")
	return nil
}

func (a *App) republish(ctx context.Context, cfg *types.Config, document string) error {
	s, err := a.session(ctx, cfg, cfg.Scheduling.Vault)
	if err != nil {
		return err
	}
	_, err = s.Publish(ctx, document)
	if publish.IsSoft(err) {
		return nil
	}
	return err
}

// Stop gracefully stops all application services
func (a *App) Stop() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	a.wg.Wait()
	a.resetSessions()
}

func (a *App) startServices(cfg *types.Config) error {
	if err := a.scheduler.UpdateJob(a.prepare(cfg)); err != nil {
		a.logger.Error("failed to update scheduler",
			"error", err,
			"id", cfg.Meta.ID,
		)
		return err
	}

	a.logger.Info("started services for configuration",
		"id", cfg.Meta.ID,
		"name", cfg.Meta.Name,
	)

	return nil
}

func (a *App) watchConfigs(ctx context.Context) {
	defer a.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-a.watcher.ReloadChan():
			if !ok {
				return
			}
			if err != nil {
				continue
			}
			a.logger.Info("reloading services due to configuration change")
			a.resetSessions()

			newConfigs, err := a.configs()
			if err != nil {
				a.logger.Error("failed to get updated config", "error", err)
				continue
			}

			active := make(map[string]bool, len(newConfigs))
			for _, cfg := range newConfigs {
				active[cfg.Meta.ID] = true
				if err := a.startServices(cfg); err != nil {
					a.logger.Error("failed to update services",
						"config_id", cfg.Meta.ID,
						"error", err,
					)
				}
			}
			for _, id := range a.scheduler.Jobs() {
				if !active[id] {
					a.scheduler.RemoveJob(id)
				}
			}
		}
	}
}

// Watch publishes document once, then again whenever it or the config
// directory changes. A config that no longer loads or validates disables
// publishing until it is fixed.
func (a *App) Watch(ctx context.Context, vaultRoot, document string) error {
	if err := a.startConfigWatcher(); err != nil {
		return err
	}
	defer a.Stop()

	docWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer docWatcher.Close()

	probe, err := a.watchSession(ctx, vaultRoot)
	if err != nil {
		return err
	}
	full, err := probe.DocumentPath(document)
	if err != nil {
		return err
	}
	// editors replace files, so watch the directory and filter by name
	if err := docWatcher.Add(filepath.Dir(full)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", full, err)
	}

	var broken error
	publishNow := func() {
		if broken != nil {
			a.logger.Error("publishing disabled, fix the configuration", "error", broken)
			return
		}
		s, err := a.watchSession(ctx, vaultRoot)
		if err != nil {
			a.logger.Error("failed to prepare publish", "error", err)
			return
		}
		if _, err := s.Publish(ctx, document); err != nil && !publish.IsSoft(err) {
			if errors.Is(err, publish.ErrPublishInProgress) {
				a.logger.Debug("publish already running", "document", document)
				return
			}
			a.logger.Error("publish failed", "document", document, "error", err)
		}
	}
	publishNow()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-docWatcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != full || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-docWatcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("watcher error", "error", err)
		case err, ok := <-a.watcher.ReloadChan():
			if !ok {
				return nil
			}
			a.resetSessions()
			broken = err
			if err != nil {
				a.logger.Warn("configuration broken, publishing disabled until fixed", "error", err)
				continue
			}
			timer.Reset(watchDebounce)
		case <-timer.C:
			publishNow()
		}
	}
}

// watchSession selects the profile afresh so reloads take effect
func (a *App) watchSession(ctx context.Context, vaultRoot string) (*Session, error) {
	cfg, err := config.SelectConfig(a.configID)
	if err != nil {
		return nil, err
	}
	return a.session(ctx, cfg, vaultRoot)
}
