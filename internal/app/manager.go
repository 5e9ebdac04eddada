package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/woxQAQ/quadhost/internal/config"
	"github.com/woxQAQ/quadhost/internal/wasm"
	"go.uber.org/zap"
)

// PluginFactory builds a fresh plugin for one instance of app.
type PluginFactory func(ctx context.Context, app *App) (wasm.Plugin, error)

// Manager manages application lifecycle.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	factories map[string]PluginFactory
}

// NewManager creates a new application manager.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, logger),
		logger:      logger.With(zap.String("component", "app-manager")),
		factories:   make(map[string]PluginFactory),
	}
}

// RegisterPlugin makes a plugin available to applications that request it.
func (m *Manager) RegisterPlugin(name string, factory PluginFactory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = factory
}

// LoadAll discovers and loads all applications from configured paths.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("apps already loaded")
	}

	m.logger.Info("Loading apps",
		zap.Strings("paths", m.cfg.AppPaths),
	)

	apps, err := m.loader.DiscoverApps(ctx, m.cfg.AppPaths)
	if err != nil {
		if _, ok := err.(*NoAppsFoundError); ok {
			m.logger.Warn("No apps found in configured paths",
				zap.Strings("paths", m.cfg.AppPaths),
			)
			m.loaded = true
			return nil
		}
		return err
	}

	for _, app := range apps {
		if err := m.registry.Register(app); err != nil {
			m.logger.Error("Failed to register app",
				zap.String("name", app.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
	}

	m.loaded = true

	m.logger.Info("Apps loaded successfully",
		zap.Int("count", len(apps)),
	)

	return nil
}

// LoadApp loads and registers the application in dir.
func (m *Manager) LoadApp(ctx context.Context, dir string) (*App, error) {
	app, err := m.loader.LoadApp(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := m.registry.Register(app); err != nil {
		return nil, err
	}
	return app, nil
}

// GetApp retrieves an application by name.
func (m *Manager) GetApp(name string) (*App, error) {
	app, ok := m.registry.Get(name)
	if !ok {
		return nil, &AppNotFoundError{AppName: name}
	}

	return app, nil
}

// Instantiate creates a new instance of an application with the plugins its
// manifest requests, in manifest order.
func (m *Manager) Instantiate(ctx context.Context, appName string) (*wasm.Instance, error) {
	app, ok := m.registry.Get(appName)
	if !ok {
		return nil, &AppNotFoundError{AppName: appName}
	}

	plugins, err := m.plugins(ctx, app)
	if err != nil {
		return nil, err
	}

	return m.instanceMgr.Instantiate(ctx, &wasm.InstanceConfig{
		ModuleName: app.Compiled.Name,
		Plugins:    plugins,
	})
}

// Run instantiates an application and calls its entrypoint. The instance
// is returned open so the caller can keep driving it; it is closed when
// the entrypoint fails.
func (m *Manager) Run(ctx context.Context, appName string) (*wasm.Instance, error) {
	app, err := m.GetApp(appName)
	if err != nil {
		return nil, err
	}

	instance, err := m.Instantiate(ctx, appName)
	if err != nil {
		return nil, err
	}

	m.logger.Info("Running app",
		zap.String("name", app.Name()),
		zap.String("entrypoint", app.Entrypoint()),
		zap.String("instance_id", instance.ID),
	)

	if _, err := instance.Call(ctx, app.Entrypoint()); err != nil {
		if cerr := instance.Close(context.Background()); cerr != nil {
			m.logger.Warn("Failed to close instance", zap.Error(cerr))
		}
		return nil, err
	}

	return instance, nil
}

func (m *Manager) plugins(ctx context.Context, app *App) ([]wasm.Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]wasm.Plugin, 0, len(app.Manifest.Plugins))
	for _, name := range app.Manifest.Plugins {
		factory, ok := m.factories[name]
		if !ok {
			return nil, &PluginUnavailableError{AppName: app.Name(), PluginName: name}
		}
		plugin, err := factory(ctx, app)
		if err != nil {
			return nil, &wasm.PluginError{PluginName: name, Stage: "create", Err: err}
		}
		plugins = append(plugins, plugin)
	}
	return plugins, nil
}

// Shutdown gracefully shuts down all applications.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down app manager")

	// Runtime close handles instance cleanup
	if err := m.runtime.Close(ctx); err != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(err))
		return err
	}

	m.logger.Info("App manager shutdown complete")
	return nil
}

// Registry returns the application registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether applications have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
