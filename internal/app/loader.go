package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/woxQAQ/quadhost/internal/wasm"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

// Loader handles loading applications from disk.
type Loader struct {
	runtime      *wasm.Runtime
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new application loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		runtime:      runtime,
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "app-loader")),
	}
}

// LoadApp loads a single application from a directory.
func (l *Loader) LoadApp(ctx context.Context, dir string) (*App, error) {
	l.logger.Debug("Loading app", zap.String("dir", dir))

	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading app",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Strings("plugins", manifest.Plugins),
	)

	// Compile Wasm module (uses internal caching)
	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, manifest.WasmPath())
	if err != nil {
		return nil, &AppLoadError{
			AppName: manifest.Name,
			Err:     err,
		}
	}

	if compiled.Module.ExportedFunctions()[manifest.EntrypointName()] == nil {
		return nil, &AppLoadError{
			AppName: manifest.Name,
			Err: &wasm.FunctionNotFoundError{
				ModuleName:   compiled.Name,
				FunctionName: manifest.EntrypointName(),
			},
		}
	}

	if err := checkImports(manifest, compiled); err != nil {
		return nil, &AppLoadError{AppName: manifest.Name, Err: err}
	}

	app := &App{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("App loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
	)

	return app, nil
}

// DiscoverApps scans directories for applications. A path that holds a
// manifest.yaml itself is loaded as one application; otherwise each of its
// subdirectories is tried.
func (l *Loader) DiscoverApps(ctx context.Context, paths []string) ([]*App, error) {
	var apps []*App
	var errs []error

	for _, basePath := range paths {
		l.logger.Debug("Scanning app directory", zap.String("path", basePath))

		if _, err := os.Stat(filepath.Join(basePath, "manifest.yaml")); err == nil {
			app, err := l.LoadApp(ctx, basePath)
			if err != nil {
				l.logger.Error("Failed to load app",
					zap.String("dir", basePath),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}
			apps = append(apps, app)
			continue
		}

		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("App path does not exist", zap.String("path", basePath))
				continue
			}
			return nil, fmt.Errorf("failed to read directory '%s': %w", basePath, err)
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			appDir := filepath.Join(basePath, entry.Name())

			app, err := l.LoadApp(ctx, appDir)
			if err != nil {
				l.logger.Error("Failed to load app",
					zap.String("dir", appDir),
					zap.Error(err),
				)
				errs = append(errs, err)
				continue
			}

			apps = append(apps, app)
		}
	}

	if len(apps) > 0 && len(errs) > 0 {
		l.logger.Warn("Some apps failed to load",
			zap.Int("loaded", len(apps)),
			zap.Int("failed", len(errs)),
		)
	}

	if len(apps) == 0 {
		return nil, &NoAppsFoundError{Paths: paths}
	}

	return apps, nil
}

// checkImports fails when the guest links against a plugin the manifest
// leaves out.
func checkImports(manifest *Manifest, compiled *wasm.CompiledModule) error {
	for _, name := range compiled.ImportsFrom(protocol.ImportModule) {
		plugin, ok := protocol.PluginForImport(name)
		if !ok || slices.Contains(manifest.Plugins, plugin) {
			continue
		}
		return &MissingPluginError{
			AppName:    manifest.Name,
			PluginName: plugin,
			Import:     name,
		}
	}
	return nil
}
