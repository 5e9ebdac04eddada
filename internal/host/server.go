// Package host assembles the runtime, storage backend and app manager into
// the process that runs miniquad applications.
package host

import (
	"context"
	"fmt"
	"time"

	"github.com/woxQAQ/quadhost/internal/app"
	"github.com/woxQAQ/quadhost/internal/config"
	"github.com/woxQAQ/quadhost/internal/location"
	"github.com/woxQAQ/quadhost/internal/storage"
	"github.com/woxQAQ/quadhost/internal/wasm"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type Server struct {
	cfg         *config.Config
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	backend     storage.Backend
	opener      location.Opener
	manager     *app.Manager
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: time.Duration(cfg.Wasm.ExecutionTimeout) * time.Second,
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	backend, err := openBackend(cfg.Storage)
	if err != nil {
		return nil, multierr.Append(
			fmt.Errorf("failed to open storage: %w", err),
			wasmRuntime.Close(ctx),
		)
	}

	s := &Server{
		cfg:         cfg,
		logger:      logger,
		wasmRuntime: wasmRuntime,
		backend:     backend,
		opener:      location.NewLogOpener(logger),
		manager:     app.NewManager(cfg, wasmRuntime, logger),
	}
	s.manager.RegisterPlugin(protocol.StoragePlugin, s.newStorageBridge)
	s.manager.RegisterPlugin(protocol.URLPlugin, s.newURLBridge)

	logger.Info("Host initialized",
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
		zap.String("storage_backend", cfg.Storage.Backend),
	)

	return s, nil
}

func openBackend(cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StorageSQLite:
		return storage.OpenSQLite(cfg.Path, cfg.QuotaBytes)
	case config.StorageMemory, "":
		return storage.NewMemoryBackend(cfg.QuotaBytes), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Manager returns the application manager.
func (s *Server) Manager() *app.Manager {
	return s.manager
}

// Opener returns where links opened in a new tab go.
func (s *Server) Opener() location.Opener {
	return s.opener
}

// Run loads the application in dir and runs its entrypoint.
func (s *Server) Run(ctx context.Context, dir string) (*wasm.Instance, error) {
	a, err := s.manager.LoadApp(ctx, dir)
	if err != nil {
		return nil, err
	}
	return s.manager.Run(ctx, a.Name())
}

// pageURL is where app starts: its manifest address or the host default.
func (s *Server) pageURL(a *app.App) string {
	if u := a.PageURL(); u != "" {
		return u
	}
	return s.cfg.Page.URL
}

// newStorageBridge gives the instance the store of its page origin, so
// instances of apps served from one origin share entries.
func (s *Server) newStorageBridge(ctx context.Context, a *app.App) (wasm.Plugin, error) {
	page, err := location.NewPage(s.pageURL(a))
	if err != nil {
		return nil, err
	}
	store, err := s.backend.Open(ctx, page.Origin())
	if err != nil {
		return nil, err
	}
	return storage.NewBridge(store, s.logger), nil
}

func (s *Server) newURLBridge(ctx context.Context, a *app.App) (wasm.Plugin, error) {
	page, err := location.NewPage(s.pageURL(a))
	if err != nil {
		return nil, err
	}
	return location.NewBridge(page, s.opener, s.logger), nil
}

// Close gracefully shuts down the server.
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down host")

	var err error
	if cerr := s.manager.Shutdown(ctx); cerr != nil {
		err = multierr.Append(err, cerr)
	}
	if cerr := s.backend.Close(); cerr != nil {
		s.logger.Error("Failed to close storage", zap.Error(cerr))
		err = multierr.Append(err, cerr)
	}
	if err != nil {
		return err
	}

	s.logger.Info("Host shutdown complete")
	return nil
}
