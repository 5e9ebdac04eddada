package wasm

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

const reactorInit = "_initialize"

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, generates UUID).
	InstanceID string

	// Plugins to initialize and register, in order. The object marshaling
	// and console imports are always installed first.
	Plugins []Plugin
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// Private runtime holding the env host module and the guest.
	runtime wazero.Runtime

	// Host module with every plugin import.
	env api.Module

	// wazero module instance.
	module api.Module

	guest   *Guest
	plugins []Plugin
	owner   *Runtime
	timeout time.Duration
	logger  *zap.Logger

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64
}

// Instantiate creates a new instance from a compiled module.
//
// Every plugin gets OnInit and then RegisterPlugin before the guest is
// instantiated against the resulting env namespace. The guest's start
// function is not run; callers invoke the entrypoint with Call.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	if m.runtime.IsClosed() {
		return nil, errors.New("wasm runtime is closed")
	}

	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	if limit := m.runtime.config.MaxInstances; limit > 0 && m.runtime.InstanceCount() >= limit {
		return nil, &InstanceLimitError{Limit: limit}
	}

	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = "inst-" + uuid.NewString()
	}

	logger := m.logger.With(zap.String("instance_id", instanceID))
	logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.Int("plugins", len(config.Plugins)),
	)

	plugins := make([]Plugin, 0, len(config.Plugins)+2)
	plugins = append(plugins, newJSUtils(m.logger), NewHostFunctions(m.logger))
	plugins = append(plugins, config.Plugins...)

	rt := m.runtime.newInstanceRuntime(ctx)
	guest := newGuest(instanceID, logger)

	for _, p := range plugins {
		if err := p.OnInit(guest); err != nil {
			rt.Close(ctx)
			return nil, &PluginError{PluginName: p.Name(), Stage: "init", Err: err}
		}
	}

	imports := newImportTable(rt.NewHostModuleBuilder(protocol.ImportModule), logger)
	for _, p := range plugins {
		imports.current = p.Name()
		if err := p.RegisterPlugin(imports); err != nil {
			rt.Close(ctx)
			return nil, &PluginError{PluginName: p.Name(), Stage: "register", Err: err}
		}
		logger.Debug("Plugin registered",
			zap.String("plugin", p.Name()),
			zap.String("version", p.Version()),
		)
	}

	env, err := imports.builder.Instantiate(ctx)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}

	// Recompiling in the instance runtime is served by the shared cache.
	code, err := rt.CompileModule(ctx, compiled.Binary)
	if err != nil {
		rt.Close(ctx)
		return nil, &CompilationError{ModuleName: config.ModuleName, Err: err}
	}

	// Guests built for wasip1 need the WASI namespace next to env.
	if len(compiled.ImportsFrom(wasi_snapshot_preview1.ModuleName)) > 0 {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			rt.Close(ctx)
			return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
		}
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithStartFunctions().
		WithStdout(os.Stdout).
		WithStderr(os.Stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)

	module, err := rt.InstantiateModule(ctx, code, moduleConfig)
	if err != nil {
		rt.Close(ctx)
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}
	guest.bind(module)

	// Reactor modules set up their runtime in _initialize before any
	// other export may run.
	if init := module.ExportedFunction(reactorInit); init != nil {
		if _, err := init.Call(ctx); err != nil {
			rt.Close(ctx)
			return nil, &InstantiationError{
				ModuleName: config.ModuleName,
				InstanceID: instanceID,
				Err:        fmt.Errorf("%s: %w", reactorInit, err),
			}
		}
	}

	instance := &Instance{
		runtime:   rt,
		env:       env,
		module:    module,
		guest:     guest,
		plugins:   plugins,
		owner:     m.runtime,
		timeout:   m.runtime.config.ExecutionTimeout,
		logger:    logger,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
	}

	// Track active instance.
	m.runtime.StoreInstance(instanceID, instance)

	logger.Info("Module instantiated successfully",
		zap.Int("plugins", len(plugins)),
		zap.Bool("memory", guest.Memory() != nil),
	)

	return instance, nil
}

// Guest returns the guest handle shared with the plugins.
func (i *Instance) Guest() *Guest {
	return i.guest
}

// Plugins returns the plugins installed on this instance, builtins first.
func (i *Instance) Plugins() []Plugin {
	out := make([]Plugin, len(i.plugins))
	copy(out, i.plugins)
	return out
}

// Import returns a host import by name, nil when no plugin registered it.
func (i *Instance) Import(name string) api.Function {
	return i.env.ExportedFunction(name)
}

// Call invokes a guest export, bounded by the configured execution timeout.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := i.module.ExportedFunction(name)
	if fn == nil {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{Duration: i.timeout}
		}
		return nil, fmt.Errorf("call %s: %w", name, err)
	}
	return results, nil
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.owner.DeleteInstance(i.ID)
	return i.runtime.Close(ctx)
}
