package wasm

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// ModuleLoader reads guest binaries and compiles them into the runtime's
// module cache.
type ModuleLoader struct {
	runtime *Runtime
	logger  *zap.Logger
}

// NewModuleLoader creates a new module loader.
func NewModuleLoader(runtime *Runtime, logger *zap.Logger) *ModuleLoader {
	return &ModuleLoader{
		runtime: runtime,
		logger:  logger.With(zap.String("component", "wasm-loader")),
	}
}

// ModuleSource provides guest bytecode under a cache key.
type ModuleSource interface {
	Bytes() ([]byte, error)

	// Name is the cache key instances are created from.
	Name() string
}

// FileModuleSource reads a guest from disk; the path is its name.
type FileModuleSource struct {
	Path string
}

func (f *FileModuleSource) Bytes() ([]byte, error) { return os.ReadFile(f.Path) }
func (f *FileModuleSource) Name() string           { return f.Path }

// MemoryModuleSource serves a guest already held in memory.
type MemoryModuleSource struct {
	ModuleName string
	Data       []byte
}

func (m *MemoryModuleSource) Bytes() ([]byte, error) { return m.Data, nil }
func (m *MemoryModuleSource) Name() string           { return m.ModuleName }

// GuestImport is one function a guest expects the host to provide.
type GuestImport struct {
	Module string
	Name   string
}

// LoadModule compiles source unless a module of the same name is cached.
func (l *ModuleLoader) LoadModule(ctx context.Context, source ModuleSource) (*CompiledModule, error) {
	if cached, ok := l.runtime.GetCompiledModule(source.Name()); ok {
		l.logger.Debug("Module cache hit",
			zap.String("module", source.Name()),
		)
		return cached, nil
	}

	wasmBytes, err := source.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read module %s: %w", source.Name(), err)
	}

	l.logger.Info("Compiling guest",
		zap.String("module", source.Name()),
		zap.Int("size_bytes", len(wasmBytes)),
	)

	start := time.Now()

	// Decoding and validation happen here; the shared compilation cache is
	// filled for the instance runtimes created later.
	compiled, err := l.runtime.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, &CompilationError{
			ModuleName: source.Name(),
			Err:        err,
		}
	}

	module := &CompiledModule{
		Module:     compiled,
		Binary:     wasmBytes,
		Name:       source.Name(),
		Source:     source.Name(),
		SizeBytes:  int64(len(wasmBytes)),
		Imports:    guestImports(compiled),
		CompiledAt: time.Now().Unix(),
	}
	l.runtime.StoreCompiledModule(module)

	l.logger.Info("Guest compiled",
		zap.String("module", source.Name()),
		zap.Int("imports", len(module.Imports)),
		zap.Duration("duration", time.Since(start)),
	)

	return module, nil
}

// Forget drops a module from the cache so the next load recompiles it.
func (l *ModuleLoader) Forget(ctx context.Context, name string) error {
	mod, ok := l.runtime.GetCompiledModule(name)
	if !ok {
		return &ModuleNotFoundError{ModuleName: name}
	}
	l.runtime.modules.Delete(name)
	if mod.Module != nil {
		return mod.Module.Close(ctx)
	}
	return nil
}

// LoadModuleFromFile loads the guest at path.
func (l *ModuleLoader) LoadModuleFromFile(ctx context.Context, path string) (*CompiledModule, error) {
	return l.LoadModule(ctx, &FileModuleSource{Path: path})
}

// LoadModuleFromMemory loads a guest from data, cached under name.
func (l *ModuleLoader) LoadModuleFromMemory(ctx context.Context, name string, data []byte) (*CompiledModule, error) {
	return l.LoadModule(ctx, &MemoryModuleSource{ModuleName: name, Data: data})
}

// ImportsFrom returns the function names the guest imports from module,
// sorted.
func (c *CompiledModule) ImportsFrom(module string) []string {
	var names []string
	for _, imp := range c.Imports {
		if imp.Module == module {
			names = append(names, imp.Name)
		}
	}
	sort.Strings(names)
	return names
}

func guestImports(compiled wazero.CompiledModule) []GuestImport {
	fns := compiled.ImportedFunctions()
	out := make([]GuestImport, 0, len(fns))
	for _, fn := range fns {
		module, name, _ := fn.Import()
		out = append(out, GuestImport{Module: module, Name: name})
	}
	return out
}
