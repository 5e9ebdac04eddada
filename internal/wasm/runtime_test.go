package wasm

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

func TestRuntimeCloseIdempotent(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Close multiple times should not error.
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestDefaultRuntimeConfig(t *testing.T) {
	config := DefaultRuntimeConfig()

	if config.MemoryPages != 256 {
		t.Errorf("Default memory pages = %d, want 256", config.MemoryPages)
	}

	if config.DebugEnabled {
		t.Error("Debug should be disabled by default")
	}

	if config.MaxInstances != 100 {
		t.Errorf("Default max instances = %d, want 100", config.MaxInstances)
	}

	if config.ExecutionTimeout != 30*time.Second {
		t.Errorf("Default execution timeout = %v, want 30s", config.ExecutionTimeout)
	}
}

func TestNewRuntime(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		config *RuntimeConfig
		pages  uint32
	}{
		{"defaults", nil, 256},
		{"custom", &RuntimeConfig{MemoryPages: 128, DebugEnabled: true, MaxInstances: 50}, 128},
		{"unbounded memory", &RuntimeConfig{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runtime, err := NewRuntime(ctx, logger, tt.config)
			if err != nil {
				t.Fatalf("NewRuntime() failed: %v", err)
			}
			defer runtime.Close(ctx)

			if runtime.Config().MemoryPages != tt.pages {
				t.Errorf("MemoryPages = %d, want %d", runtime.Config().MemoryPages, tt.pages)
			}
		})
	}
}

func TestRuntimeCacheDir(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	config := DefaultRuntimeConfig()
	config.CacheDir = t.TempDir()

	runtime, err := NewRuntime(ctx, logger, config)
	if err != nil {
		t.Fatalf("Failed to create runtime with cache dir: %v", err)
	}

	if err := runtime.Close(ctx); err != nil {
		t.Errorf("Failed to close runtime: %v", err)
	}
}

func TestRuntimeContextCancellation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx, cancel := context.WithCancel(context.Background())

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	// Cancel context.
	cancel()

	// Close with cancelled context.
	err = runtime.Close(ctx)
	// wazero should handle cancelled context gracefully
	if err != nil && err != context.Canceled {
		t.Errorf("Unexpected error when closing with cancelled context: %v", err)
	}
}

func TestRuntimeModuleCache(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	// Test storing and retrieving compiled modules.
	module := &CompiledModule{
		Name:       "test-module",
		Source:     "test",
		SizeBytes:  1024,
		CompiledAt: time.Now().Unix(),
	}

	runtime.StoreCompiledModule(module)

	retrieved, ok := runtime.GetCompiledModule("test-module")
	if !ok {
		t.Fatal("Failed to retrieve module from cache")
	}

	if retrieved.Name != "test-module" {
		t.Errorf("Retrieved wrong module: %s", retrieved.Name)
	}
}

func TestRuntimeInstanceTracking(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer runtime.Close(ctx)

	// Test storing and retrieving instances.
	instanceID := "test-instance"
	instanceData := "test-data"

	runtime.StoreInstance(instanceID, instanceData)

	retrieved, ok := runtime.GetInstance(instanceID)
	if !ok {
		t.Fatal("Failed to retrieve instance from tracking")
	}

	if retrieved != instanceData {
		t.Errorf("Retrieved wrong instance data")
	}

	if runtime.InstanceCount() != 1 {
		t.Errorf("InstanceCount() = %d, want 1", runtime.InstanceCount())
	}

	// Test deletion.
	runtime.DeleteInstance(instanceID)

	_, ok = runtime.GetInstance(instanceID)
	if ok {
		t.Error("Instance should have been deleted")
	}

	if runtime.InstanceCount() != 0 {
		t.Errorf("InstanceCount() = %d after delete, want 0", runtime.InstanceCount())
	}
}

func TestRuntimeIsClosed(t *testing.T) {
	logger := zaptest.NewLogger(t)
	ctx := context.Background()

	runtime, err := NewRuntime(ctx, logger, nil)
	if err != nil {
		t.Fatal(err)
	}

	if runtime.IsClosed() {
		t.Error("Runtime should not be closed initially")
	}

	runtime.Close(ctx)

	if !runtime.IsClosed() {
		t.Error("Runtime should be closed after Close()")
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			"compilation",
			&CompilationError{ModuleName: "apps/demo/demo.wasm", Err: cause},
			"failed to compile Wasm module 'apps/demo/demo.wasm': boom",
		},
		{
			"instantiation",
			&InstantiationError{ModuleName: "demo.wasm", InstanceID: "inst-1", Err: cause},
			"failed to instantiate module 'demo.wasm' (instance: inst-1): boom",
		},
		{
			"module not found",
			&ModuleNotFoundError{ModuleName: "demo.wasm"},
			"module 'demo.wasm' not found in cache",
		},
		{
			"function not found",
			&FunctionNotFoundError{ModuleName: "demo.wasm", FunctionName: "main"},
			"function 'main' not found in module 'demo.wasm'",
		},
		{
			"memory access",
			&MemoryAccessError{Operation: "read", Address: 65536, Length: 4, Err: cause},
			"memory access failed (op=read, addr=65536, len=4): boom",
		},
		{
			"host function",
			&HostFunctionError{FunctionName: "quad_storage_set", Err: cause},
			"host function 'quad_storage_set' failed: boom",
		},
		{
			"plugin",
			&PluginError{PluginName: "quad_storage", Stage: "init", Err: cause},
			"plugin 'quad_storage' failed during init: boom",
		},
		{
			"duplicate import",
			&ImportAlreadyRegisteredError{ImportName: "quad_url_path", Owner: "quad_url"},
			"import 'quad_url_path' is already registered by plugin 'quad_url'",
		},
		{
			"instance limit",
			&InstanceLimitError{Limit: 2},
			"instance limit reached (max 2)",
		},
		{
			"timeout",
			&TimeoutError{Duration: 5 * time.Second},
			"Wasm execution timed out after 5s",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	for _, err := range []error{
		&CompilationError{Err: cause},
		&InstantiationError{Err: cause},
		&MemoryAccessError{Err: cause},
		&HostFunctionError{Err: cause},
		&PluginError{Err: cause},
	} {
		if !errors.Is(err, cause) {
			t.Errorf("%T does not unwrap to its cause", err)
		}
	}
}
