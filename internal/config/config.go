package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

type Config struct {
	AppPaths []string      `mapstructure:"app_paths"`
	LogLevel string        `mapstructure:"log_level"`
	Wasm     WasmConfig    `mapstructure:"wasm"`
	Storage  StorageConfig `mapstructure:"storage"`
	Page     PageConfig    `mapstructure:"page"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory, in-memory when empty.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Module execution timeout (seconds).
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// StorageConfig selects where quad_storage keeps its entries.
type StorageConfig struct {
	// "memory" or "sqlite".
	Backend string `mapstructure:"backend"`
	// SQLite database file.
	Path string `mapstructure:"path"`
	// Per-origin quota in bytes, 0 for unlimited.
	QuotaBytes int64 `mapstructure:"quota_bytes"`
}

// PageConfig holds the address apps start at when their manifest sets none.
type PageConfig struct {
	URL string `mapstructure:"url"`
}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("app_paths", []string{"./apps"})
	v.SetDefault("log_level", "info")

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 100)
	v.SetDefault("wasm.execution_timeout", 30)

	// Storage defaults
	v.SetDefault("storage.backend", StorageMemory)
	v.SetDefault("storage.path", "./quadhost.db")
	v.SetDefault("storage.quota_bytes", 5*1024*1024)

	v.SetDefault("page.url", "http://localhost/")

	v.SetEnvPrefix("QUADHOST")
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q (must be %s or %s)",
			c.Storage.Backend, StorageMemory, StorageSQLite)
	}
	if c.Storage.Backend == StorageSQLite && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for the %s backend", StorageSQLite)
	}
	if c.Storage.QuotaBytes < 0 {
		return fmt.Errorf("storage.quota_bytes must not be negative")
	}
	if c.Wasm.ExecutionTimeout < 0 {
		return fmt.Errorf("wasm.execution_timeout must not be negative")
	}
	return nil
}
