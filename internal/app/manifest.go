package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woxQAQ/quadhost/internal/location"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"gopkg.in/yaml.v3"
)

// DefaultEntrypoint is the export run when the manifest names none.
const DefaultEntrypoint = "main"

// Manifest represents the application manifest.yaml structure.
type Manifest struct {
	Name       string     `yaml:"name"`
	Version    string     `yaml:"version"`
	Wasm       WasmConfig `yaml:"wasm"`
	Entrypoint string     `yaml:"entrypoint"`
	Plugins    []string   `yaml:"plugins"`
	Page       PageConfig `yaml:"page"`
	Author     string     `yaml:"author"`
	License    string     `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`
	Size int    `yaml:"size"` // KB
}

// PageConfig holds the initial page state.
type PageConfig struct {
	URL string `yaml:"url"`
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	known := make(map[string]bool)
	for _, p := range protocol.KnownPlugins() {
		known[p] = true
	}
	seen := make(map[string]bool)
	for _, p := range m.Plugins {
		if !known[p] {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "plugins",
				Message: fmt.Sprintf("unknown plugin: %s (must be one of: %s)", p, strings.Join(protocol.KnownPlugins(), ", ")),
			}
		}
		if seen[p] {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "plugins",
				Message: fmt.Sprintf("plugin listed twice: %s", p),
			}
		}
		seen[p] = true
	}

	if m.Page.URL != "" {
		if _, err := location.NewPage(m.Page.URL); err != nil {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "page.url",
				Message: fmt.Sprintf("page.url must be an absolute http(s) URL: %s", m.Page.URL),
			}
		}
	}

	// Validate Wasm file exists
	wasmPath := m.WasmPath()
	if _, err := os.Stat(wasmPath); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// EntrypointName returns the entrypoint export, defaulting to "main".
func (m *Manifest) EntrypointName() string {
	if m.Entrypoint == "" {
		return DefaultEntrypoint
	}
	return m.Entrypoint
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// WasmPath returns the absolute path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
