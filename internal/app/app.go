// Package app loads miniquad applications from disk and runs them with the
// plugins their manifests request.
package app

import (
	"time"

	"github.com/woxQAQ/quadhost/internal/wasm"
)

// App represents a loaded application with its manifest and compiled Wasm module.
type App struct {
	// Manifest is the parsed application metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the application was loaded
	LoadedAt time.Time
}

// Name returns the application name.
func (a *App) Name() string {
	return a.Manifest.Name
}

// Version returns the application version.
func (a *App) Version() string {
	return a.Manifest.Version
}

// Entrypoint returns the exported function run on start.
func (a *App) Entrypoint() string {
	return a.Manifest.EntrypointName()
}

// Plugins returns the plugin names the application requests.
func (a *App) Plugins() []string {
	return a.Manifest.Plugins
}

// PageURL returns the address the application starts at, "" for the host default.
func (a *App) PageURL() string {
	return a.Manifest.Page.URL
}

// UsesPlugin checks if the application requests a plugin.
func (a *App) UsesPlugin(name string) bool {
	for _, p := range a.Manifest.Plugins {
		if p == name {
			return true
		}
	}
	return false
}
