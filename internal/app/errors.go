package app

import (
	"fmt"
)

// ManifestNotFoundError occurs when manifest.yaml is not found in a directory.
type ManifestNotFoundError struct {
	Path string
	Err  error
}

func (e *ManifestNotFoundError) Error() string {
	return fmt.Sprintf("manifest not found at '%s': %v", e.Path, e.Err)
}

func (e *ManifestNotFoundError) Unwrap() error {
	return e.Err
}

// ManifestParseError occurs when manifest.yaml cannot be parsed as valid YAML.
type ManifestParseError struct {
	Path string
	Err  error
}

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest at '%s': %v", e.Path, e.Err)
}

func (e *ManifestParseError) Unwrap() error {
	return e.Err
}

// ManifestValidationError occurs when manifest.yaml fails validation.
type ManifestValidationError struct {
	Path    string
	Field   string
	Message string
}

func (e *ManifestValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("manifest validation failed at '%s': %s (field: %s)",
			e.Path, e.Message, e.Field)
	}
	return fmt.Sprintf("manifest validation failed at '%s': %s", e.Path, e.Message)
}

// WasmNotFoundError occurs when the Wasm file referenced in manifest doesn't exist.
type WasmNotFoundError struct {
	ManifestPath string
	WasmFile     string
}

func (e *WasmNotFoundError) Error() string {
	return fmt.Sprintf("Wasm file '%s' not found (referenced in manifest '%s')",
		e.WasmFile, e.ManifestPath)
}

// AppLoadError occurs when application loading fails.
type AppLoadError struct {
	AppName string
	Err     error
}

func (e *AppLoadError) Error() string {
	return fmt.Sprintf("failed to load app '%s': %v", e.AppName, e.Err)
}

func (e *AppLoadError) Unwrap() error {
	return e.Err
}

// AppNotFoundError occurs when an application is not found in the registry.
type AppNotFoundError struct {
	AppName string
}

func (e *AppNotFoundError) Error() string {
	return fmt.Sprintf("app '%s' not found", e.AppName)
}

// AppAlreadyRegisteredError occurs when attempting to register a duplicate application.
type AppAlreadyRegisteredError struct {
	AppName string
}

func (e *AppAlreadyRegisteredError) Error() string {
	return fmt.Sprintf("app '%s' is already registered", e.AppName)
}

// NoAppsFoundError occurs when no applications are found in the configured paths.
type NoAppsFoundError struct {
	Paths []string
}

func (e *NoAppsFoundError) Error() string {
	return fmt.Sprintf("no apps found in paths: %v", e.Paths)
}

// PluginUnavailableError occurs when an application requests a plugin the
// host has no factory for.
type PluginUnavailableError struct {
	AppName    string
	PluginName string
}

func (e *PluginUnavailableError) Error() string {
	return fmt.Sprintf("app '%s' requests plugin '%s', which the host does not provide",
		e.AppName, e.PluginName)
}

// MissingPluginError occurs when a guest imports a plugin function its
// manifest does not request.
type MissingPluginError struct {
	AppName    string
	PluginName string
	Import     string
}

func (e *MissingPluginError) Error() string {
	return fmt.Sprintf("app '%s' imports %s but its manifest does not request plugin '%s'",
		e.AppName, e.Import, e.PluginName)
}
