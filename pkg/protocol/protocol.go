package protocol

import "strings"

// Names shared by the host plugins and guest bindings.
// Every import lives in the env namespace, the module name miniquad guests
// link their imports against.

// ImportModule is the Wasm import namespace populated by plugins.
const ImportModule = "env"

// NilHandle is the object handle standing for null/undefined.
const NilHandle int32 = -1

// Plugin names and versions.
const (
	JSUtilsPlugin  = "sapp_jsutils"
	ConsolePlugin  = "console"
	StoragePlugin  = "quad_storage"
	URLPlugin      = "quad_url"
	JSUtilsVersion = "0.1.0"
	ConsoleVersion = "0.1.0"
	StorageVersion = "0.1.2"
	URLVersion     = "0.1.0"
)

// Object marshaling imports.
const (
	ImportCreateString = "js_create_string"
	ImportStringLength = "js_string_length"
	ImportUnwrapToStr  = "js_unwrap_to_str"
	ImportFreeObject   = "js_free_object"
	ImportIsNil        = "js_is_nil"
)

// Console imports, each taking a pointer to a NUL-terminated string.
const (
	ImportConsoleLog   = "console_log"
	ImportConsoleDebug = "console_debug"
	ImportConsoleInfo  = "console_info"
	ImportConsoleWarn  = "console_warn"
	ImportConsoleError = "console_error"
)

// Storage bridge imports.
const (
	ImportStorageLength   = "quad_storage_length"
	ImportStorageHasKey   = "quad_storage_has_key"
	ImportStorageKey      = "quad_storage_key"
	ImportStorageHasValue = "quad_storage_has_value"
	ImportStorageGet      = "quad_storage_get"
	ImportStorageSet      = "quad_storage_set"
	ImportStorageRemove   = "quad_storage_remove"
	ImportStorageClear    = "quad_storage_clear"
)

// URL bridge imports.
const (
	ImportURLPath                   = "quad_url_path"
	ImportURLParamCount             = "quad_url_param_count"
	ImportURLGetKey                 = "quad_url_get_key"
	ImportURLGetValue               = "quad_url_get_value"
	ImportURLLinkOpen               = "quad_url_link_open"
	ImportURLSetProgramParameter    = "quad_url_set_program_parameter"
	ImportURLDeleteProgramParameter = "quad_url_delete_program_parameter"
	ImportURLGetHash                = "quad_url_get_hash"
	ImportURLSetHash                = "quad_url_set_hash"
)

// KnownPlugins lists the plugins an application manifest may request.
func KnownPlugins() []string {
	return []string{StoragePlugin, URLPlugin}
}

// PluginForImport returns the plugin that provides the env import name.
// Only plugins an app can opt into are reported; builtins return false.
func PluginForImport(name string) (string, bool) {
	for _, plugin := range KnownPlugins() {
		if strings.HasPrefix(name, plugin+"_") {
			return plugin, true
		}
	}
	return "", false
}

// Bool converts a Go bool to the i32 convention used across the boundary.
func Bool(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
