// Package quad is the guest side of the quadhost plugins. It wraps the env
// imports in plain Go functions for applications built with
// GOOS=wasip1 GOARCH=wasm.
//
// NOTE: uint32 is used for pointers and lengths because WebAssembly uses a
// 32-bit linear memory model. Strings cross the boundary as object handles:
// the guest copies bytes in with js_create_string and out with
// js_unwrap_to_str, and frees every handle it receives.
//
// Applications export their entrypoint (default "main") with
// //go:wasmexport.
package quad

// NilObject is the handle the host returns for "no value".
const NilObject int32 = -1

// Param is one query string pair.
type Param struct {
	Name  string
	Value string
}

// Console levels understood by the host.
const (
	LevelDebug uint32 = iota
	LevelInfo
	LevelWarn
	LevelError
)
