//go:build wasip1

package quad

import (
	"runtime"
	"unsafe"
)

//go:wasmimport env js_create_string
func jsCreateString(ptr, length uint32) int32

//go:wasmimport env js_string_length
func jsStringLength(handle int32) uint32

//go:wasmimport env js_unwrap_to_str
func jsUnwrapToStr(handle int32, buf, maxLen uint32)

//go:wasmimport env js_free_object
func jsFreeObject(handle int32)

//go:wasmimport env js_is_nil
func jsIsNil(handle int32) uint32

// jsObjects talks to the host object table through the jsutils imports.
type jsObjects struct{}

var objects objectHost = jsObjects{}

func (jsObjects) create(s string) int32 {
	ptr, length := stringToPtr(s)
	h := jsCreateString(ptr, length)
	runtime.KeepAlive(s)
	return h
}

func (jsObjects) length(handle int32) uint32 { return jsStringLength(handle) }

func (jsObjects) unwrap(handle int32, buf []byte) {
	if len(buf) == 0 {
		return
	}
	jsUnwrapToStr(handle, uint32(uintptr(unsafe.Pointer(&buf[0]))), uint32(len(buf)))
	runtime.KeepAlive(buf)
}

func (jsObjects) free(handle int32) { jsFreeObject(handle) }

func (jsObjects) isNil(handle int32) bool { return jsIsNil(handle) != 0 }

// stringToPtr returns the address and length of s in linear memory.
func stringToPtr(s string) (uint32, uint32) {
	if len(s) == 0 {
		return 0, 0
	}
	ptr := unsafe.Pointer(unsafe.StringData(s))
	return uint32(uintptr(ptr)), uint32(len(s))
}
