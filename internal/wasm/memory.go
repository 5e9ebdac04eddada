package wasm

import (
	"bytes"
	"errors"

	"github.com/tetratelabs/wazero/api"
)

// errOutOfRange is wrapped by MemoryAccessError when a range falls outside
// the guest's linear memory.
var errOutOfRange = errors.New("out of range")

// Memory provides safe memory operations for Wasm module interaction.
//
// Guest strings reach the host either as (ptr, len) pairs, as NUL-terminated
// C strings (console imports), or by being copied into an object handle
// first. Every read and write is bounds checked against the current memory
// size; failures are reported as *MemoryAccessError.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper for the module's exported memory.
// It returns nil when the module has no memory.
func NewMemory(module api.Module) *Memory {
	mem := module.Memory()
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// ReadBytes copies length bytes starting at ptr.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfRange}
	}
	// Read returns a view that is invalidated when memory grows.
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// ReadString reads length bytes starting at ptr as a string.
func (m *Memory) ReadString(ptr uint32, length uint32) (string, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: length, Err: errOutOfRange}
	}
	return string(buf), nil
}

// ReadCString reads a NUL-terminated string starting at ptr, looking at no
// more than maxLen bytes. A missing terminator yields the bytes up to maxLen
// or the end of memory.
func (m *Memory) ReadCString(ptr uint32, maxLen uint32) (string, error) {
	size := m.mem.Size()
	if ptr >= size {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}
	if avail := size - ptr; maxLen > avail {
		maxLen = avail
	}
	buf, ok := m.mem.Read(ptr, maxLen)
	if !ok {
		return "", &MemoryAccessError{Operation: "read", Address: ptr, Length: maxLen, Err: errOutOfRange}
	}
	if idx := bytes.IndexByte(buf, 0); idx >= 0 {
		return string(buf[:idx]), nil
	}
	return string(buf), nil
}

// WriteBytes writes data starting at ptr.
func (m *Memory) WriteBytes(ptr uint32, data []byte) error {
	if !m.mem.Write(ptr, data) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(data)), Err: errOutOfRange}
	}
	return nil
}

// WriteString writes s starting at ptr without a terminator.
func (m *Memory) WriteString(ptr uint32, s string) error {
	if !m.mem.WriteString(ptr, s) {
		return &MemoryAccessError{Operation: "write", Address: ptr, Length: uint32(len(s)), Err: errOutOfRange}
	}
	return nil
}
