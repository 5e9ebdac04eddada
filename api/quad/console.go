//go:build wasip1

package quad

import (
	"runtime"
	"unsafe"
)

//go:wasmimport env console_log
func consoleLog(ptr uint32)

//go:wasmimport env console_debug
func consoleDebug(ptr uint32)

//go:wasmimport env console_info
func consoleInfo(ptr uint32)

//go:wasmimport env console_warn
func consoleWarn(ptr uint32)

//go:wasmimport env console_error
func consoleError(ptr uint32)

// Log writes msg to the host log at level.
func Log(level uint32, msg string) {
	buf := append([]byte(msg), 0)
	ptr := uint32(uintptr(unsafe.Pointer(&buf[0])))

	switch level {
	case LevelDebug:
		consoleDebug(ptr)
	case LevelWarn:
		consoleWarn(ptr)
	case LevelError:
		consoleError(ptr)
	case LevelInfo:
		consoleInfo(ptr)
	default:
		consoleLog(ptr)
	}
	runtime.KeepAlive(buf)
}
