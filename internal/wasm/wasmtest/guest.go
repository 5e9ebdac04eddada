// Package wasmtest assembles small Wasm guests for tests.
//
// A guest built here imports the requested functions, exports one page
// of memory as "memory", an empty "main" function, and for every import a
// trampoline export named "call_<import>" that forwards its arguments to the
// import and returns its results. Tests drive imports exactly as a real guest
// would, through Wasm call instructions.
package wasmtest

const (
	i32 = 0x7f

	sectionType     = 0x01
	sectionImport   = 0x02
	sectionFunction = 0x03
	sectionMemory   = 0x05
	sectionExport   = 0x07
	sectionCode     = 0x0a

	kindFunc   = 0x00
	kindMemory = 0x02

	opLocalGet = 0x20
	opCall     = 0x10
	opEnd      = 0x0b
)

// Import describes one imported function in terms of its i32 arity.
// Module defaults to "env".
type Import struct {
	Module  string
	Name    string
	Params  int
	Results int
}

// Func is a convenience constructor for Import.
func Func(name string, params, results int) Import {
	return Import{Name: name, Params: params, Results: results}
}

// Minimal is a guest exporting only memory and main.
func Minimal() []byte {
	return Guest()
}

// Guest assembles a module for the given imports.
func Guest(imports ...Import) []byte {
	n := uint32(len(imports))

	// Types: one per import, then () -> () for main.
	types := uleb(n + 1)
	for _, imp := range imports {
		types = append(types, funcType(imp.Params, imp.Results)...)
	}
	types = append(types, funcType(0, 0)...)

	importSec := uleb(n)
	for i, imp := range imports {
		module := imp.Module
		if module == "" {
			module = "env"
		}
		importSec = append(importSec, name(module)...)
		importSec = append(importSec, name(imp.Name)...)
		importSec = append(importSec, kindFunc)
		importSec = append(importSec, uleb(uint32(i))...)
	}

	// Defined functions: trampolines (type i) then main (type n).
	funcs := uleb(n + 1)
	for i := uint32(0); i < n; i++ {
		funcs = append(funcs, uleb(i)...)
	}
	funcs = append(funcs, uleb(n)...)

	memory := []byte{0x01, 0x00, 0x01}

	exports := uleb(n + 2)
	exports = append(exports, name("memory")...)
	exports = append(exports, kindMemory, 0x00)
	for i, imp := range imports {
		exports = append(exports, name("call_"+imp.Name)...)
		exports = append(exports, kindFunc)
		exports = append(exports, uleb(n+uint32(i))...)
	}
	exports = append(exports, name("main")...)
	exports = append(exports, kindFunc)
	exports = append(exports, uleb(2*n)...)

	code := uleb(n + 1)
	for i, imp := range imports {
		body := []byte{0x00} // no locals
		for p := 0; p < imp.Params; p++ {
			body = append(body, opLocalGet)
			body = append(body, uleb(uint32(p))...)
		}
		body = append(body, opCall)
		body = append(body, uleb(uint32(i))...)
		body = append(body, opEnd)
		code = append(code, uleb(uint32(len(body)))...)
		code = append(code, body...)
	}
	code = append(code, 0x02, 0x00, opEnd)

	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	out = append(out, section(sectionType, types)...)
	if n > 0 {
		out = append(out, section(sectionImport, importSec)...)
	}
	out = append(out, section(sectionFunction, funcs)...)
	out = append(out, section(sectionMemory, memory)...)
	out = append(out, section(sectionExport, exports)...)
	out = append(out, section(sectionCode, code)...)
	return out
}

func funcType(params, results int) []byte {
	b := []byte{0x60}
	b = append(b, uleb(uint32(params))...)
	for i := 0; i < params; i++ {
		b = append(b, i32)
	}
	b = append(b, uleb(uint32(results))...)
	for i := 0; i < results; i++ {
		b = append(b, i32)
	}
	return b
}

func section(id byte, content []byte) []byte {
	b := []byte{id}
	b = append(b, uleb(uint32(len(content)))...)
	return append(b, content...)
}

func name(s string) []byte {
	return append(uleb(uint32(len(s))), s...)
}

func uleb(v uint32) []byte {
	var b []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		b = append(b, c)
		if v == 0 {
			return b
		}
	}
}
