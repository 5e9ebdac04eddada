package wasm

import (
	"github.com/tetratelabs/wazero"
	"go.uber.org/zap"
)

// Plugin is a named bundle of host imports, the Go form of a miniquad
// plugin object.
//
// The instance manager calls OnInit exactly once and then RegisterPlugin
// exactly once, both before the guest is instantiated. The guest passed to
// OnInit becomes usable (memory, exports) once instantiation finishes, which
// is always before the guest can call any import.
type Plugin interface {
	Name() string
	Version() string
	OnInit(guest *Guest) error
	RegisterPlugin(imports *ImportTable) error
}

// ImportTable collects the host functions plugins place in the env
// namespace.
type ImportTable struct {
	builder wazero.HostModuleBuilder
	owners  map[string]string
	current string
	logger  *zap.Logger
}

func newImportTable(builder wazero.HostModuleBuilder, logger *zap.Logger) *ImportTable {
	return &ImportTable{
		builder: builder,
		owners:  make(map[string]string),
		logger:  logger,
	}
}

// Func exports fn under name. fn must follow wazero's WithFunc rules:
// optional context.Context and api.Module leading parameters followed by
// numeric Wasm parameters.
func (t *ImportTable) Func(name string, fn interface{}, paramNames ...string) error {
	if owner, exists := t.owners[name]; exists {
		return &ImportAlreadyRegisteredError{ImportName: name, Owner: owner}
	}

	fb := t.builder.NewFunctionBuilder().WithFunc(fn)
	if len(paramNames) > 0 {
		fb = fb.WithParameterNames(paramNames...)
	}
	fb.Export(name)

	t.owners[name] = t.current
	t.logger.Debug("Import registered",
		zap.String("import", name),
		zap.String("plugin", t.current),
	)
	return nil
}

// Has reports whether name has been registered.
func (t *ImportTable) Has(name string) bool {
	_, ok := t.owners[name]
	return ok
}

// Names returns the registered import names owned by plugin.
func (t *ImportTable) Names(plugin string) []string {
	var names []string
	for name, owner := range t.owners {
		if owner == plugin {
			names = append(names, name)
		}
	}
	return names
}
