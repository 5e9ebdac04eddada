package wasm

import (
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Guest is the handle plugins receive in OnInit. Memory and exports are
// bound when the guest module finishes instantiating.
type Guest struct {
	id      string
	module  api.Module
	memory  *Memory
	objects *ObjectTable
	logger  *zap.Logger
}

func newGuest(id string, logger *zap.Logger) *Guest {
	return &Guest{
		id:      id,
		objects: NewObjectTable(),
		logger:  logger,
	}
}

// bind attaches the instantiated guest module.
func (g *Guest) bind(module api.Module) {
	g.module = module
	g.memory = NewMemory(module)
}

// ID returns the instance ID.
func (g *Guest) ID() string {
	return g.id
}

// Bound reports whether the guest module has been instantiated.
func (g *Guest) Bound() bool {
	return g.module != nil
}

// Memory returns the guest's linear memory, or nil before instantiation or
// for guests that export no memory.
func (g *Guest) Memory() *Memory {
	return g.memory
}

// ExportedFunction looks up a guest export, nil when missing or unbound.
func (g *Guest) ExportedFunction(name string) api.Function {
	if g.module == nil {
		return nil
	}
	return g.module.ExportedFunction(name)
}

// Objects returns the guest's object handle table.
func (g *Guest) Objects() *ObjectTable {
	return g.objects
}

// String resolves an object handle passed in by the guest.
func (g *Guest) String(handle int32) (string, bool) {
	return g.objects.String(handle)
}

// Object stores v and returns the handle to give back to the guest.
func (g *Guest) Object(v interface{}) int32 {
	return g.objects.Object(v)
}
