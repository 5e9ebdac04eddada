package wasm

import (
	"context"
	"sync"

	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

// ObjectTable maps object handles to host values. It is the host side of
// the js_object/get_js_object convention: values crossing the boundary are
// handed to the guest as int32 handles and the guest copies strings out
// with js_unwrap_to_str. Freed slots are reused.
type ObjectTable struct {
	mu      sync.Mutex
	objects []interface{}
	live    []bool
	free    []int32
}

// NewObjectTable returns an empty table.
func NewObjectTable() *ObjectTable {
	return &ObjectTable{}
}

// Object stores v and returns its handle. A nil v yields NilHandle.
func (t *ObjectTable) Object(v interface{}) int32 {
	if v == nil {
		return protocol.NilHandle
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.free); n > 0 {
		h := t.free[n-1]
		t.free = t.free[:n-1]
		t.objects[h] = v
		t.live[h] = true
		return h
	}

	t.objects = append(t.objects, v)
	t.live = append(t.live, true)
	return int32(len(t.objects) - 1)
}

// Get returns the value behind handle.
func (t *ObjectTable) Get(handle int32) (interface{}, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handle < 0 || int(handle) >= len(t.objects) || !t.live[handle] {
		return nil, false
	}
	return t.objects[handle], true
}

// String returns the string behind handle. Non-string values are not
// converted.
func (t *ObjectTable) String(handle int32) (string, bool) {
	v, ok := t.Get(handle)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Free releases handle. Freeing an unknown handle is a no-op.
func (t *ObjectTable) Free(handle int32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if handle < 0 || int(handle) >= len(t.objects) || !t.live[handle] {
		return
	}
	t.objects[handle] = nil
	t.live[handle] = false
	t.free = append(t.free, handle)
}

// Len returns the number of live handles.
func (t *ObjectTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.objects) - len(t.free)
}

// jsUtils registers the object marshaling imports. It is installed on every
// instance ahead of user plugins.
type jsUtils struct {
	guest  *Guest
	logger *zap.Logger
}

func newJSUtils(logger *zap.Logger) *jsUtils {
	return &jsUtils{logger: logger.With(zap.String("component", "wasm-objects"))}
}

func (j *jsUtils) Name() string    { return protocol.JSUtilsPlugin }
func (j *jsUtils) Version() string { return protocol.JSUtilsVersion }

func (j *jsUtils) OnInit(guest *Guest) error {
	j.guest = guest
	return nil
}

func (j *jsUtils) RegisterPlugin(imports *ImportTable) error {
	if err := imports.Func(protocol.ImportCreateString, j.createString, "ptr", "len"); err != nil {
		return err
	}
	if err := imports.Func(protocol.ImportStringLength, j.stringLength, "handle"); err != nil {
		return err
	}
	if err := imports.Func(protocol.ImportUnwrapToStr, j.unwrapToStr, "handle", "buf", "max_len"); err != nil {
		return err
	}
	if err := imports.Func(protocol.ImportFreeObject, j.freeObject, "handle"); err != nil {
		return err
	}
	return imports.Func(protocol.ImportIsNil, j.isNil, "handle")
}

// createString copies len bytes at ptr into a new string object.
func (j *jsUtils) createString(ctx context.Context, ptr, length uint32) int32 {
	mem := j.guest.Memory()
	if mem == nil {
		j.logger.Error("js_create_string called on guest without memory")
		return protocol.NilHandle
	}
	s, err := mem.ReadString(ptr, length)
	if err != nil {
		j.logger.Error("Failed to read string from Wasm memory", zap.Error(err))
		return protocol.NilHandle
	}
	return j.guest.Object(s)
}

func (j *jsUtils) stringLength(ctx context.Context, handle int32) uint32 {
	s, ok := j.guest.String(handle)
	if !ok {
		return 0
	}
	return uint32(len(s))
}

// unwrapToStr copies at most maxLen bytes of the string behind handle into
// the guest buffer.
func (j *jsUtils) unwrapToStr(ctx context.Context, handle int32, buf, maxLen uint32) {
	s, ok := j.guest.String(handle)
	if !ok {
		j.logger.Warn("js_unwrap_to_str on a non-string handle", zap.Int32("handle", handle))
		return
	}
	if uint32(len(s)) > maxLen {
		s = s[:maxLen]
	}
	mem := j.guest.Memory()
	if mem == nil {
		return
	}
	if err := mem.WriteString(buf, s); err != nil {
		j.logger.Error("Failed to write string to Wasm memory", zap.Error(err))
	}
}

func (j *jsUtils) freeObject(ctx context.Context, handle int32) {
	j.guest.Objects().Free(handle)
}

func (j *jsUtils) isNil(ctx context.Context, handle int32) uint32 {
	_, ok := j.guest.Objects().Get(handle)
	return protocol.Bool(!ok)
}
