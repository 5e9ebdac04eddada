package storage

import (
	"context"
	"errors"

	"github.com/woxQAQ/quadhost/internal/wasm"
	"github.com/woxQAQ/quadhost/pkg/protocol"
	"go.uber.org/zap"
)

// Bridge exposes a Store to one guest as the quad_storage plugin.
//
// The Go methods surface ErrNotFound, ErrIndexOutOfRange and
// ErrQuotaExceeded. The Wasm imports never trap on them: lookups that fail
// return the nil handle or 0, and failed writes are logged and dropped.
type Bridge struct {
	store  Store
	guest  *wasm.Guest
	logger *zap.Logger
}

// NewBridge creates a storage bridge over store.
func NewBridge(store Store, logger *zap.Logger) *Bridge {
	return &Bridge{
		store:  store,
		logger: logger.With(zap.String("component", "storage-bridge")),
	}
}

// Len returns the number of stored entries.
func (b *Bridge) Len(ctx context.Context) (int, error) {
	return b.store.Len(ctx)
}

// HasKey reports whether an entry exists at enumeration position index.
func (b *Bridge) HasKey(ctx context.Context, index int) (bool, error) {
	_, err := b.store.Key(ctx, index)
	if errors.Is(err, ErrIndexOutOfRange) {
		return false, nil
	}
	return err == nil, err
}

// Key returns the key at enumeration position index.
func (b *Bridge) Key(ctx context.Context, index int) (string, error) {
	return b.store.Key(ctx, index)
}

// HasValue reports whether key is stored.
func (b *Bridge) HasValue(ctx context.Context, key string) (bool, error) {
	_, err := b.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Get returns the value stored under key.
func (b *Bridge) Get(ctx context.Context, key string) (string, error) {
	return b.store.Get(ctx, key)
}

// Set stores value under key, replacing any previous value.
func (b *Bridge) Set(ctx context.Context, key, value string) error {
	return b.store.Set(ctx, key, value)
}

// Remove deletes key. Removing a missing key is not an error.
func (b *Bridge) Remove(ctx context.Context, key string) error {
	return b.store.Remove(ctx, key)
}

// Clear deletes every entry.
func (b *Bridge) Clear(ctx context.Context) error {
	return b.store.Clear(ctx)
}

// Name implements wasm.Plugin.
func (b *Bridge) Name() string { return protocol.StoragePlugin }

// Version implements wasm.Plugin.
func (b *Bridge) Version() string { return protocol.StorageVersion }

// OnInit implements wasm.Plugin.
func (b *Bridge) OnInit(guest *wasm.Guest) error {
	b.guest = guest
	b.logger = b.logger.With(zap.String("instance_id", guest.ID()))
	return nil
}

// RegisterPlugin implements wasm.Plugin.
func (b *Bridge) RegisterPlugin(imports *wasm.ImportTable) error {
	funcs := []struct {
		name   string
		fn     interface{}
		params []string
	}{
		{protocol.ImportStorageLength, b.importLength, nil},
		{protocol.ImportStorageHasKey, b.importHasKey, []string{"index"}},
		{protocol.ImportStorageKey, b.importKey, []string{"index"}},
		{protocol.ImportStorageHasValue, b.importHasValue, []string{"key"}},
		{protocol.ImportStorageGet, b.importGet, []string{"key"}},
		{protocol.ImportStorageSet, b.importSet, []string{"key", "value"}},
		{protocol.ImportStorageRemove, b.importRemove, []string{"key"}},
		{protocol.ImportStorageClear, b.importClear, nil},
	}
	for _, f := range funcs {
		if err := imports.Func(f.name, f.fn, f.params...); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bridge) importLength(ctx context.Context) uint32 {
	n, err := b.Len(ctx)
	if err != nil {
		b.fail(protocol.ImportStorageLength, err)
		return 0
	}
	return uint32(n)
}

func (b *Bridge) importHasKey(ctx context.Context, index uint32) uint32 {
	ok, err := b.HasKey(ctx, int(index))
	if err != nil {
		b.fail(protocol.ImportStorageHasKey, err)
	}
	return protocol.Bool(ok)
}

func (b *Bridge) importKey(ctx context.Context, index uint32) int32 {
	key, err := b.Key(ctx, int(index))
	if err != nil {
		if !errors.Is(err, ErrIndexOutOfRange) {
			b.fail(protocol.ImportStorageKey, err)
		}
		return protocol.NilHandle
	}
	return b.guest.Object(key)
}

func (b *Bridge) importHasValue(ctx context.Context, keyHandle int32) uint32 {
	key, ok := b.arg(protocol.ImportStorageHasValue, keyHandle)
	if !ok {
		return 0
	}
	has, err := b.HasValue(ctx, key)
	if err != nil {
		b.fail(protocol.ImportStorageHasValue, err)
	}
	return protocol.Bool(has)
}

func (b *Bridge) importGet(ctx context.Context, keyHandle int32) int32 {
	key, ok := b.arg(protocol.ImportStorageGet, keyHandle)
	if !ok {
		return protocol.NilHandle
	}
	value, err := b.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			b.fail(protocol.ImportStorageGet, err)
		}
		return protocol.NilHandle
	}
	return b.guest.Object(value)
}

func (b *Bridge) importSet(ctx context.Context, keyHandle, valueHandle int32) {
	key, ok := b.arg(protocol.ImportStorageSet, keyHandle)
	if !ok {
		return
	}
	value, ok := b.arg(protocol.ImportStorageSet, valueHandle)
	if !ok {
		return
	}
	if err := b.Set(ctx, key, value); err != nil {
		b.fail(protocol.ImportStorageSet, err)
	}
}

func (b *Bridge) importRemove(ctx context.Context, keyHandle int32) {
	key, ok := b.arg(protocol.ImportStorageRemove, keyHandle)
	if !ok {
		return
	}
	if err := b.Remove(ctx, key); err != nil {
		b.fail(protocol.ImportStorageRemove, err)
	}
}

func (b *Bridge) importClear(ctx context.Context) {
	if err := b.Clear(ctx); err != nil {
		b.fail(protocol.ImportStorageClear, err)
	}
}

// arg resolves a string handle passed by the guest.
func (b *Bridge) arg(fn string, handle int32) (string, bool) {
	s, ok := b.guest.String(handle)
	if !ok {
		b.logger.Warn("Invalid string handle",
			zap.String("import", fn),
			zap.Int32("handle", handle),
		)
	}
	return s, ok
}

func (b *Bridge) fail(fn string, err error) {
	b.logger.Warn("Storage import failed",
		zap.Error(&wasm.HostFunctionError{FunctionName: fn, Err: err}),
	)
}

var _ wasm.Plugin = (*Bridge)(nil)
