// Package storage implements the quad_storage plugin: a flat, origin-scoped
// string key-value store with localStorage semantics.
package storage

import (
	"context"
	"errors"
	"unicode/utf16"
)

var (
	// ErrNotFound is returned by Get for a key that was never set or was removed.
	ErrNotFound = errors.New("storage: key not found")

	// ErrIndexOutOfRange is returned by Key for an index outside [0, Len).
	ErrIndexOutOfRange = errors.New("storage: index out of range")

	// ErrQuotaExceeded is returned by Set when the entry would push the store
	// past its quota. The store is left unchanged.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// DefaultQuotaBytes matches the per-origin localStorage limit of common browsers.
const DefaultQuotaBytes int64 = 5 * 1024 * 1024

// Store is one origin's key-value area. Enumeration order is insertion
// order; updating an existing key keeps its position.
type Store interface {
	Len(ctx context.Context) (int, error)
	Key(ctx context.Context, index int) (string, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// Backend hands out stores by namespace (the page origin).
type Backend interface {
	Open(ctx context.Context, namespace string) (Store, error)
	Close() error
}

// entrySize is the quota charge for one entry: UTF-16 code units of key
// and value, two bytes each, the way browsers account localStorage.
func entrySize(key, value string) int64 {
	return 2 * int64(utf16Len(key)+utf16Len(value))
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}
