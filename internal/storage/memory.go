package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	keys   []string
	values map[string]string
	used   int64
	quota  int64
}

// NewMemoryStore creates an empty store. A quota <= 0 disables the limit.
func NewMemoryStore(quota int64) *MemoryStore {
	return &MemoryStore{
		values: make(map[string]string),
		quota:  quota,
	}
}

func (s *MemoryStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys), nil
}

func (s *MemoryStore) Key(ctx context.Context, index int) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.keys) {
		return "", ErrIndexOutOfRange
	}
	return s.keys[index], nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, exists := s.values[key]
	used := s.used + entrySize(key, value)
	if exists {
		used -= entrySize(key, old)
	}
	if s.quota > 0 && used > s.quota {
		return fmt.Errorf("set %q (%d of %d bytes): %w", key, used, s.quota, ErrQuotaExceeded)
	}

	if !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
	s.used = used
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.values[key]
	if !ok {
		return nil
	}
	delete(s.values, key)
	s.used -= entrySize(key, old)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i], s.keys[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = nil
	s.values = make(map[string]string)
	s.used = 0
	return nil
}

// Used returns the bytes charged against the quota.
func (s *MemoryStore) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

// MemoryBackend hands out one MemoryStore per namespace. Stores live until
// the backend is discarded.
type MemoryBackend struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
	quota  int64
}

// NewMemoryBackend creates a backend giving each namespace quota bytes.
func NewMemoryBackend(quota int64) *MemoryBackend {
	return &MemoryBackend{
		stores: make(map[string]*MemoryStore),
		quota:  quota,
	}
}

func (b *MemoryBackend) Open(ctx context.Context, namespace string) (Store, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.stores[namespace]
	if !ok {
		s = NewMemoryStore(b.quota)
		b.stores[namespace] = s
	}
	return s, nil
}

func (b *MemoryBackend) Close() error {
	return nil
}
