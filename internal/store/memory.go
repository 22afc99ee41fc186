package store

import (
	"context"
	"sync"

	"beacon-base/internal/codec"
)

// MemoryStore se usa cuando no hay Redis configurado.
type MemoryStore struct {
	mu    sync.RWMutex
	fixes map[string]codec.Fix
	image []byte
}

func NewMemory() *MemoryStore {
	return &MemoryStore{fixes: make(map[string]codec.Fix)}
}

func (m *MemoryStore) SaveFix(_ context.Context, id string, fix codec.Fix) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixes[id] = fix
	return nil
}

func (m *MemoryStore) LatestFix(_ context.Context, id string) (codec.Fix, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fix, ok := m.fixes[id]
	if !ok {
		return codec.Fix{}, ErrNotFound
	}
	return fix, nil
}

func (m *MemoryStore) SaveImage(_ context.Context, png []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.image = append([]byte(nil), png...)
	return nil
}

func (m *MemoryStore) LastImage(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.image == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.image...), nil
}

func (m *MemoryStore) Close() error { return nil }
