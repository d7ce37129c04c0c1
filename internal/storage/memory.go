package storage

import (
	"context"
	"sync"
)

// Memory is an in-process KV. It backs the cache when no database path is
// configured and keeps tests free of filesystem state.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory KV.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Get(ctx context.Context, keys []string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if value, ok := m.items[key]; ok {
			result[key] = value
		}
	}
	return result, nil
}

func (m *Memory) Set(ctx context.Context, items map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, value := range items {
		m.items[key] = value
	}
	return nil
}

func (m *Memory) Remove(ctx context.Context, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *Memory) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make(map[string][]byte)
	return nil
}

func (m *Memory) BytesInUse(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, value := range m.items {
		total += int64(len(value))
	}
	return total, nil
}
