package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Memory — map-backed провайдер для тестов и одноразовых запусков.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory provider.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Open(ctx context.Context) error { return nil }
func (m *Memory) Close() error                   { return nil }

func memKey(collection, key string) string { return collection + "\x00" + key }

func (m *Memory) Get(ctx context.Context, resource string, out any) error {
	return m.GetKeyed(ctx, resource, "", out)
}

func (m *Memory) Set(ctx context.Context, resource string, v any) error {
	return m.SetKeyed(ctx, resource, "", v)
}

func (m *Memory) GetKeyed(ctx context.Context, collection, key string, out any) error {
	m.mu.RLock()
	data, ok := m.data[memKey(collection, key)]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s/%s: %w", collection, key, err)
	}
	return nil
}

func (m *Memory) SetKeyed(ctx context.Context, collection, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", collection, key, err)
	}
	m.mu.Lock()
	m.data[memKey(collection, key)] = data
	m.mu.Unlock()
	return nil
}

func (m *Memory) DeleteKeyed(ctx context.Context, collection, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := memKey(collection, key)
	if _, ok := m.data[k]; !ok {
		return false, nil
	}
	delete(m.data, k)
	return true, nil
}

func (m *Memory) Exists(ctx context.Context, collection string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	prefix := collection + "\x00"
	for k := range m.data {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ExistsKeyed(ctx context.Context, collection, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[memKey(collection, key)]
	return ok, nil
}
