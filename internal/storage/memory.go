package storage

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps encoded values in a map. Values round-trip through JSON so
// callers never share references with the store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte

	// FailSave, when set, is returned by Save instead of writing.
	FailSave error
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, key string, v any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(raw, v)
}

func (m *Memory) Save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSave != nil {
		return m.FailSave
	}
	m.data[key] = raw
	return nil
}

// Raw returns the encoded bytes stored under key, for inspection in tests.
func (m *Memory) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.data[key]
	return raw, ok
}
