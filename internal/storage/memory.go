package storage

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV used by tests and ephemeral sessions.
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string][]byte

	// FailWrites makes Set return ErrWriteFailed when set. Tests use it to
	// exercise storage degradation paths.
	FailWrites bool
}

// ErrWriteFailed is returned by MemoryKV.Set when FailWrites is enabled.
var ErrWriteFailed = &writeError{}

type writeError struct{}

func (*writeError) Error() string { return "storage write failed" }

// NewMemoryKV creates an empty MemoryKV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: make(map[string][]byte)}
}

// Get returns the value stored under key, or (nil, nil) if absent.
func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores value under key.
func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailWrites {
		return ErrWriteFailed
	}

	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[key] = stored
	return nil
}

// Remove deletes key.
func (m *MemoryKV) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
	return nil
}
