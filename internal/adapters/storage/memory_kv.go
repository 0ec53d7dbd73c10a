package storage

import (
	"context"
	"sync"
)

// MemoryKV is an in-process KV. It backs the "memory" storage mode and tests.
type MemoryKV struct {
	mu      sync.RWMutex
	records map[RecordKey]string
}

// Compile-time check that *MemoryKV satisfies KV.
var _ KV = (*MemoryKV)(nil)

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{records: make(map[RecordKey]string)}
}

// Get retrieves the raw value stored under key.
// POST: Returns ErrNotFound when nothing is stored
func (m *MemoryKV) Get(_ context.Context, key RecordKey) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.records[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Apply runs every op under one lock.
// POST: Either all ops are applied or none (validation happens first)
func (m *MemoryKV) Apply(_ context.Context, ops ...Op) error {
	for _, op := range ops {
		if err := op.Key.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, op := range ops {
		if op.Delete {
			delete(m.records, op.Key)
			continue
		}
		m.records[op.Key] = op.Value
	}
	return nil
}

// Len returns the number of stored records.
func (m *MemoryKV) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
