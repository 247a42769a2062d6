package storage

import (
	"context"
	"fmt"
	"sync"
)

// MemoryKV keeps values in process memory. A positive quota caps the total
// bytes of keys plus values, like a browser storage area.
type MemoryKV struct {
	mu     sync.Mutex
	quota  int
	items  map[string][]byte
	closed bool
}

func NewMemoryKV(quotaBytes int) *MemoryKV {
	return &MemoryKV{quota: quotaBytes, items: make(map[string][]byte)}
}

func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryKV) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	if m.quota > 0 {
		used := len(key) + len(value)
		for k, v := range m.items {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used > m.quota {
			return fmt.Errorf("set %q (%d bytes, quota %d): %w", key, used, m.quota, ErrQuotaExceeded)
		}
	}
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.items, key)
	return nil
}

// Close makes every later call fail with ErrClosed.
func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
