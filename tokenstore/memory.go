package tokenstore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

// Memory is a process local Store, tokens are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		entries: map[string]memoryEntry{},
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, instanceID string) (string, error) {
	m.mu.RLock()
	entry, ok := m.entries[instanceID]
	m.mu.RUnlock()

	if !ok {
		return "", nil
	}

	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, instanceID)
		m.mu.Unlock()
		return "", nil
	}

	return entry.token, nil
}

func (m *Memory) Set(_ context.Context, instanceID, token string, ttl time.Duration) error {
	entry := memoryEntry{token: token}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.entries[instanceID] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(_ context.Context, instanceID string) error {
	m.mu.Lock()
	delete(m.entries, instanceID)
	m.mu.Unlock()
	return nil
}
