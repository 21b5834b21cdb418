package session

import "sync"

// MemoryState is a goroutine-safe in-process State, one per tab or CLI run.
type MemoryState struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryState creates a state seeded with the given values.
func NewMemoryState(seed map[string]string) *MemoryState {
	values := make(map[string]string, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &MemoryState{values: values}
}

// Get returns the value for key.
func (m *MemoryState) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *MemoryState) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

// Remove deletes key if present.
func (m *MemoryState) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
