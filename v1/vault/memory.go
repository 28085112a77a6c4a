package vault

import (
	"fmt"
	"sync"
)

// Memory keeps secrets in process memory. It is safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	secrets map[string]string
}

var _ Vault = (*Memory)(nil)

// NewMemory returns an empty in-memory vault.
func NewMemory() *Memory {
	return &Memory{secrets: make(map[string]string)}
}

func (m *Memory) Get(id string) (string, error) {
	if id == "" {
		return "", ErrEmptyID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s, nil
}

func (m *Memory) Set(id, secret string) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[id] = secret
	return nil
}

func (m *Memory) Delete(id string) error {
	if id == "" {
		return ErrEmptyID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[id]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	delete(m.secrets, id)
	return nil
}
