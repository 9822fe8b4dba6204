package prefs

import "sync"

// MemoryStore keeps values in a map. It is used for static builds and tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func (s *MemoryStore) Update(key string, fn func(string, bool) (string, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.values[key]
	v, err := fn(old, ok)
	if err != nil {
		return err
	}
	s.values[key] = v
	return nil
}

// MemoryScopes hands out one MemoryStore per scope. It backs the server when
// no database path is configured.
type MemoryScopes struct {
	mu     sync.Mutex
	scopes map[string]*MemoryStore
}

// NewMemoryScopes returns an empty set of scopes.
func NewMemoryScopes() *MemoryScopes {
	return &MemoryScopes{scopes: make(map[string]*MemoryStore)}
}

// Scope returns the store for scope, creating it on first use.
func (m *MemoryScopes) Scope(scope string) Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scopes[scope]
	if !ok {
		s = NewMemoryStore()
		m.scopes[scope] = s
	}
	return s
}
