package dashboard

import "sync"

// SessionStore is the page-session key-value storage.
type SessionStore interface {
	Set(key, value string) error
}

// MemorySession keeps session entries in memory for the lifetime of a page.
type MemorySession struct {
	mu    sync.Mutex
	items map[string]string
}

func NewMemorySession() *MemorySession {
	return &MemorySession{items: make(map[string]string)}
}

func (s *MemorySession) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

// Get returns the stored value. The page itself never reads the session.
func (s *MemorySession) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	return v, ok
}
