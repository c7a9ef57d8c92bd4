package store

import (
	"sync"

	"github.com/google/uuid"

	"github.com/medpipe/orchestrator/internal/domain"
)

// entry pairs a session with its mutation lock.
type entry struct {
	mu      sync.Mutex
	session *domain.Session
}

// MemoryStore is an in-memory SessionStore. The registry lock only guards
// the map itself; each session carries its own mutex, so long-running
// mutations (a full pipeline pass) block only callers for the same session.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
	}
}

var _ SessionStore = (*MemoryStore)(nil)

// Create assigns an identifier and stores the session.
func (s *MemoryStore) Create(session *domain.Session) (string, error) {
	if session.SessionID == "" {
		session.SessionID = uuid.New().String()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[session.SessionID]; exists {
		return "", ErrSessionExists
	}
	s.entries[session.SessionID] = &entry{session: session.Clone()}
	return session.SessionID, nil
}

// Get returns a copy of the last committed session state.
func (s *MemoryStore) Get(id string) (*domain.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone(), nil
}

// Mutate applies fn to the session under its lock. fn receives a working
// copy; the copy is committed only when fn returns nil, so a failed mutation
// leaves the stored session untouched.
func (s *MemoryStore) Mutate(id string, fn func(*domain.Session) error) (*domain.Session, error) {
	e, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.session.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	e.session = working
	return working.Clone(), nil
}

// Remove evicts the session. No error if absent.
func (s *MemoryStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

func (s *MemoryStore) lookup(id string) (*entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}
