package store

import (
	"sync"

	"github.com/BatmanBruc/convert-menu-bot/types"
)

// MemorySessionStore keeps sessions in process memory. Each call is atomic; nothing survives a restart.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]types.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[int64]types.Session),
	}
}

func (s *MemorySessionStore) Get(userID int64) (types.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[userID]
	return session, ok
}

func (s *MemorySessionStore) Set(session types.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = session
}

func (s *MemorySessionStore) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

func (s *MemorySessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
