package domain

import (
	"sync"
	"time"
)

// Session holds the connection-scoped attributes resolved at handshake
// time. A connection that reaches the hub always has a resolved
// identity; unauthenticated handshakes are rejected before a session
// exists.
type Session struct {
	ID           string
	UserID       int64
	DisplayName  string
	ConnectedAt  time.Time
	LastActiveAt time.Time
	mu           sync.RWMutex
}

func NewSession(id string, userID int64, displayName string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		UserID:       userID,
		DisplayName:  displayName,
		ConnectedAt:  now,
		LastActiveAt: now,
	}
}

func (s *Session) UpdateActivity() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LastActiveAt = time.Now()
}

func (s *Session) GetUserID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.UserID
}

func (s *Session) GetDisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.DisplayName
}
