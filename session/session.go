package session

import (
	"sync"
	"time"
)

// Session holds the identity of the currently signed-in user. Exactly one
// user is active at a time; accessors consult it to stamp owner ids and to
// refuse work when nobody is signed in. Instances are created at bootstrap
// and cleared on sign-out. There is no package-level singleton, so a
// sign-out/sign-in cycle is just Clear followed by SetActive.
type Session struct {
	mu        sync.RWMutex
	userID    string
	startedAt time.Time
}

func New() *Session {
	return &Session{}
}

// SetActive marks userID as the signed-in user.
func (s *Session) SetActive(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = userID
	s.startedAt = time.Now()
}

// UserID returns the active user id, or "" when signed out.
func (s *Session) UserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.userID
}

// Active reports whether a user is signed in.
func (s *Session) Active() bool {
	return s.UserID() != ""
}

// Clear drops the active user on sign-out.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userID = ""
	s.startedAt = time.Time{}
}
