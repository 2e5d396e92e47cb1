package flow

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BTreeMap/IntakeFlow/internal/models"
)

// SessionStore defines the per-user session lifecycle: created on first
// contact, mutated once per inbound message, cleared when a run completes.
// Sessions are scoped to the process lifetime; a restart loses in-flight
// sessions and affected users simply start over.
type SessionStore interface {
	// Get retrieves the session for a user, reporting whether one exists.
	Get(userID string) (*models.Session, bool)

	// Put stores or replaces the session for a user.
	Put(userID string, session *models.Session)

	// Clear removes the session for a user, making them eligible for a
	// fresh run on their next message.
	Clear(userID string)

	// Lock acquires the per-user mutex and returns the release function.
	// Serializes rapid repeated messages from the same user; different
	// users never contend.
	Lock(userID string) func()
}

// InMemorySessionStore is a process-wide session map guarded by per-user
// mutual exclusion.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*models.Session
	locks    map[string]*sync.Mutex
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{
		sessions: make(map[string]*models.Session),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Get retrieves the session for a user.
func (s *InMemorySessionStore) Get(userID string) (*models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	return sess, ok
}

// Put stores or replaces the session for a user.
func (s *InMemorySessionStore) Put(userID string, session *models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[userID] = session
}

// Clear removes the session for a user.
func (s *InMemorySessionStore) Clear(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Lock acquires the per-user mutex, creating it on first use. The mutex for
// a user is never removed; the set of users a single process talks to is
// bounded in practice.
func (s *InMemorySessionStore) Lock(userID string) func() {
	s.mu.Lock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Count returns the number of in-flight sessions.
func (s *InMemorySessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// SweepIdle clears sessions that have not been touched since the cutoff
// implied by maxIdle, returning the number of sessions removed. Cleared
// users restart from the initial stage on their next message, which the
// short idempotent script tolerates.
func (s *InMemorySessionStore) SweepIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for userID, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, userID)
			removed++
			slog.Debug("SessionStore swept idle session", "userID", userID, "state", sess.State, "updated_at", sess.UpdatedAt)
		}
	}
	if removed > 0 {
		slog.Info("SessionStore idle sweep completed", "removed", removed, "remaining", len(s.sessions))
	}
	return removed
}
