package fallback

import (
	"sync"
	"time"

	"session-sync/internal/session"
)

// Store holds degraded sessions in process memory. These exist only
// when the durable session store failed after identity was already
// confirmed; they do not survive a restart and are not revocable
// through normal session deletion.
//
// The store is injected where needed, never package-level state, and
// entries expire with their session TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]session.Session // by token
}

func NewStore() *Store {
	return &Store{
		sessions: make(map[string]session.Session),
	}
}

func (s *Store) Put(sess session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())
	s.sessions[sess.Token] = sess
}

// Get returns the live session for token, or nil.
func (s *Store) Get(token string) *session.Session {
	s.mu.RLock()
	sess, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil
	}
	if sess.Expired(time.Now()) {
		s.Delete(token)
		return nil
	}

	out := sess
	return &out
}

func (s *Store) Delete(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, token)
}

// Len reports the number of live entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpiredLocked(time.Now())
	return len(s.sessions)
}

func (s *Store) purgeExpiredLocked(now time.Time) {
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
		}
	}
}
