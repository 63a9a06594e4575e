package services

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultSessionTTL is how long an untouched session is kept
const DefaultSessionTTL = 30 * time.Minute

type storedSession struct {
	session  *Session
	lastSeen time.Time
}

// SessionStore keeps one form session per visitor id and forgets sessions
// that have been idle longer than the ttl.
type SessionStore struct {
	newSession func() *Session
	logger     *zap.Logger
	ttl        time.Duration
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*storedSession

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewSessionStore creates a store and starts its cleanup goroutine. Call
// Close to stop it.
func NewSessionStore(newSession func() *Session, ttl time.Duration, logger *zap.Logger) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SessionStore{
		newSession: newSession,
		logger:     logger,
		ttl:        ttl,
		now:        time.Now,
		sessions:   make(map[string]*storedSession),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go s.janitor(ttl / 2)
	return s
}

// Get returns the session for id, creating a new one under a fresh id when
// id is unknown, expired or malformed. The returned id is the one to hand
// back to the visitor.
func (s *SessionStore) Get(id string) (string, *Session) {
	now := s.now()

	if _, err := uuid.Parse(id); err == nil {
		s.mu.Lock()
		stored, ok := s.sessions[id]
		if ok && now.Sub(stored.lastSeen) <= s.ttl {
			stored.lastSeen = now
			s.mu.Unlock()
			return id, stored.session
		}
		s.mu.Unlock()
	}

	id = uuid.NewString()
	session := s.newSession()

	s.mu.Lock()
	s.sessions[id] = &storedSession{session: session, lastSeen: now}
	s.mu.Unlock()

	s.logger.Debug("Created form session", zap.String("session", id))
	return id, session
}

// Len reports how many sessions are held
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the ttl and returns how many
func (s *SessionStore) Sweep() int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, stored := range s.sessions {
		if now.Sub(stored.lastSeen) > s.ttl {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Close stops the cleanup goroutine
func (s *SessionStore) Close() {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *SessionStore) janitor(every time.Duration) {
	defer close(s.done)

	if every < time.Second {
		every = time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				s.logger.Debug("Expired form sessions", zap.Int("count", n))
			}
		}
	}
}
