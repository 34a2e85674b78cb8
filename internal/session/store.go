package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/certifypro/certportal/internal/platform"
	"github.com/certifypro/certportal/internal/telemetry"
)

// Session is one signed-in browser's server-side record. The bearer token is
// held sealed; only the Manager unseals it, immediately before a platform
// call.
type Session struct {
	ID          string
	User        platform.User
	SealedToken string
	CreatedAt   time.Time
	ExpiresAt   time.Time
}

// Expired reports whether the record is past its lifetime at the given
// instant.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// Store is an in-memory session table keyed by opaque session IDs. Safe for
// concurrent use. Sessions are capacity-unbounded; the sweeper job and cookie
// TTL keep the table from growing without limit.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore builds an empty store whose sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{sessions: make(map[string]*Session), ttl: ttl}
}

// Create inserts a new session for the user and returns it. The ID is a fresh
// UUID, never derived from user data.
func (st *Store) Create(user platform.User, sealedToken string) *Session {
	now := time.Now()
	s := &Session{
		ID:          uuid.NewString(),
		User:        user,
		SealedToken: sealedToken,
		CreatedAt:   now,
		ExpiresAt:   now.Add(st.ttl),
	}
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	telemetry.PortalSessionsActive.Inc()
	return s
}

// Get returns a copy of the session, or nil when absent or expired. The copy
// is taken under the lock so a concurrent Replace can never produce a torn
// snapshot. Expired records are removed on sight rather than waiting for the
// sweeper.
func (st *Store) Get(id string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[id]
	var copied Session
	if ok {
		copied = *s
	}
	st.mu.RUnlock()
	if !ok {
		return nil
	}
	if copied.Expired(time.Now()) {
		st.Delete(id)
		return nil
	}
	return &copied
}

// Replace swaps the session's user snapshot and sealed token in one step by
// installing a fresh record; the old one is never mutated, so copies already
// handed out by Get stay internally consistent. Partial updates are not
// offered: the record always reflects a single platform response, never a
// merge of two.
func (st *Store) Replace(id string, user platform.User, sealedToken string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return false
	}
	fresh := *s
	fresh.User = user
	fresh.SealedToken = sealedToken
	st.sessions[id] = &fresh
	return true
}

// Delete removes a session. Deleting an absent ID is a no-op.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	_, ok := st.sessions[id]
	if ok {
		delete(st.sessions, id)
	}
	st.mu.Unlock()
	if ok {
		telemetry.PortalSessionsActive.Dec()
	}
}

// Len reports the number of live records, expired ones included until swept.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// DeleteExpired removes every record past its lifetime and reports how many
// went. The sweeper job calls this on a timer.
func (st *Store) DeleteExpired(now time.Time) int {
	st.mu.Lock()
	var removed int
	for id, s := range st.sessions {
		if s.Expired(now) {
			delete(st.sessions, id)
			removed++
		}
	}
	st.mu.Unlock()
	if removed > 0 {
		telemetry.PortalSessionsActive.Sub(float64(removed))
	}
	return removed
}
