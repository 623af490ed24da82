package drm

import (
	"sync"
	"time"
)

// Session states as reported by Validate.
type State string

const (
	StateActive   State = "active"
	StateExpired  State = "expired"
	StateRevoked  State = "revoked"
	StateNotFound State = "not_found"
)

// Session backs one issued playback token. Sessions are ephemeral: expiry
// is checked on every read, so the reclamation sweep is housekeeping, not a
// correctness requirement.
type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CourseID  string    `json:"course_id"`
	VideoID   string    `json:"video_id"`
	Locator   string    `json:"-"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Revoked   bool      `json:"revoked"`
}

// Stats aggregates session counts by state.
type Stats struct {
	Active  int `json:"active"`
	Expired int `json:"expired"`
	Revoked int `json:"revoked"`
	Total   int `json:"total"`
}

// Store is the in-memory keyed session store. Replicating it is out of
// scope; a deployment scales by keying sessions to one broker instance.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

func (st *Store) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	cp := *s
	st.sessions[s.ID] = &cp
}

// Get returns a copy so callers never mutate shared state.
func (st *Store) Get(id string) (Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Revoke flips the session to revoked. Idempotent; the flag is monotonic
// and the write is visible to every subsequent Get under the same lock, so
// there is no eventual-consistency window.
func (st *Store) Revoke(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return false
	}
	s.Revoked = true
	return true
}

// State classifies a session at the given instant. Revoked wins over
// expired: once revoked, no read ever reports anything else.
func (st *Store) State(id string, now time.Time) State {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	if !ok {
		return StateNotFound
	}
	if s.Revoked {
		return StateRevoked
	}
	if now.After(s.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// Reclaim drops sessions whose expiry has passed and returns how many were
// removed. Revoked sessions are kept until they expire so revocation stays
// observable for the token's whole nominal lifetime.
func (st *Store) Reclaim(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if now.After(s.ExpiresAt) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Stats counts sessions by state.
func (st *Store) Stats(now time.Time) Stats {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := Stats{Total: len(st.sessions)}
	for _, s := range st.sessions {
		switch {
		case s.Revoked:
			out.Revoked++
		case now.After(s.ExpiresAt):
			out.Expired++
		default:
			out.Active++
		}
	}
	return out
}
