// Package drm brokers short-lived, revocable playback sessions. A session
// moves Issued -> Active -> Expired or Revoked; both ends are terminal.
package drm

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/delivery"
)

// AccessChecker is the slice of the access gate the broker needs.
type AccessChecker interface {
	Check(ctx context.Context, v access.Viewer, videoID string) (access.Decision, *course.Video, error)
}

// IssueResult is what a successful issue hands to the client: a sealed
// token and its expiry, never the storage locator.
type IssueResult struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Broker issues, redeems, validates and revokes DRM sessions.
type Broker struct {
	gate     AccessChecker
	store    *Store
	sealer   *Sealer
	resolver delivery.Resolver
	ttl      time.Duration

	now func() time.Time
}

func NewBroker(gate AccessChecker, store *Store, sealer *Sealer, resolver delivery.Resolver, ttl time.Duration) *Broker {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Broker{
		gate:     gate,
		store:    store,
		sealer:   sealer,
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Issue runs the access gate and, on Allow, mints a session. A Deny comes
// back in the decision with a nil result and no error.
func (b *Broker) Issue(ctx context.Context, v access.Viewer, videoID string) (*IssueResult, access.Decision, error) {
	decision, vid, err := b.gate.Check(ctx, v, videoID)
	if err != nil {
		return nil, access.Decision{}, err
	}
	if !decision.Allowed {
		return nil, decision, nil
	}

	res, err := b.IssueFor(v, vid)
	if err != nil {
		return nil, decision, err
	}
	return res, decision, nil
}

// IssueFor mints a session for a video the caller has already gated. The
// listing path runs the pure decision per video and calls this on Allow.
func (b *Broker) IssueFor(v access.Viewer, vid *course.Video) (*IssueResult, error) {
	now := b.now()
	session := &Session{
		ID:        uuid.NewString(),
		UserID:    v.UserID,
		CourseID:  vid.CourseID,
		VideoID:   vid.ID,
		Locator:   vid.StorageLocator,
		IssuedAt:  now,
		ExpiresAt: now.Add(b.ttl),
	}

	token, err := b.sealer.Seal(session.ID)
	if err != nil {
		return nil, err
	}
	b.store.Put(session)

	log.Debug().Str("session_id", session.ID).Str("video_id", vid.ID).
		Int64("user_id", v.UserID).Time("expires_at", session.ExpiresAt).
		Msg("drm session issued")

	return &IssueResult{Token: token, SessionID: session.ID, ExpiresAt: session.ExpiresAt}, nil
}

// Redeem decrypts a token and resolves the real streaming location. The
// session is re-validated on every call: revoked beats expired, expiry is
// checked lazily at read time.
func (b *Broker) Redeem(ctx context.Context, token string) (string, Session, error) {
	sessionID, err := b.sealer.Open(token)
	if err != nil {
		return "", Session{}, err
	}

	session, ok := b.store.Get(sessionID)
	if !ok {
		// An expired session the reclaim sweep already dropped lands here,
		// so its token reads as invalid rather than expired. Both deny; the
		// client reaction is the same either way: go back through the gate.
		return "", Session{}, ErrSessionInvalid
	}
	if session.Revoked {
		return "", session, ErrSessionRevoked
	}
	if b.now().After(session.ExpiresAt) {
		return "", session, ErrSessionExpired
	}

	locator, err := b.resolver.Resolve(ctx, session.VideoID, session.Locator)
	if err != nil {
		return "", session, err
	}
	return locator, session, nil
}

// Validate is the read-only diagnostic check: same rules as Redeem, no
// resolution.
func (b *Broker) Validate(sessionID string) State {
	return b.store.State(sessionID, b.now())
}

// Get exposes a session copy to the admin surface.
func (b *Broker) Get(sessionID string) (Session, bool) {
	return b.store.Get(sessionID)
}

// Revoke kills a session unconditionally and idempotently. Effective
// immediately for all subsequent Redeem/Validate calls.
func (b *Broker) Revoke(sessionID string) {
	if b.store.Revoke(sessionID) {
		log.Info().Str("session_id", sessionID).Msg("drm session revoked")
	}
}

// Stats aggregates session counts by state for the admin surface.
func (b *Broker) Stats() Stats {
	return b.store.Stats(b.now())
}

// Reclaim compacts expired sessions; called by the background sweep.
func (b *Broker) Reclaim() int {
	return b.store.Reclaim(b.now())
}
