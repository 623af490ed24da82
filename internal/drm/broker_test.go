package drm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/internal/course"
)

var issuedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type stubGate struct {
	decision access.Decision
	video    *course.Video
	err      error
}

func (g *stubGate) Check(_ context.Context, _ access.Viewer, _ string) (access.Decision, *course.Video, error) {
	return g.decision, g.video, g.err
}

type stubResolver struct {
	url string
	err error

	lastVideoID string
	lastLocator string
}

func (r *stubResolver) Resolve(_ context.Context, videoID, locator string) (string, error) {
	r.lastVideoID = videoID
	r.lastLocator = locator
	if r.err != nil {
		return "", r.err
	}
	return r.url, nil
}

func testVideo() *course.Video {
	return &course.Video{
		ID:               "video-1",
		CourseID:         "course-1",
		StorageLocator:   "hls/course-1/video-1/master.m3u8",
		EffectiveVersion: 1,
	}
}

// newTestBroker returns a broker whose clock starts at issuedAt and can be
// advanced by the test.
func newTestBroker(t *testing.T, gate AccessChecker, resolver *stubResolver) (*Broker, *time.Time) {
	t.Helper()
	sealer, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	clock := issuedAt
	b := NewBroker(gate, NewStore(), sealer, resolver, 15*time.Minute)
	b.now = func() time.Time { return clock }
	return b, &clock
}

func TestIssueDeniedByGate(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Reason: access.ReasonNotPurchased}}
	b, _ := newTestBroker(t, gate, &stubResolver{url: "https://cdn.example.com/x"})

	res, decision, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if res != nil {
		t.Error("denied issue should not mint a session")
	}
	if decision.Allowed || decision.Reason != access.ReasonNotPurchased {
		t.Errorf("unexpected decision %+v", decision)
	}
}

func TestIssueAndRedeem(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	resolver := &stubResolver{url: "https://cdn.example.com/signed"}
	b, clock := newTestBroker(t, gate, resolver)

	res, decision, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if !decision.Allowed {
		t.Fatalf("expected allow, got %+v", decision)
	}
	if want := issuedAt.Add(15 * time.Minute); !res.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %v, got %v", want, res.ExpiresAt)
	}

	// Ten minutes in, the token still redeems.
	*clock = issuedAt.Add(10 * time.Minute)
	url, session, err := b.Redeem(context.Background(), res.Token)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if url != "https://cdn.example.com/signed" {
		t.Errorf("unexpected url %q", url)
	}
	if session.UserID != 42 || session.VideoID != "video-1" {
		t.Errorf("unexpected session %+v", session)
	}
	if resolver.lastLocator != "hls/course-1/video-1/master.m3u8" {
		t.Errorf("resolver saw locator %q", resolver.lastLocator)
	}

	// Twenty minutes in, it is expired.
	*clock = issuedAt.Add(20 * time.Minute)
	if _, _, err := b.Redeem(context.Background(), res.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("expected ErrSessionExpired, got %v", err)
	}
}

func TestRedeemInvalidToken(t *testing.T) {
	b, _ := newTestBroker(t, &stubGate{}, &stubResolver{})

	if _, _, err := b.Redeem(context.Background(), "garbage"); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid, got %v", err)
	}

	// A well-formed token whose session the store never saw is invalid too.
	sealer, err := NewSealer(testKey)
	if err != nil {
		t.Fatalf("NewSealer failed: %v", err)
	}
	orphan, err := sealer.Seal("no-such-session")
	if err != nil {
		t.Fatalf("Seal failed: %v", err)
	}
	if _, _, err := b.Redeem(context.Background(), orphan); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestRevokeBeatsExpiry(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	b, clock := newTestBroker(t, gate, &stubResolver{url: "https://cdn.example.com/x"})

	res, _, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	b.Revoke(res.SessionID)

	if _, _, err := b.Redeem(context.Background(), res.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked, got %v", err)
	}

	// Even after the nominal expiry passes, a revoked session reads as
	// revoked, never expired.
	*clock = issuedAt.Add(time.Hour)
	if _, _, err := b.Redeem(context.Background(), res.Token); !errors.Is(err, ErrSessionRevoked) {
		t.Errorf("expected ErrSessionRevoked past expiry, got %v", err)
	}
	if state := b.Validate(res.SessionID); state != StateRevoked {
		t.Errorf("expected state revoked, got %q", state)
	}

	// Revoking again is a no-op.
	b.Revoke(res.SessionID)
	if state := b.Validate(res.SessionID); state != StateRevoked {
		t.Errorf("expected state revoked after double revoke, got %q", state)
	}
}

func TestValidateStates(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	b, clock := newTestBroker(t, gate, &stubResolver{url: "https://cdn.example.com/x"})

	if state := b.Validate("unknown"); state != StateNotFound {
		t.Errorf("expected not_found, got %q", state)
	}

	res, _, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if state := b.Validate(res.SessionID); state != StateActive {
		t.Errorf("expected active, got %q", state)
	}

	*clock = issuedAt.Add(time.Hour)
	if state := b.Validate(res.SessionID); state != StateExpired {
		t.Errorf("expected expired, got %q", state)
	}
}

func TestRedeemDeliveryFailure(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	resolver := &stubResolver{err: errors.New("signer down")}
	b, _ := newTestBroker(t, gate, resolver)

	res, _, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// The session stays valid when resolution fails; a retry can succeed.
	if _, _, err := b.Redeem(context.Background(), res.Token); err == nil {
		t.Fatal("expected resolver error")
	}
	resolver.err = nil
	resolver.url = "https://cdn.example.com/x"
	if _, _, err := b.Redeem(context.Background(), res.Token); err != nil {
		t.Errorf("retry after resolver recovery failed: %v", err)
	}
}

func TestRedeemAfterReclaimReadsInvalid(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	b, clock := newTestBroker(t, gate, &stubResolver{url: "https://cdn.example.com/x"})

	res, _, err := b.Issue(context.Background(), access.Viewer{UserID: 42}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	*clock = issuedAt.Add(20 * time.Minute)
	if _, _, err := b.Redeem(context.Background(), res.Token); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired before reclaim, got %v", err)
	}

	if removed := b.Reclaim(); removed != 1 {
		t.Fatalf("expected 1 reclaimed session, got %d", removed)
	}
	// Once the sweep drops the record the token degrades to invalid.
	if _, _, err := b.Redeem(context.Background(), res.Token); !errors.Is(err, ErrSessionInvalid) {
		t.Errorf("expected ErrSessionInvalid after reclaim, got %v", err)
	}
}

func TestStatsAndReclaim(t *testing.T) {
	gate := &stubGate{decision: access.Decision{Allowed: true}, video: testVideo()}
	b, clock := newTestBroker(t, gate, &stubResolver{url: "https://cdn.example.com/x"})

	first, _, err := b.Issue(context.Background(), access.Viewer{UserID: 1}, "video-1")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	b.Revoke(first.SessionID)

	*clock = issuedAt.Add(10 * time.Minute)
	if _, _, err := b.Issue(context.Background(), access.Viewer{UserID: 2}, "video-1"); err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	stats := b.Stats()
	if stats.Total != 2 || stats.Active != 1 || stats.Revoked != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}

	// Past the first session's expiry the reclaim drops it, revoked or not.
	*clock = issuedAt.Add(16 * time.Minute)
	if removed := b.Reclaim(); removed != 1 {
		t.Errorf("expected 1 reclaimed session, got %d", removed)
	}
	stats = b.Stats()
	if stats.Total != 1 || stats.Active != 1 {
		t.Errorf("unexpected stats after reclaim %+v", stats)
	}
}
