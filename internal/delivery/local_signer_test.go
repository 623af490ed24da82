package delivery

import (
	"context"
	"net/url"
	"strconv"
	"testing"
	"time"
)

var signedAt = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestSigner(t *testing.T) (*LocalSigner, *time.Time) {
	t.Helper()
	clock := signedAt
	s := NewLocalSigner("https://media.example.com/", "shared-secret", 30*time.Minute)
	s.now = func() time.Time { return clock }
	return s, &clock
}

func TestLocalSignerResolve(t *testing.T) {
	s, _ := newTestSigner(t)

	raw, err := s.Resolve(context.Background(), "video-1", "hls/course-1/video-1/master.m3u8")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Resolve produced an unparseable url: %v", err)
	}
	if u.Host != "media.example.com" {
		t.Errorf("unexpected host %q", u.Host)
	}
	if u.Path != "/hls/course-1/video-1/master.m3u8" {
		t.Errorf("unexpected path %q", u.Path)
	}

	exp, err := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	if err != nil {
		t.Fatalf("bad exp parameter: %v", err)
	}
	if want := signedAt.Add(30 * time.Minute).Unix(); exp != want {
		t.Errorf("expected exp %d, got %d", want, exp)
	}

	if !s.Verify("hls/course-1/video-1/master.m3u8", exp, u.Query().Get("sig")) {
		t.Error("signature did not verify")
	}
}

func TestLocalSignerRejectsEmptyLocator(t *testing.T) {
	s, _ := newTestSigner(t)
	if _, err := s.Resolve(context.Background(), "video-1", ""); err == nil {
		t.Error("expected error for empty locator")
	}
}

func TestLocalSignerVerifyRejectsSwappedLocator(t *testing.T) {
	s, _ := newTestSigner(t)

	raw, err := s.Resolve(context.Background(), "video-1", "hls/a.m3u8")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	u, _ := url.Parse(raw)
	exp, _ := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	sig := u.Query().Get("sig")

	if s.Verify("hls/b.m3u8", exp, sig) {
		t.Error("signature verified against a different locator")
	}
	if s.Verify("hls/a.m3u8", exp+60, sig) {
		t.Error("signature verified against a different expiry")
	}
}

func TestLocalSignerVerifyRejectsExpired(t *testing.T) {
	s, clock := newTestSigner(t)

	raw, err := s.Resolve(context.Background(), "video-1", "hls/a.m3u8")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	u, _ := url.Parse(raw)
	exp, _ := strconv.ParseInt(u.Query().Get("exp"), 10, 64)
	sig := u.Query().Get("sig")

	*clock = signedAt.Add(31 * time.Minute)
	if s.Verify("hls/a.m3u8", exp, sig) {
		t.Error("expired signature verified")
	}
}
