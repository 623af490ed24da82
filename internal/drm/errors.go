package drm

import "errors"

var (
	// ErrSessionInvalid covers malformed, forged, or unknown tokens. The
	// caller must restart from the access gate.
	ErrSessionInvalid = errors.New("drm: session invalid")
	// ErrSessionRevoked is terminal for the token; revocation never rolls
	// back.
	ErrSessionRevoked = errors.New("drm: session revoked")
	// ErrSessionExpired is recoverable by issuing a fresh session; the
	// broker never retries on its own.
	ErrSessionExpired = errors.New("drm: session expired")
)
