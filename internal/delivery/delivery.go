// Package delivery resolves validated DRM sessions into real, separately
// time-limited streaming locations. The storage/streaming backend itself is
// an external collaborator; this package only knows how to ask it (or, in
// local mode, how to sign a location directly).
package delivery

import (
	"context"
	"errors"
)

// ErrUnavailable marks a resolution failure the caller may retry. The
// broker surfaces it as-is instead of hanging; every implementation must
// bound its work with the request context plus its own timeout.
var ErrUnavailable = errors.New("delivery: resolver unavailable")

// Resolver turns an opaque storage locator into a time-limited URL.
type Resolver interface {
	Resolve(ctx context.Context, videoID, locator string) (string, error)
}
