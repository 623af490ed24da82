// Package access implements the playback admission decision. Decide is a
// pure function over snapshots of ledger state; it is re-evaluated on every
// request and never caches or mutates anything.
package access

import (
	"time"

	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/enrollment"
)

// Viewer is the principal a decision is made for.
type Viewer struct {
	UserID    int64
	Admin     bool
	Anonymous bool
}

// Reason explains a deny. NotPurchased, LifecycleExpired and VersionLocked
// all render to viewers as a generic locked state; the distinction is for
// logs and the admin surface only.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonNotFound         Reason = "not_found"
	ReasonNotPurchased     Reason = "not_purchased"
	ReasonLifecycleExpired Reason = "lifecycle_expired"
	ReasonVersionLocked    Reason = "version_locked"
)

// Decision is the outcome of the gate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

func allow() Decision        { return Decision{Allowed: true} }
func deny(r Reason) Decision { return Decision{Reason: r} }

// Decide gates playback of one video for one viewer. c and vid may be nil
// (missing); e is nil when the viewer never enrolled. Order matters:
// existence, admin bypass, enrollment, lifecycle reachability, then the
// version gate. An enrollee only ever has access to content published at or
// before the version held at grant time; later content stays locked even
// for active enrollees. That asymmetry is deliberate source behavior.
func Decide(v Viewer, c *course.Course, e *enrollment.Enrollment, vid *course.Video, now time.Time) Decision {
	if c == nil || vid == nil || vid.CourseID != c.ID {
		return deny(ReasonNotFound)
	}

	if v.Admin {
		return allow()
	}

	if v.Anonymous || e == nil || e.Cancelled() {
		return deny(ReasonNotPurchased)
	}

	if !c.ContentReachable(now) {
		return deny(ReasonLifecycleExpired)
	}

	if e.VersionEnrolled < vid.EffectiveVersion {
		return deny(ReasonVersionLocked)
	}

	return allow()
}
