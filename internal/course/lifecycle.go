package course

import "time"

// Lifecycle transitions are pure mutations on an in-memory Course snapshot.
// The service applies them under a per-course row lock so no two transitions
// on the same course interleave; different courses are fully independent.
//
// Valid edges:
//
//	active   -> inactive  (Deactivate)
//	inactive -> active    (Reactivate; no-op when already active)
//	inactive -> archived  (Archive; normally driven by the sweep job)
//	archived -> active    (Unarchive)
//
// archived is reachable only through inactive.

// Deactivate hides the course from public listings and starts the grace
// window. Existing enrollees keep access until the window lapses.
func (c *Course) Deactivate(now, graceEnd time.Time) error {
	if c.Status != StatusActive {
		return ErrInvalidTransition
	}
	c.Status = StatusInactive
	c.DeactivatedAt = &now
	c.ArchiveGracePeriodEnd = &graceEnd
	return nil
}

// Reactivate restores an inactive course. Reactivating an already-active
// course is a documented no-op.
func (c *Course) Reactivate() error {
	if c.Status == StatusActive {
		return nil
	}
	if c.Status != StatusInactive {
		return ErrInvalidTransition
	}
	c.Status = StatusActive
	c.DeactivatedAt = nil
	c.ArchiveGracePeriodEnd = nil
	return nil
}

// Archive moves an inactive course to archived. A grace deadline already
// set at deactivation time is preserved; without one, a fresh window is
// opened so enrollees are not cut off instantly.
func (c *Course) Archive(now, graceEnd time.Time) error {
	if c.Status != StatusInactive {
		return ErrInvalidTransition
	}
	c.Status = StatusArchived
	c.ArchivedAt = &now
	if c.ArchiveGracePeriodEnd == nil {
		c.ArchiveGracePeriodEnd = &graceEnd
	}
	return nil
}

// Unarchive fully resets the lifecycle in one step.
func (c *Course) Unarchive() error {
	if c.Status != StatusArchived {
		return ErrInvalidTransition
	}
	c.Status = StatusActive
	c.DeactivatedAt = nil
	c.ArchivedAt = nil
	c.ArchiveGracePeriodEnd = nil
	return nil
}

// ContentReachable reports whether enrollees can still play content. This
// predicate, not the raw status, is what the access gate consults: inactive
// courses stay reachable, archived ones only while the grace window is open.
// It is evaluated lazily on every read, so reachability is correct even for
// courses the archive sweep has not visited yet.
func (c *Course) ContentReachable(now time.Time) bool {
	switch c.Status {
	case StatusActive, StatusInactive:
		return true
	case StatusArchived:
		return c.ArchiveGracePeriodEnd != nil && now.Before(*c.ArchiveGracePeriodEnd)
	default:
		return false
	}
}
