package enrollment

import "time"

// Enrollment status values. Cancelled rows are retained for audit and to
// keep re-grants idempotent; the core never deletes them.
const (
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Origin of an access grant. Admin grants bypass the capacity cap.
const (
	GrantedByPayment = "payment"
	GrantedByAdmin   = "admin"
)

// Enrollment records who bought what and at which course version. The
// (CourseID, UserID) pair is unique; at most one non-cancelled enrollment
// exists per pair.
type Enrollment struct {
	CourseID        string    `json:"course_id" db:"course_id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	VersionEnrolled int       `json:"version_enrolled" db:"version_enrolled"`
	Status          string    `json:"status" db:"status"`
	AccessGrantedBy string    `json:"access_granted_by" db:"access_granted_by"`
	GrantedAt       time.Time `json:"granted_at" db:"granted_at"`
	LastAccessedAt  time.Time `json:"last_accessed_at" db:"last_accessed_at"`
	Progress        int       `json:"progress" db:"progress"`
}

// Cancelled reports whether the enrollment no longer grants access.
func (e *Enrollment) Cancelled() bool { return e.Status == StatusCancelled }
