package course

import (
	"time"

	"github.com/coursegate/pkg/models"
)

// Status values for the course lifecycle.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Course is the durable ledger record: lifecycle state, version counters
// and the denormalized enrollment count. The enrollment rows themselves
// live in the enrollment package; total_enrollments is only ever mutated
// through grant/revoke there.
type Course struct {
	ID                    string               `db:"id"`
	Title                 models.LocalizedText `db:"-"`
	Description           models.LocalizedText `db:"-"`
	Status                string               `db:"status"`
	Version               int                  `db:"version"`
	CurrentVersion        int                  `db:"current_version"`
	DeactivatedAt         *time.Time           `db:"deactivated_at"`
	ArchivedAt            *time.Time           `db:"archived_at"`
	ArchiveGracePeriodEnd *time.Time           `db:"archive_grace_period_end"`
	MaxEnrollments        *int                 `db:"max_enrollments"`
	TotalEnrollments      int                  `db:"total_enrollments"`
	CreatedAt             time.Time            `db:"created_at"`
	UpdatedAt             time.Time            `db:"updated_at"`
}

// Video belongs to exactly one course. The storage locator is opaque and
// never leaves the server; clients only ever see sealed playback tokens.
type Video struct {
	ID               string               `db:"id"`
	CourseID         string               `db:"course_id"`
	Title            models.LocalizedText `db:"-"`
	StorageLocator   string               `db:"storage_locator"`
	EffectiveVersion int                  `db:"effective_version"`
	PublishedAt      time.Time            `db:"published_at"`
}

// LifecycleFields is the persisted lifecycle shape returned by the admin
// transition endpoints.
type LifecycleFields struct {
	Status                string     `json:"status"`
	Version               int        `json:"version"`
	CurrentVersion        int        `json:"current_version"`
	DeactivatedAt         *time.Time `json:"deactivated_at"`
	ArchivedAt            *time.Time `json:"archived_at"`
	ArchiveGracePeriodEnd *time.Time `json:"archive_grace_period_end"`
	TotalEnrollments      int        `json:"total_enrollments"`
	MaxEnrollments        *int       `json:"max_enrollments"`
}

// Lifecycle extracts the persisted lifecycle fields.
func (c *Course) Lifecycle() LifecycleFields {
	return LifecycleFields{
		Status:                c.Status,
		Version:               c.Version,
		CurrentVersion:        c.CurrentVersion,
		DeactivatedAt:         c.DeactivatedAt,
		ArchivedAt:            c.ArchivedAt,
		ArchiveGracePeriodEnd: c.ArchiveGracePeriodEnd,
		TotalEnrollments:      c.TotalEnrollments,
		MaxEnrollments:        c.MaxEnrollments,
	}
}
