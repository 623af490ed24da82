package course

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coursegate/pkg/models"
)

// Service drives the lifecycle state machine over Storage. All transitions
// run under the per-course row lock taken by WithCourseLock.
type Service struct {
	store       *Storage
	graceMonths int
}

func NewService(store *Storage, graceMonths int) *Service {
	if graceMonths <= 0 {
		graceMonths = 6
	}
	return &Service{store: store, graceMonths: graceMonths}
}

func (s *Service) graceEnd(now time.Time) time.Time {
	return now.AddDate(0, s.graceMonths, 0)
}

// Create adds a new active course at version 1.
func (s *Service) Create(ctx context.Context, title, description models.LocalizedText, maxEnrollments *int) (*Course, error) {
	c := &Course{Title: title, Description: description, MaxEnrollments: maxEnrollments}
	if err := s.store.CreateCourse(ctx, c); err != nil {
		return nil, err
	}
	log.Info().Str("course_id", c.ID).Msg("course created")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Course, error) {
	return s.store.GetCourse(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Course, error) {
	return s.store.ListCourses(ctx)
}

// Deactivate moves active -> inactive and opens the grace window.
func (s *Service) Deactivate(ctx context.Context, id, reason string) (*Course, error) {
	now := time.Now()
	c, err := s.store.WithCourseLock(ctx, id, func(c *Course) error {
		return c.Deactivate(now, s.graceEnd(now))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", id).Str("reason", reason).
		Time("grace_until", *c.ArchiveGracePeriodEnd).Msg("course deactivated")
	return c, nil
}

// Reactivate moves inactive -> active; a no-op when already active.
func (s *Service) Reactivate(ctx context.Context, id string) (*Course, error) {
	c, err := s.store.WithCourseLock(ctx, id, func(c *Course) error {
		return c.Reactivate()
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", id).Msg("course reactivated")
	return c, nil
}

// Archive moves inactive -> archived, preserving an existing grace deadline.
func (s *Service) Archive(ctx context.Context, id, reason string) (*Course, error) {
	now := time.Now()
	c, err := s.store.WithCourseLock(ctx, id, func(c *Course) error {
		return c.Archive(now, s.graceEnd(now))
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", id).Str("reason", reason).Msg("course archived")
	return c, nil
}

// Unarchive fully resets the lifecycle.
func (s *Service) Unarchive(ctx context.Context, id string) (*Course, error) {
	c, err := s.store.WithCourseLock(ctx, id, func(c *Course) error {
		return c.Unarchive()
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", id).Msg("course unarchived")
	return c, nil
}

// PublishVideo records new gated content, bumping the course's
// current_version. Enrollees who joined earlier do not gain access to it.
func (s *Service) PublishVideo(ctx context.Context, courseID string, title models.LocalizedText, locator string) (*Video, error) {
	v := &Video{Title: title, StorageLocator: locator}
	published, err := s.store.PublishVideo(ctx, courseID, v)
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", courseID).Str("video_id", published.ID).
		Int("effective_version", published.EffectiveVersion).Msg("video published")
	return published, nil
}

func (s *Service) GetVideo(ctx context.Context, id string) (*Video, error) {
	return s.store.GetVideo(ctx, id)
}

func (s *Service) ListVideos(ctx context.Context, courseID string) ([]*Video, error) {
	return s.store.ListVideos(ctx, courseID)
}

// SweepArchives archives every inactive course whose grace window has
// lapsed. Inactive courses stay reachable until this runs; once archived,
// the grace deadline is enforced lazily on every read.
func (s *Service) SweepArchives(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.store.ListArchiveCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, id := range ids {
		if _, err := s.Archive(ctx, id, "grace period lapsed"); err != nil {
			// A concurrent admin transition can invalidate a candidate;
			// skip it and let the next sweep re-evaluate.
			log.Warn().Err(err).Str("course_id", id).Msg("archive sweep skipped course")
			continue
		}
		archived++
	}
	return archived, nil
}
