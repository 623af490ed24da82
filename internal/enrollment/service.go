package enrollment

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Service is the admission-control surface over Storage.
type Service struct {
	store *Storage
}

func NewService(store *Storage) *Service { return &Service{store: store} }

// Grant admits a user to a course. grantedBy must be "payment" or "admin";
// a successful checkout calls this with "payment".
func (s *Service) Grant(ctx context.Context, courseID string, userID int64, grantedBy string) (*Enrollment, error) {
	if grantedBy != GrantedByPayment && grantedBy != GrantedByAdmin {
		return nil, fmt.Errorf("enrollment: unknown grant origin %q", grantedBy)
	}

	e, err := s.store.Grant(ctx, courseID, userID, grantedBy)
	if err != nil {
		return nil, err
	}
	log.Info().Str("course_id", courseID).Int64("user_id", userID).
		Str("granted_by", grantedBy).Int("version_enrolled", e.VersionEnrolled).
		Msg("enrollment granted")
	return e, nil
}

// Revoke cancels an enrollment; the record is retained for audit.
func (s *Service) Revoke(ctx context.Context, courseID string, userID int64) error {
	if err := s.store.Revoke(ctx, courseID, userID); err != nil {
		return err
	}
	log.Info().Str("course_id", courseID).Int64("user_id", userID).Msg("enrollment revoked")
	return nil
}

// Progress updates a viewer's position in the course.
func (s *Service) Progress(ctx context.Context, courseID string, userID int64, progress int) (*Enrollment, error) {
	return s.store.UpdateProgress(ctx, courseID, userID, progress)
}

// TouchAccess stamps last_accessed_at on playback.
func (s *Service) TouchAccess(ctx context.Context, courseID string, userID int64) error {
	return s.store.TouchAccess(ctx, courseID, userID)
}

// Get returns the enrollment, or nil when the user never enrolled.
func (s *Service) Get(ctx context.Context, courseID string, userID int64) (*Enrollment, error) {
	return s.store.Get(ctx, courseID, userID)
}

// ListByCourse returns the course's full enrollment ledger.
func (s *Service) ListByCourse(ctx context.Context, courseID string) ([]*Enrollment, error) {
	return s.store.ListByCourse(ctx, courseID)
}

// Delete is the explicit admin deletion path.
func (s *Service) Delete(ctx context.Context, courseID string, userID int64) error {
	if err := s.store.Delete(ctx, courseID, userID); err != nil {
		return err
	}
	log.Warn().Str("course_id", courseID).Int64("user_id", userID).Msg("enrollment deleted")
	return nil
}
