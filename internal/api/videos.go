package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/internal/api/auth"
	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/delivery"
	"github.com/coursegate/internal/drm"
	"github.com/coursegate/internal/enrollment"
	"github.com/coursegate/pkg/models"
)

// VideoDescriptor is the viewer-facing shape of one video. Locked entries
// carry metadata only; the deny reason deliberately stays out of it so an
// unauthorized viewer cannot probe version numbers or lifecycle state.
type VideoDescriptor struct {
	ID        string               `json:"id"`
	CourseID  string               `json:"course_id"`
	Title     models.LocalizedText `json:"title"`
	Locked    bool                 `json:"locked"`
	Token     string               `json:"token,omitempty"`
	ExpiresAt *time.Time           `json:"expires_at,omitempty"`
}

func (s *Server) describeVideo(viewer access.Viewer, d access.Decision, v *course.Video) VideoDescriptor {
	desc := VideoDescriptor{ID: v.ID, CourseID: v.CourseID, Title: v.Title, Locked: true}
	if !d.Allowed {
		log.Debug().Str("video_id", v.ID).Int64("user_id", viewer.UserID).
			Str("reason", string(d.Reason)).Msg("playback denied")
		return desc
	}

	res, err := s.broker.IssueFor(viewer, v)
	if err != nil {
		log.Error().Err(err).Str("video_id", v.ID).Msg("session issue failed")
		return desc
	}
	desc.Locked = false
	desc.Token = res.Token
	desc.ExpiresAt = &res.ExpiresAt
	return desc
}

// handleListCourseVideos lists every video of a course. Anonymous viewers
// get the whole list locked; enrollees get fresh tokens for what their
// enrollment version covers.
func (s *Server) handleListCourseVideos(c echo.Context) error {
	ctx := c.Request().Context()
	courseID := c.Param("id")
	viewer := auth.ViewerFromContext(c)

	crs, err := s.courses.Get(ctx, courseID)
	if err != nil {
		if errors.Is(err, course.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "course_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}

	var enr *enrollment.Enrollment
	if !viewer.Anonymous && !viewer.Admin {
		enr, err = s.enrollments.Get(ctx, courseID, viewer.UserID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
		}
	}

	videos, err := s.courses.ListVideos(ctx, courseID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}

	now := time.Now()
	descriptors := make([]VideoDescriptor, 0, len(videos))
	for _, v := range videos {
		d := access.Decide(viewer, crs, enr, v, now)
		descriptors = append(descriptors, s.describeVideo(viewer, d, v))
	}

	return c.JSON(http.StatusOK, map[string]interface{}{"videos": descriptors})
}

// handleGetVideo returns a single locked/unlocked descriptor
func (s *Server) handleGetVideo(c echo.Context) error {
	viewer := auth.ViewerFromContext(c)

	decision, vid, err := s.gate.Check(c.Request().Context(), viewer, c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal_error"})
	}
	if vid == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "video_not_found"})
	}

	return c.JSON(http.StatusOK, s.describeVideo(viewer, decision, vid))
}

// handlePlay redeems a token for the real, time-limited streaming location
func (s *Server) handlePlay(c echo.Context) error {
	var body struct {
		Token string `json:"token"`
	}
	if err := c.Bind(&body); err != nil || body.Token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "token_required"})
	}

	url, session, err := s.broker.Redeem(c.Request().Context(), body.Token)
	if err != nil {
		switch {
		case errors.Is(err, drm.ErrSessionInvalid):
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "session_invalid"})
		case errors.Is(err, drm.ErrSessionRevoked):
			return c.JSON(http.StatusForbidden, map[string]string{"error": "session_revoked"})
		case errors.Is(err, drm.ErrSessionExpired):
			return c.JSON(http.StatusGone, map[string]string{"error": "session_expired"})
		case errors.Is(err, delivery.ErrUnavailable):
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "delivery_unavailable"})
		default:
			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal_error"})
		}
	}

	// Playback counts as access; failure here must not block the stream.
	if err := s.enrollments.TouchAccess(c.Request().Context(), session.CourseID, session.UserID); err != nil {
		log.Warn().Err(err).Str("session_id", session.ID).Msg("failed to touch enrollment")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"url":        url,
		"expires_at": session.ExpiresAt,
	})
}
