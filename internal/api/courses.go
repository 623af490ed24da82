package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursegate/internal/course"
	"github.com/coursegate/pkg/models"
)

// CreateCourseRequest is the admin course-creation body.
type CreateCourseRequest struct {
	Title          models.LocalizedText `json:"title"`
	Description    models.LocalizedText `json:"description"`
	MaxEnrollments *int                 `json:"max_enrollments,omitempty"`
}

// PublishVideoRequest is the admin video-publication body.
type PublishVideoRequest struct {
	Title   models.LocalizedText `json:"title"`
	Locator string               `json:"locator"`
}

// LifecycleRequest carries the optional audit reason for a transition.
type LifecycleRequest struct {
	Reason string `json:"reason"`
}

func lifecycleError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, course.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "course_not_found"})
	case errors.Is(err, course.ErrInvalidTransition):
		return c.JSON(http.StatusConflict, map[string]string{"error": "invalid_transition"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
}

// handleCreateCourse adds a new active course at version 1
func (s *Server) handleCreateCourse(c echo.Context) error {
	var body CreateCourseRequest
	if err := c.Bind(&body); err != nil || body.Title.Primary == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "title_required"})
	}
	if body.MaxEnrollments != nil && *body.MaxEnrollments < 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_max_enrollments"})
	}

	created, err := s.courses.Create(c.Request().Context(), body.Title, body.Description, body.MaxEnrollments)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	return c.JSON(http.StatusCreated, created)
}

// handleListCourses returns every course with its lifecycle fields
func (s *Server) handleListCourses(c echo.Context) error {
	courses, err := s.courses.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	if courses == nil {
		courses = []*course.Course{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"courses": courses})
}

// handlePublishVideo publishes gated content, bumping current_version
func (s *Server) handlePublishVideo(c echo.Context) error {
	var body PublishVideoRequest
	if err := c.Bind(&body); err != nil || body.Locator == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "locator_required"})
	}

	v, err := s.courses.PublishVideo(c.Request().Context(), c.Param("id"), body.Title, body.Locator)
	if err != nil {
		return lifecycleError(c, err)
	}

	// The locator stays server-side even on the admin surface.
	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":                v.ID,
		"course_id":         v.CourseID,
		"title":             v.Title,
		"effective_version": v.EffectiveVersion,
		"published_at":      v.PublishedAt,
	})
}

func (s *Server) handleDeactivateCourse(c echo.Context) error {
	var body LifecycleRequest
	_ = c.Bind(&body)

	updated, err := s.courses.Deactivate(c.Request().Context(), c.Param("id"), body.Reason)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, updated.Lifecycle())
}

func (s *Server) handleReactivateCourse(c echo.Context) error {
	updated, err := s.courses.Reactivate(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, updated.Lifecycle())
}

func (s *Server) handleArchiveCourse(c echo.Context) error {
	var body LifecycleRequest
	_ = c.Bind(&body)

	updated, err := s.courses.Archive(c.Request().Context(), c.Param("id"), body.Reason)
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, updated.Lifecycle())
}

func (s *Server) handleUnarchiveCourse(c echo.Context) error {
	updated, err := s.courses.Unarchive(c.Request().Context(), c.Param("id"))
	if err != nil {
		return lifecycleError(c, err)
	}
	return c.JSON(http.StatusOK, updated.Lifecycle())
}
