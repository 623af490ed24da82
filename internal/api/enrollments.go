package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/coursegate/internal/api/auth"
	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/enrollment"
)

func grantError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, course.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "course_not_found"})
	case errors.Is(err, enrollment.ErrCapacityExceeded):
		// Surfaced distinctly so the checkout flow can stop.
		return c.JSON(http.StatusConflict, map[string]string{"error": "capacity_exceeded"})
	case errors.Is(err, enrollment.ErrNotEligible):
		return c.JSON(http.StatusConflict, map[string]string{"error": "not_eligible"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
}

// handlePurchase records a payment-originated grant for the caller. The
// checkout integration calls this once the payment provider confirms.
func (s *Server) handlePurchase(c echo.Context) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_auth"})
	}

	e, err := s.enrollments.Grant(c.Request().Context(), c.Param("id"), user.ID, enrollment.GrantedByPayment)
	if err != nil {
		return grantError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// handleAdminGrant enrolls any user, bypassing the capacity cap
func (s *Server) handleAdminGrant(c echo.Context) error {
	var body struct {
		UserID int64 `json:"user_id"`
	}
	if err := c.Bind(&body); err != nil || body.UserID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "user_id_required"})
	}

	e, err := s.enrollments.Grant(c.Request().Context(), c.Param("id"), body.UserID, enrollment.GrantedByAdmin)
	if err != nil {
		return grantError(c, err)
	}
	return c.JSON(http.StatusOK, e)
}

// handleRevokeEnrollment cancels an enrollment, keeping the record
func (s *Server) handleRevokeEnrollment(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_user_id"})
	}

	if err := s.enrollments.Revoke(c.Request().Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "enrollment_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "enrollment_revoked"})
}

// handleDeleteEnrollment is the explicit admin deletion of the audit record
func (s *Server) handleDeleteEnrollment(c echo.Context) error {
	userID, err := strconv.ParseInt(c.Param("user_id"), 10, 64)
	if err != nil || userID == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid_user_id"})
	}

	if err := s.enrollments.Delete(c.Request().Context(), c.Param("id"), userID); err != nil {
		if errors.Is(err, enrollment.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "enrollment_not_found"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "enrollment_deleted"})
}

// handleListEnrollments returns the full per-course ledger, cancelled rows
// included
func (s *Server) handleListEnrollments(c echo.Context) error {
	list, err := s.enrollments.ListByCourse(c.Request().Context(), c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	if list == nil {
		list = []*enrollment.Enrollment{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"enrollments": list})
}

// handleProgress updates the caller's position in a course
func (s *Server) handleProgress(c echo.Context) error {
	user := auth.UserFromContext(c)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid_auth"})
	}

	var body struct {
		CourseID string `json:"course_id"`
		Progress int    `json:"progress"`
	}
	if err := c.Bind(&body); err != nil || body.CourseID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "course_id_required"})
	}

	e, err := s.enrollments.Progress(c.Request().Context(), body.CourseID, user.ID, body.Progress)
	if err != nil {
		if errors.Is(err, enrollment.ErrNotEnrolled) {
			return c.JSON(http.StatusForbidden, map[string]string{"error": "not_enrolled"})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "database_error"})
	}
	return c.JSON(http.StatusOK, e)
}
