package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/coursegate/internal/api/auth"
	"github.com/coursegate/internal/drm"
)

// sessionOwnerOrAdmin checks the self-or-admin rule for session endpoints.
// Unknown sessions fall through so handlers report not_found uniformly.
func sessionOwnerOrAdmin(c echo.Context, broker *drm.Broker, sessionID string) (drm.Session, bool, bool) {
	user := auth.UserFromContext(c)
	session, ok := broker.Get(sessionID)
	if !ok {
		return drm.Session{}, false, false
	}
	if user == nil {
		return session, true, false
	}
	return session, true, user.Admin || session.UserID == user.ID
}

// handleValidateSession is the read-only diagnostic status check
func (s *Server) handleValidateSession(c echo.Context) error {
	sessionID := c.Param("id")

	session, found, allowed := sessionOwnerOrAdmin(c, s.broker, sessionID)
	if !found {
		return c.JSON(http.StatusOK, map[string]string{"state": string(drm.StateNotFound)})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "not_session_owner"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"state":      string(s.broker.Validate(sessionID)),
		"video_id":   session.VideoID,
		"issued_at":  session.IssuedAt,
		"expires_at": session.ExpiresAt,
	})
}

// handleRevokeSession kills a session; owners for their own, admins for any
func (s *Server) handleRevokeSession(c echo.Context) error {
	sessionID := c.Param("id")

	_, found, allowed := sessionOwnerOrAdmin(c, s.broker, sessionID)
	if !found {
		// Revocation is idempotent; revoking the unknown is a no-op.
		return c.JSON(http.StatusOK, map[string]string{"message": "session_revoked"})
	}
	if !allowed {
		return c.JSON(http.StatusForbidden, map[string]string{"error": "not_session_owner"})
	}

	s.broker.Revoke(sessionID)
	return c.JSON(http.StatusOK, map[string]string{"message": "session_revoked"})
}

// handleSessionStats aggregates session counts by state
func (s *Server) handleSessionStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.broker.Stats())
}
