package auth

import (
	"github.com/labstack/echo/v4"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/pkg/models"
)

// UserFromContext returns the authenticated user, or nil for anonymous
// requests on optional-auth routes.
func UserFromContext(c echo.Context) *models.User {
	user, ok := c.Get(string(UserContextKey)).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// ViewerFromContext maps the request principal onto the access gate's
// viewer type.
func ViewerFromContext(c echo.Context) access.Viewer {
	user := UserFromContext(c)
	if user == nil {
		return access.Viewer{Anonymous: true}
	}
	return access.Viewer{UserID: user.ID, Admin: user.Admin}
}
