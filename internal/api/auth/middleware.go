package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/coursegate/pkg/models"
)

// ContextKey represents keys for context values
type ContextKey string

const (
	// UserContextKey holds the authenticated *models.User, when present.
	UserContextKey ContextKey = "user"
)

func bearerToken(c echo.Context) (string, bool) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// RequireAuth middleware validates that a valid JWT token is present
func RequireAuth(tokenService *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := bearerToken(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			user, err := tokenService.ValidateAccessToken(token)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
			}

			c.Set(string(UserContextKey), user)
			return next(c)
		}
	}
}

// OptionalAuth resolves a user when a valid token is present and lets the
// request through anonymously otherwise. Listing endpoints use it so
// logged-out viewers still see locked metadata.
func OptionalAuth(tokenService *TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token, ok := bearerToken(c); ok {
				if user, err := tokenService.ValidateAccessToken(token); err == nil {
					c.Set(string(UserContextKey), user)
				}
			}
			return next(c)
		}
	}
}

// RequireAdmin gates the administrative surface. Must run after RequireAuth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, ok := c.Get(string(UserContextKey)).(*models.User)
			if !ok || user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !user.Admin {
				return echo.NewHTTPError(http.StatusForbidden, "admin access required")
			}
			return next(c)
		}
	}
}
