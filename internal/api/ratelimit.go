package api

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/coursegate/internal/api/auth"
)

// playLimiter throttles token redemption per user. A stolen token cannot be
// hammered against the delivery backend from one account.
func (s *Server) playLimiter() echo.MiddlewareFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[int64]*rate.Limiter)
	)

	limiterFor := func(userID int64) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		l, ok := limiters[userID]
		if !ok {
			l = rate.NewLimiter(rate.Limit(5), 10)
			limiters[userID] = l
		}
		return l
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := auth.UserFromContext(c)
			if user == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if !limiterFor(user.ID).Allow() {
				return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "rate_limited"})
			}
			return next(c)
		}
	}
}
