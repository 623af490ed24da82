package api

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/internal/api/auth"
	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/drm"
	"github.com/coursegate/internal/enrollment"
)

// Server represents the API server
type Server struct {
	echo *echo.Echo
	port int

	db          *sql.DB
	courses     *course.Service
	enrollments *enrollment.Service
	gate        *access.Gate
	broker      *drm.Broker
	tokens      *auth.TokenService
}

// NewServer creates a new API server
func NewServer(port int, db *sql.DB, courses *course.Service, enrollments *enrollment.Service,
	gate *access.Gate, broker *drm.Broker, tokens *auth.TokenService) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	server := &Server{
		echo:        e,
		port:        port,
		db:          db,
		courses:     courses,
		enrollments: enrollments,
		gate:        gate,
		broker:      broker,
		tokens:      tokens,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", s.handleHealth)

	// API v1 group
	v1 := s.echo.Group("/api/v1")

	requireAuth := auth.RequireAuth(s.tokens)
	optionalAuth := auth.OptionalAuth(s.tokens)
	requireAdmin := auth.RequireAdmin()

	// Administrative course lifecycle
	admin := v1.Group("/courses", requireAuth, requireAdmin)
	admin.POST("", s.handleCreateCourse)
	admin.GET("", s.handleListCourses)
	admin.POST("/:id/videos", s.handlePublishVideo)
	admin.POST("/:id/deactivate", s.handleDeactivateCourse)
	admin.POST("/:id/reactivate", s.handleReactivateCourse)
	admin.POST("/:id/archive", s.handleArchiveCourse)
	admin.POST("/:id/unarchive", s.handleUnarchiveCourse)
	admin.GET("/:id/enrollments", s.handleListEnrollments)
	admin.POST("/:id/enrollments", s.handleAdminGrant)
	admin.DELETE("/:id/enrollments/:user_id", s.handleRevokeEnrollment)
	admin.DELETE("/:id/enrollments/:user_id/record", s.handleDeleteEnrollment)

	// Checkout integration: a successful payment lands here.
	v1.POST("/courses/:id/purchase", s.handlePurchase, requireAuth)

	// Playback surface
	v1.GET("/courses/:id/videos", s.handleListCourseVideos, optionalAuth)
	v1.GET("/videos/:id", s.handleGetVideo, requireAuth)
	v1.POST("/play", s.handlePlay, requireAuth, s.playLimiter())
	v1.POST("/progress", s.handleProgress, requireAuth)

	// DRM session diagnostics
	v1.GET("/sessions/stats", s.handleSessionStats, requireAuth, requireAdmin)
	v1.GET("/sessions/:id", s.handleValidateSession, requireAuth)
	v1.POST("/sessions/:id/revoke", s.handleRevokeSession, requireAuth)
}

// handleHealth reports liveness, including database reachability
func (s *Server) handleHealth(c echo.Context) error {
	if err := s.db.PingContext(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

// Start begins the API server
func (s *Server) Start() error {
	// Start server in a goroutine
	go func() {
		if err := s.echo.Start(fmt.Sprintf(":%d", s.port)); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}
