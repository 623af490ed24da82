package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/coursegate/internal/access"
	"github.com/coursegate/internal/api"
	"github.com/coursegate/internal/api/auth"
	"github.com/coursegate/internal/config"
	"github.com/coursegate/internal/course"
	"github.com/coursegate/internal/database"
	"github.com/coursegate/internal/delivery"
	"github.com/coursegate/internal/drm"
	"github.com/coursegate/internal/enrollment"
	"github.com/coursegate/internal/jobqueue"
	"github.com/coursegate/internal/logging"
)

// APICommand returns the CLI command for starting the API server
func APICommand() *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Start the CourseGate API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port for the API server (overrides config)",
			},
		},
		Action: runAPI,
	}
}

func runAPI(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.Setup(cfg.Server.LogLevel, cfg.Server.DevMode)

	port := cfg.Server.Port
	if c.Int("port") != 0 {
		port = c.Int("port")
	}

	dsn := cfg.Database.URL
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	db, err := database.NewDB(dsn)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	courseStore := course.NewStorage(db)
	courses := course.NewService(courseStore, cfg.Course.GraceMonths)

	enrollmentStore := enrollment.NewStorage(db)
	enrollments := enrollment.NewService(enrollmentStore)

	gate := access.NewGate(courses, enrollments)

	sealer, err := drm.NewSealer(cfg.DRM.TokenKey)
	if err != nil {
		return fmt.Errorf("failed to initialize token sealer: %w", err)
	}

	var resolver delivery.Resolver
	switch cfg.Delivery.Mode {
	case "http":
		resolver = delivery.NewHTTPSigner(cfg.Delivery.SignURL, cfg.DeliveryTimeout())
	default:
		resolver = delivery.NewLocalSigner(cfg.Delivery.BaseURL, cfg.Delivery.Secret, cfg.URLTTL())
	}

	broker := drm.NewBroker(gate, drm.NewStore(), sealer, resolver, cfg.SessionTTL())
	tokens := auth.NewTokenService(cfg.Auth.JWTSecret)

	queue, err := jobqueue.NewJobQueue(dsn, courses, broker, cfg.SweepInterval())
	if err != nil {
		return fmt.Errorf("failed to create job queue: %w", err)
	}
	ctx := context.Background()
	if err := queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer func() {
		if err := queue.Stop(ctx); err != nil {
			log.Warn().Err(err).Msg("job queue shutdown error")
		}
	}()

	log.Info().Int("port", port).Str("delivery_mode", cfg.Delivery.Mode).
		Msg("starting CourseGate API server")

	server := api.NewServer(port, db, courses, enrollments, gate, broker, tokens)
	return server.Start()
}
