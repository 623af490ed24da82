package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/coursegate/internal/config"
	"github.com/coursegate/internal/database"
	"github.com/coursegate/internal/logging"
)

// MigrateCommand returns the CLI command for running database migrations
func MigrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations and exit",
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			logging.Setup(cfg.Server.LogLevel, cfg.Server.DevMode)

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

			fmt.Println("Migrations applied")
			return nil
		},
	}
}
