package database

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"
)

// migrations are applied in order inside one transaction each. Statements
// must stay idempotent; re-running Migrate on an up-to-date database is a
// no-op.
var migrations = []struct {
	name string
	stmt string
}{
	{
		name: "001_courses",
		stmt: `CREATE TABLE IF NOT EXISTS courses (
			id TEXT PRIMARY KEY,
			title_primary TEXT NOT NULL DEFAULT '',
			title_secondary TEXT NOT NULL DEFAULT '',
			description_primary TEXT NOT NULL DEFAULT '',
			description_secondary TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			version INTEGER NOT NULL DEFAULT 1,
			current_version INTEGER NOT NULL DEFAULT 1,
			deactivated_at TIMESTAMPTZ,
			archived_at TIMESTAMPTZ,
			archive_grace_period_end TIMESTAMPTZ,
			max_enrollments INTEGER,
			total_enrollments INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "002_videos",
		stmt: `CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL REFERENCES courses(id),
			title_primary TEXT NOT NULL DEFAULT '',
			title_secondary TEXT NOT NULL DEFAULT '',
			storage_locator TEXT NOT NULL,
			effective_version INTEGER NOT NULL,
			published_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
	},
	{
		name: "003_videos_course_idx",
		stmt: `CREATE INDEX IF NOT EXISTS idx_videos_course ON videos(course_id)`,
	},
	{
		name: "004_enrollments",
		stmt: `CREATE TABLE IF NOT EXISTS enrollments (
			course_id TEXT NOT NULL REFERENCES courses(id),
			user_id BIGINT NOT NULL,
			version_enrolled INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			access_granted_by TEXT NOT NULL,
			granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_accessed_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			progress INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (course_id, user_id)
		)`,
	},
	{
		name: "005_enrollments_user_idx",
		stmt: `CREATE INDEX IF NOT EXISTS idx_enrollments_user ON enrollments(user_id)`,
	},
}

// Migrate applies the schema, recording each batch in _migrations so a
// restart never replays work.
func Migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS _migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM _migrations WHERE name = $1", m.name).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", m.name, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for %s: %w", m.name, err)
		}

		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", m.name, err)
		}

		if _, err := tx.Exec("INSERT INTO _migrations (name) VALUES ($1)", m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.name, err)
		}

		log.Info().Str("migration", m.name).Msg("applied migration")
	}

	return nil
}
