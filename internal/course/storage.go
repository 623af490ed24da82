package course

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const courseColumns = `id, title_primary, title_secondary, description_primary, description_secondary,
	status, version, current_version, deactivated_at, archived_at, archive_grace_period_end,
	max_enrollments, total_enrollments, created_at, updated_at`

// Storage provides DB operations for the course ledger.
type Storage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) *Storage { return &Storage{db: db} }

func scanCourse(row interface{ Scan(...any) error }) (*Course, error) {
	var c Course
	err := row.Scan(&c.ID, &c.Title.Primary, &c.Title.Secondary,
		&c.Description.Primary, &c.Description.Secondary,
		&c.Status, &c.Version, &c.CurrentVersion,
		&c.DeactivatedAt, &c.ArchivedAt, &c.ArchiveGracePeriodEnd,
		&c.MaxEnrollments, &c.TotalEnrollments, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCourse inserts a new course at version 1.
func (s *Storage) CreateCourse(ctx context.Context, c *Course) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.Version == 0 {
		c.Version = 1
	}
	if c.CurrentVersion < c.Version {
		c.CurrentVersion = c.Version
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO courses
		(id, title_primary, title_secondary, description_primary, description_secondary,
		 status, version, current_version, max_enrollments)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.Title.Primary, c.Title.Secondary,
		c.Description.Primary, c.Description.Secondary,
		c.Status, c.Version, c.CurrentVersion, c.MaxEnrollments)
	if err != nil {
		return fmt.Errorf("insert course: %w", err)
	}
	return nil
}

// GetCourse returns the course or ErrNotFound.
func (s *Storage) GetCourse(ctx context.Context, id string) (*Course, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query course: %w", err)
	}
	return c, nil
}

// ListCourses returns all courses ordered by creation time.
func (s *Storage) ListCourses(ctx context.Context) ([]*Course, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	defer rows.Close()

	var courses []*Course
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}

// WithCourseLock loads the course under a row lock, applies fn to the
// snapshot and persists the lifecycle fields, all in one transaction. This
// is what serializes lifecycle transitions per course.
func (s *Storage) WithCourseLock(ctx context.Context, id string, fn func(*Course) error) (*Course, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE id = $1 FOR UPDATE`, id)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock course: %w", err)
	}

	if err := fn(c); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE courses SET
		status = $1,
		version = $2,
		current_version = $3,
		deactivated_at = $4,
		archived_at = $5,
		archive_grace_period_end = $6,
		updated_at = now()
		WHERE id = $7`,
		c.Status, c.Version, c.CurrentVersion,
		c.DeactivatedAt, c.ArchivedAt, c.ArchiveGracePeriodEnd, c.ID)
	if err != nil {
		return nil, fmt.Errorf("update course lifecycle: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit lifecycle update: %w", err)
	}
	return c, nil
}

// PublishVideo bumps current_version and inserts the video stamped with the
// bumped value, atomically under the course row lock.
func (s *Storage) PublishVideo(ctx context.Context, courseID string, v *Video) (*Video, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var currentVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT current_version FROM courses WHERE id = $1 FOR UPDATE`, courseID).
		Scan(&currentVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock course for publish: %w", err)
	}

	currentVersion++
	if _, err := tx.ExecContext(ctx,
		`UPDATE courses SET current_version = $1, updated_at = now() WHERE id = $2`,
		currentVersion, courseID); err != nil {
		return nil, fmt.Errorf("bump current_version: %w", err)
	}

	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	v.CourseID = courseID
	v.EffectiveVersion = currentVersion
	v.PublishedAt = time.Now()

	_, err = tx.ExecContext(ctx, `INSERT INTO videos
		(id, course_id, title_primary, title_secondary, storage_locator, effective_version, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.CourseID, v.Title.Primary, v.Title.Secondary,
		v.StorageLocator, v.EffectiveVersion, v.PublishedAt)
	if err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit publish: %w", err)
	}
	return v, nil
}

// GetVideo returns the video or ErrVideoNotFound.
func (s *Storage) GetVideo(ctx context.Context, id string) (*Video, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, course_id, title_primary, title_secondary,
		storage_locator, effective_version, published_at FROM videos WHERE id = $1`, id)

	var v Video
	err := row.Scan(&v.ID, &v.CourseID, &v.Title.Primary, &v.Title.Secondary,
		&v.StorageLocator, &v.EffectiveVersion, &v.PublishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVideoNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query video: %w", err)
	}
	return &v, nil
}

// ListVideos returns the course's videos in publication order.
func (s *Storage) ListVideos(ctx context.Context, courseID string) ([]*Video, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, course_id, title_primary, title_secondary,
		storage_locator, effective_version, published_at
		FROM videos WHERE course_id = $1 ORDER BY published_at ASC`, courseID)
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.CourseID, &v.Title.Primary, &v.Title.Secondary,
			&v.StorageLocator, &v.EffectiveVersion, &v.PublishedAt); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, &v)
	}
	return videos, rows.Err()
}

// ListArchiveCandidates returns ids of inactive courses whose grace period
// has lapsed. Consumed by the archive sweep job.
func (s *Storage) ListArchiveCandidates(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM courses
		WHERE status = $1 AND archive_grace_period_end IS NOT NULL AND archive_grace_period_end <= $2`,
		StatusInactive, now)
	if err != nil {
		return nil, fmt.Errorf("list archive candidates: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
