package enrollment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/coursegate/internal/course"
)

const enrollmentColumns = `course_id, user_id, version_enrolled, status, access_granted_by,
	granted_at, last_accessed_at, progress`

// Storage provides DB operations for the enrollment ledger. total_enrollments
// on the courses table is a derived counter: it is only ever touched inside
// the Grant/Revoke transactions here, never free-standing.
type Storage struct {
	db *sql.DB
}

func NewStorage(db *sql.DB) *Storage { return &Storage{db: db} }

func scanEnrollment(row interface{ Scan(...any) error }) (*Enrollment, error) {
	var e Enrollment
	err := row.Scan(&e.CourseID, &e.UserID, &e.VersionEnrolled, &e.Status,
		&e.AccessGrantedBy, &e.GrantedAt, &e.LastAccessedAt, &e.Progress)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Get returns the enrollment row, or nil when the pair has never enrolled.
func (s *Storage) Get(ctx context.Context, courseID string, userID int64) (*Enrollment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 AND user_id = $2`,
		courseID, userID)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query enrollment: %w", err)
	}
	return e, nil
}

// ListByCourse returns every enrollment row for the course, cancelled ones
// included (the admin surface wants the audit trail).
func (s *Storage) ListByCourse(ctx context.Context, courseID string) ([]*Enrollment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments WHERE course_id = $1 ORDER BY granted_at ASC`,
		courseID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	defer rows.Close()

	var out []*Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Grant admits a user. One transaction covers the eligibility check, the
// capacity-guarded counter increment and the row upsert, so two concurrent
// payment grants can never both take the last seat.
func (s *Storage) Grant(ctx context.Context, courseID string, userID int64, grantedBy string) (*Enrollment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var status string
	var graceEnd sql.NullTime
	var currentVersion int
	err = tx.QueryRowContext(ctx,
		`SELECT status, archive_grace_period_end, current_version FROM courses WHERE id = $1 FOR UPDATE`,
		courseID).Scan(&status, &graceEnd, &currentVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, course.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock course for grant: %w", err)
	}

	if status == course.StatusArchived {
		reachable := graceEnd.Valid && time.Now().Before(graceEnd.Time)
		if !reachable {
			return nil, ErrNotEligible
		}
	}

	var existingStatus sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM enrollments WHERE course_id = $1 AND user_id = $2 FOR UPDATE`,
		courseID, userID).Scan(&existingStatus)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("check existing enrollment: %w", err)
	}

	if existingStatus.Valid && existingStatus.String != StatusCancelled {
		// Re-grant: refresh provenance, leave version and counter alone.
		row := tx.QueryRowContext(ctx, `UPDATE enrollments SET
			access_granted_by = $1, granted_at = now(), last_accessed_at = now()
			WHERE course_id = $2 AND user_id = $3
			RETURNING `+enrollmentColumns,
			grantedBy, courseID, userID)
		e, err := scanEnrollment(row)
		if err != nil {
			return nil, fmt.Errorf("refresh enrollment: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit re-grant: %w", err)
		}
		return e, nil
	}

	// New admission (or revival of a cancelled row): the counter increment
	// is conditional on the cap so the check and the bump are one atomic
	// statement. Admin grants bypass the cap.
	var res sql.Result
	if grantedBy == GrantedByAdmin {
		res, err = tx.ExecContext(ctx,
			`UPDATE courses SET total_enrollments = total_enrollments + 1, updated_at = now()
			 WHERE id = $1`, courseID)
	} else {
		res, err = tx.ExecContext(ctx,
			`UPDATE courses SET total_enrollments = total_enrollments + 1, updated_at = now()
			 WHERE id = $1 AND (max_enrollments IS NULL OR total_enrollments < max_enrollments)`,
			courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("increment enrollment counter: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("counter rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrCapacityExceeded
	}

	row := tx.QueryRowContext(ctx, `INSERT INTO enrollments
		(course_id, user_id, version_enrolled, status, access_granted_by, granted_at, last_accessed_at, progress)
		VALUES ($1, $2, $3, $4, $5, now(), now(), 0)
		ON CONFLICT (course_id, user_id) DO UPDATE SET
			version_enrolled = EXCLUDED.version_enrolled,
			status = EXCLUDED.status,
			access_granted_by = EXCLUDED.access_granted_by,
			granted_at = now(),
			last_accessed_at = now(),
			progress = 0
		RETURNING `+enrollmentColumns,
		courseID, userID, currentVersion, StatusActive, grantedBy)
	e, err := scanEnrollment(row)
	if err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit grant: %w", err)
	}
	return e, nil
}

// Revoke cancels the enrollment and decrements the counter (floored at 0).
// The row is kept; deletion is a separate, explicit admin operation.
func (s *Storage) Revoke(ctx context.Context, courseID string, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock order matches Grant: course row first, then the enrollment row.
	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock course for revoke: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE enrollments SET status = $1 WHERE course_id = $2 AND user_id = $3 AND status != $1`,
		StatusCancelled, courseID, userID)
	if err != nil {
		return fmt.Errorf("cancel enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("cancel rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE courses SET total_enrollments = GREATEST(total_enrollments - 1, 0), updated_at = now()
		 WHERE id = $1`, courseID); err != nil {
		return fmt.Errorf("decrement enrollment counter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit revoke: %w", err)
	}
	return nil
}

// UpdateProgress clamps progress to [0,100] and stamps last_accessed_at.
// Only active enrollments track progress; hitting 100 marks completion.
func (s *Storage) UpdateProgress(ctx context.Context, courseID string, userID int64, progress int) (*Enrollment, error) {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	newStatus := StatusActive
	if progress == 100 {
		newStatus = StatusCompleted
	}

	row := s.db.QueryRowContext(ctx, `UPDATE enrollments SET
		progress = $1, status = $2, last_accessed_at = now()
		WHERE course_id = $3 AND user_id = $4 AND status = $5
		RETURNING `+enrollmentColumns,
		progress, newStatus, courseID, userID, StatusActive)
	e, err := scanEnrollment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotEnrolled
	}
	if err != nil {
		return nil, fmt.Errorf("update progress: %w", err)
	}
	return e, nil
}

// TouchAccess stamps last_accessed_at on playback without touching progress.
func (s *Storage) TouchAccess(ctx context.Context, courseID string, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE enrollments SET last_accessed_at = now() WHERE course_id = $1 AND user_id = $2`,
		courseID, userID)
	if err != nil {
		return fmt.Errorf("touch enrollment: %w", err)
	}
	return nil
}

// Delete physically removes an enrollment row. Only the explicit admin
// deletion path calls this; revocation never does.
func (s *Storage) Delete(ctx context.Context, courseID string, userID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Lock order matches Grant: course row first, then the enrollment row.
	var locked string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM courses WHERE id = $1 FOR UPDATE`, courseID).Scan(&locked)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock course for delete: %w", err)
	}

	var status string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM enrollments WHERE course_id = $1 AND user_id = $2 RETURNING status`,
		courseID, userID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}

	if status != StatusCancelled {
		if _, err := tx.ExecContext(ctx,
			`UPDATE courses SET total_enrollments = GREATEST(total_enrollments - 1, 0), updated_at = now()
			 WHERE id = $1`, courseID); err != nil {
			return fmt.Errorf("decrement enrollment counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}
