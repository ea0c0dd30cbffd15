package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupath-id/edupath-api/internal/models"
)

// EnrollmentRepository handles persistence of course enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Exists checks whether an enrollment exists for the (user, course) pair.
// This pre-check is advisory only; the unique index on (user_id, course_id)
// is the authoritative guard against concurrent duplicate inserts.
func (r *EnrollmentRepository) Exists(ctx context.Context, userID, courseID string) (bool, error) {
	const query = `SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID, courseID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record. A racing duplicate insert is
// rejected by the database and surfaces as ErrUniqueViolation.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = time.Now().UTC()
	}
	const query = `INSERT INTO enrollments (id, user_id, course_id, enrolled_at, progress, completed, last_accessed)
        VALUES (:id, :user_id, :course_id, :enrolled_at, :progress, :completed, :last_accessed)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		if isUniqueViolation(err) {
			return ErrUniqueViolation
		}
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// ListDetailedByUser returns a user's enrollments with course and instructor
// info, most recently accessed first.
func (r *EnrollmentRepository) ListDetailedByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error) {
	const query = `SELECT e.id, e.user_id, e.course_id, e.enrolled_at, e.progress, e.completed, e.last_accessed,
        c.title AS course_title, c.instructor_id, COALESCE(u.full_name, '') AS instructor_name
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE e.user_id = $1
        ORDER BY COALESCE(e.last_accessed, e.enrolled_at) DESC`
	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// SummariesByUser returns the compact enrollment view for profile payloads.
func (r *EnrollmentRepository) SummariesByUser(ctx context.Context, userID string) ([]models.EnrollmentSummary, error) {
	const query = `SELECT e.course_id, c.title AS course_title, e.progress, e.completed
        FROM enrollments e
        JOIN courses c ON c.id = e.course_id
        WHERE e.user_id = $1
        ORDER BY e.enrolled_at DESC`
	var summaries []models.EnrollmentSummary
	if err := r.db.SelectContext(ctx, &summaries, query, userID); err != nil {
		return nil, fmt.Errorf("list enrollment summaries: %w", err)
	}
	return summaries, nil
}

// RosterByCourse returns enrolled users for an instructor's course roster.
func (r *EnrollmentRepository) RosterByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	const query = `SELECT e.user_id, u.full_name, u.email, e.enrolled_at, e.progress, e.completed
        FROM enrollments e
        JOIN users u ON u.id = e.user_id
        WHERE e.course_id = $1
        ORDER BY u.full_name ASC`
	var roster []models.RosterEntry
	if err := r.db.SelectContext(ctx, &roster, query, courseID); err != nil {
		return nil, fmt.Errorf("list course roster: %w", err)
	}
	return roster, nil
}

// CountByUser returns enrollment totals used by the dashboard summary.
func (r *EnrollmentRepository) CountByUser(ctx context.Context, userID string) (total, completed int, err error) {
	const query = `SELECT COUNT(*), COUNT(*) FILTER (WHERE completed) FROM enrollments WHERE user_id = $1`
	row := r.db.QueryRowxContext(ctx, query, userID)
	if err := row.Scan(&total, &completed); err != nil {
		return 0, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return total, completed, nil
}
