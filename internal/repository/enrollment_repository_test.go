package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupath-id/edupath-api/internal/models"
)

func TestEnrollmentExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT 1 FROM enrollments WHERE user_id = $1 AND course_id = $2 LIMIT 1`)).
		WithArgs("u1", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.Exists(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentExistsFalseOnNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery("SELECT 1 FROM enrollments").
		WithArgs("u1", "c1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.Exists(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateEnrollment(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").WillReturnResult(sqlmock.NewResult(1, 1))

	enrollment := &models.Enrollment{UserID: "u1", CourseID: "c1"}
	require.NoError(t, repo.Create(context.Background(), enrollment))
	assert.NotEmpty(t, enrollment.ID)
	assert.False(t, enrollment.EnrolledAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateEnrollmentMapsUniqueViolation(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.Enrollment{UserID: "u1", CourseID: "c1"})
	assert.ErrorIs(t, err, ErrUniqueViolation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDetailedByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "course_id", "enrolled_at", "progress", "completed", "last_accessed", "course_title", "instructor_id", "instructor_name"}).
		AddRow("e1", "u1", "c1", now, 40.0, false, now, "Go Basics", "i1", "Ada")
	mock.ExpectQuery("SELECT e.id, e.user_id, e.course_id").
		WithArgs("u1").
		WillReturnRows(rows)

	enrollments, err := repo.ListDetailedByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, enrollments, 1)
	assert.Equal(t, "Go Basics", enrollments[0].CourseTitle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountByUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*), COUNT(*) FILTER (WHERE completed) FROM enrollments WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count", "completed"}).AddRow(3, 1))

	total, completed, err := repo.CountByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, completed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRosterByCourse(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"user_id", "full_name", "email", "enrolled_at", "progress", "completed"}).
		AddRow("u1", "Ada", "ada@example.com", now, 100.0, true).
		AddRow("u2", "Grace", "grace@example.com", now, 25.0, false)
	mock.ExpectQuery("SELECT e.user_id, u.full_name, u.email").
		WithArgs("c1").
		WillReturnRows(rows)

	roster, err := repo.RosterByCourse(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, roster, 2)
	assert.Equal(t, "ada@example.com", roster[0].Email)
	assert.NoError(t, mock.ExpectationsWereMet())
}
