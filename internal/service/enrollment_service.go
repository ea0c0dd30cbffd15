package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	"github.com/edupath-id/edupath-api/internal/repository"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

type enrollmentRepository interface {
	Exists(ctx context.Context, userID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	ListDetailedByUser(ctx context.Context, userID string) ([]models.EnrollmentDetail, error)
}

type courseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
}

// EnrollmentService enforces the at-most-one-enrollment-per-(user, course)
// contract. The Exists pre-check keeps the common duplicate path cheap; the
// database unique index settles races between concurrent attempts.
type EnrollmentService struct {
	repo    enrollmentRepository
	courses courseReader
	logger  *zap.Logger
	now     func() time.Time
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(repo enrollmentRepository, courses courseReader, logger *zap.Logger) *EnrollmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{repo: repo, courses: courses, logger: logger, now: time.Now}
}

// Enroll registers the authenticated user to a course. Repeated calls after
// the first do not alter state and report the same rejection.
func (s *EnrollmentService) Enroll(ctx context.Context, userID, courseID string) (*models.Enrollment, error) {
	if userID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "invalid course id")
	}

	if _, err := s.courses.FindByID(ctx, courseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.Exists(ctx, userID, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check enrollment")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "already enrolled")
	}

	enrollment := &models.Enrollment{
		UserID:     userID,
		CourseID:   courseID,
		EnrolledAt: s.now().UTC(),
		Progress:   0,
		Completed:  false,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		if errors.Is(err, repository.ErrUniqueViolation) {
			// Lost the race against a concurrent enroll for the same pair.
			return nil, appErrors.Clone(appErrors.ErrAlreadyExists, "already enrolled")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
	return enrollment, nil
}

// ListForUser returns the caller's enrollments with course, instructor and
// module/lesson structure. Callers may only read their own list.
func (s *EnrollmentService) ListForUser(ctx context.Context, claims *models.SessionClaims, userID string) ([]models.EnrollmentWithCourse, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if claims.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another user's enrollments")
	}

	enrollments, err := s.repo.ListDetailedByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}

	result := make([]models.EnrollmentWithCourse, 0, len(enrollments))
	for _, e := range enrollments {
		detail, err := s.courses.FindDetailByID(ctx, e.CourseID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				s.logger.Warn("enrollment references missing course", zap.String("course_id", e.CourseID))
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course detail")
		}
		result = append(result, models.EnrollmentWithCourse{Enrollment: e.Enrollment, Course: *detail})
	}
	return result, nil
}
