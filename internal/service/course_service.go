package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

const (
	courseCachePrefix    = "courses"
	courseListCacheKey   = "courses:list:%s:%s:%d:%d:%s:%s"
	courseDetailCacheKey = "courses:detail:%s"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error)
	Create(ctx context.Context, course *models.Course) error
}

// CourseService serves the course catalog with cache-aside reads.
type CourseService struct {
	repo     courseRepository
	cache    *CacheService
	validate *validator.Validate
	logger   *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, cache: cache, validate: validate, logger: logger}
}

type cachedCourseList struct {
	Courses []models.CourseDetail `json:"courses"`
	Total   int                   `json:"total"`
}

// List returns published courses with pagination metadata. The boolean
// reports whether the page was served from cache.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, bool, error) {
	key := fmt.Sprintf(courseListCacheKey, filter.InstructorID, filter.Search, filter.Page, filter.PageSize, filter.SortBy, filter.SortOrder)

	var cached cachedCourseList
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return cached.Courses, s.pagination(filter, cached.Total), true, nil
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}

	if err := s.cache.Set(ctx, key, cachedCourseList{Courses: courses, Total: total}, 0); err != nil {
		s.logger.Warn("failed to cache course list", zap.Error(err))
	}
	return courses, s.pagination(filter, total), false, nil
}

// Get returns a single course with instructor and content structure. The
// boolean reports whether the detail was served from cache.
func (s *CourseService) Get(ctx context.Context, id string) (*models.CourseDetail, bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false, appErrors.Clone(appErrors.ErrInvalidInput, "invalid course id")
	}

	key := fmt.Sprintf(courseDetailCacheKey, id)
	var cached models.CourseDetail
	if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
		return &cached, true, nil
	}

	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	if err := s.cache.Set(ctx, key, detail, 0); err != nil {
		s.logger.Warn("failed to cache course detail", zap.String("course_id", id), zap.Error(err))
	}
	return detail, false, nil
}

// Create publishes a new course. Only instructors and admins may create;
// instructors always own the courses they create.
func (s *CourseService) Create(ctx context.Context, claims *models.SessionClaims, req *models.CreateCourseRequest) (*models.Course, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if claims.Role != models.RoleInstructor && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can create courses")
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidInput.Code, appErrors.ErrInvalidInput.Status, "invalid course payload")
	}

	course := &models.Course{
		Title:        req.Title,
		Description:  req.Description,
		Price:        req.Price,
		InstructorID: claims.UserID,
		Published:    req.Published,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}

	if err := s.cache.Invalidate(ctx, courseCachePrefix+":*"); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.Error(err))
	}

	s.logger.Info("course created",
		zap.String("course_id", course.ID),
		zap.String("instructor_id", course.InstructorID),
		zap.Bool("published", course.Published))
	return course, nil
}

func (s *CourseService) pagination(filter models.CourseFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
