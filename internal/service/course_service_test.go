package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

type mockCourseRepo struct {
	listed    []models.CourseDetail
	total     int
	listCalls int
	details   map[string]*models.CourseDetail
	created   []*models.Course
}

func (m *mockCourseRepo) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	m.listCalls++
	return m.listed, m.total, nil
}

func (m *mockCourseRepo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if d, ok := m.details[id]; ok {
		return &d.Course, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	if d, ok := m.details[id]; ok {
		return d, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCourseRepo) Create(ctx context.Context, course *models.Course) error {
	course.ID = "generated"
	m.created = append(m.created, course)
	return nil
}

// memCacheRepo is an in-memory stand-in for the Redis cache repository.
type memCacheRepo struct {
	store map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{store: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.store[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.store[key] = raw
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.store = make(map[string][]byte)
	return nil
}

func disabledCache() *CacheService {
	return NewCacheService(nil, nil, 0, zap.NewNop(), false)
}

func instructorClaims(userID string) *models.SessionClaims {
	return &models.SessionClaims{UserID: userID, Role: models.RoleInstructor}
}

func TestCourseListReturnsPagination(t *testing.T) {
	repo := &mockCourseRepo{listed: []models.CourseDetail{{Course: models.Course{ID: "c1", Title: "Go"}}}, total: 42}
	svc := NewCourseService(repo, disabledCache(), validator.New(), zap.NewNop())

	courses, pagination, _, err := svc.List(context.Background(), models.CourseFilter{Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, courses, 1)
	assert.Equal(t, 2, pagination.Page)
	assert.Equal(t, 10, pagination.PageSize)
	assert.Equal(t, 42, pagination.TotalCount)
}

func TestCourseListUsesCache(t *testing.T) {
	repo := &mockCourseRepo{listed: []models.CourseDetail{{Course: models.Course{ID: "c1"}}}, total: 1}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := NewCourseService(repo, cache, validator.New(), zap.NewNop())

	_, _, hit, err := svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.False(t, hit)

	_, _, hit, err = svc.List(context.Background(), models.CourseFilter{})
	require.NoError(t, err)
	assert.True(t, hit)

	assert.Equal(t, 1, repo.listCalls)
}

func TestCourseGetInvalidID(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, disabledCache(), validator.New(), zap.NewNop())

	_, _, err := svc.Get(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestCourseGetNotFound(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{details: map[string]*models.CourseDetail{}}, disabledCache(), validator.New(), zap.NewNop())

	_, _, err := svc.Get(context.Background(), testCourseID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateRequiresInstructor(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, disabledCache(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), studentClaims("u1"), &models.CreateCourseRequest{Title: "Go"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestCourseCreateOwnedByCaller(t *testing.T) {
	repo := &mockCourseRepo{}
	svc := NewCourseService(repo, disabledCache(), validator.New(), zap.NewNop())

	course, err := svc.Create(context.Background(), instructorClaims("i1"), &models.CreateCourseRequest{Title: "Go", Price: 49, Published: true})
	require.NoError(t, err)
	assert.Equal(t, "i1", course.InstructorID)
	assert.True(t, course.Published)
	require.Len(t, repo.created, 1)
}

func TestCourseCreateValidatesPayload(t *testing.T) {
	svc := NewCourseService(&mockCourseRepo{}, disabledCache(), validator.New(), zap.NewNop())

	_, err := svc.Create(context.Background(), instructorClaims("i1"), &models.CreateCourseRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}
