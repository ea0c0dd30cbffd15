package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

const testUserID = "9b2f4c6d-3a1e-4f5b-8c7d-2e1f0a9b8c7d"

type mockUserRepo struct {
	users     map[string]*models.User
	deleted   []string
	auditLogs []*models.AuditLog
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok && u.DeletedAt == nil {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	result := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	return result, len(result), nil
}

func (m *mockUserRepo) Update(ctx context.Context, user *models.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	now := time.Now()
	if u, ok := m.users[id]; ok {
		u.DeletedAt = &now
	}
	return nil
}

func (m *mockUserRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newMockUserRepo(users ...*models.User) *mockUserRepo {
	repo := &mockUserRepo{users: make(map[string]*models.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func TestUserGetInvalidID(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestUserGetNotFound(t *testing.T) {
	svc := NewUserService(newMockUserRepo(), validator.New(), zap.NewNop())

	_, err := svc.Get(context.Background(), testUserID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestUserUpdateAppliesPartialChanges(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: testUserID, Email: "user@example.com", FullName: "Old", Role: models.RoleStudent})
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	name := "New Name"
	role := models.RoleInstructor
	user, err := svc.Update(context.Background(), "admin-1", testUserID, &UpdateUserRequest{FullName: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "New Name", user.FullName)
	assert.Equal(t, models.RoleInstructor, user.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserUpdate, repo.auditLogs[0].Action)
	assert.NotEmpty(t, repo.auditLogs[0].OldValues)
}

func TestUserUpdateRejectsUnknownRole(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: testUserID, Role: models.RoleStudent})
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	role := models.UserRole("SUPERUSER")
	_, err := svc.Update(context.Background(), "admin-1", testUserID, &UpdateUserRequest{Role: &role})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestUserDeleteSoftDeletes(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: testUserID, Role: models.RoleStudent})
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "admin-1", testUserID))
	assert.Equal(t, []string{testUserID}, repo.deleted)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionUserDelete, repo.auditLogs[0].Action)
}

func TestUserDeleteRejectsSelf(t *testing.T) {
	repo := newMockUserRepo(&models.User{ID: testUserID})
	svc := NewUserService(repo, validator.New(), zap.NewNop())

	err := svc.Delete(context.Background(), testUserID, testUserID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)
}
