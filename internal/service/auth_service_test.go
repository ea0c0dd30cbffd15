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
	"golang.org/x/crypto/bcrypt"

	"github.com/edupath-id/edupath-api/internal/models"
	"github.com/edupath-id/edupath-api/internal/repository"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
)

type mockAuthRepo struct {
	users             map[string]*models.User
	createErr         error
	updatePasswordErr error
	resetTokens       map[string]string
	auditLogs         []*models.AuditLog
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: make(map[string]*models.User), resetTokens: make(map[string]string)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email && u.DeletedAt == nil {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok && u.DeletedAt == nil {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	if id, ok := m.resetTokens[token]; ok {
		return m.users[id], nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if u, ok := m.users[id]; ok {
		u.PasswordHash = &passwordHash
	}
	return nil
}

func (m *mockAuthRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	m.resetTokens[token] = id
	if u, ok := m.users[id]; ok {
		u.ResetToken = &token
		u.ResetTokenExpires = &expires
	}
	return nil
}

func (m *mockAuthRepo) ClearResetToken(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.ResetToken = nil
		u.ResetTokenExpires = nil
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

type mockSummarizer struct {
	summaries []models.EnrollmentSummary
}

func (m *mockSummarizer) SummariesByUser(ctx context.Context, userID string) ([]models.EnrollmentSummary, error) {
	return m.summaries, nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		Secret:        "secret",
		TokenLifetime: 30 * 24 * time.Hour,
		RefreshAfter:  24 * time.Hour,
		Issuer:        "edupath-api",
	}
}

func studentUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	hashStr := string(hash)
	return &models.User{ID: "u1", Email: "user@example.com", PasswordHash: &hashStr, FullName: "User", Role: models.RoleStudent}
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, &mockSummarizer{}, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "/dashboard", res.RedirectTo)
	assert.Equal(t, "user@example.com", res.User.Email)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestAuthServiceLoginNormalizesEmail(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "  USER@Example.com ", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestAuthServiceLoginFailuresAreUniform(t *testing.T) {
	user := studentUser(t, "password")
	social := &models.User{ID: "u2", Email: "social@example.com", FullName: "Social", Role: models.RoleStudent}
	repo := newMockAuthRepo(user, social)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	cases := []struct {
		name string
		req  models.LoginRequest
	}{
		{"unknown email", models.LoginRequest{Email: "nobody@example.com", Password: "password"}},
		{"wrong password", models.LoginRequest{Email: "user@example.com", Password: "wrong"}},
		{"social-only account", models.LoginRequest{Email: "social@example.com", Password: "password"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), tc.req)
			require.Error(t, err)
			appErr := appErrors.FromError(err)
			assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
			assert.Equal(t, appErrors.ErrInvalidCredentials.Message, appErr.Message)
		})
	}
}

func TestAuthServiceRegisterSignsIn(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "New", Email: "New@Example.com", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	assert.Equal(t, "new@example.com", res.User.Email)
	assert.Equal(t, "/dashboard", res.RedirectTo)
}

func TestAuthServiceRegisterInstructorRedirect(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "Teach", Email: "teach@example.com", Password: "secret1", Role: models.RoleInstructor})
	require.NoError(t, err)
	assert.Equal(t, "/admin", res.RedirectTo)
}

func TestAuthServiceRegisterDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "Dup", Email: "user@example.com", Password: "secret1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyExists.Code, appErr.Code)
	assert.Equal(t, 400, appErr.Status)
}

func TestAuthServiceRegisterLosesInsertRace(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = repository.ErrUniqueViolation
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Register(context.Background(), models.RegisterRequest{FullName: "Race", Email: "race@example.com", Password: "secret1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrAlreadyExists.Code, appErr.Code)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())
	other := NewAuthService(repo, nil, validator.New(), zap.NewNop(), AuthConfig{Secret: "other", TokenLifetime: time.Hour, RefreshAfter: time.Hour})

	res, err := other.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	// Issue a token whose 30-day lifetime already ran out.
	svc.now = func() time.Time { return time.Now().Add(-31 * 24 * time.Hour) }
	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(res.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestRefreshIfStale(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "password"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)

	// Fresh token: no refresh.
	refreshed, ok, err := svc.RefreshIfStale(claims)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, refreshed)

	// Older than the threshold: a new token is issued.
	svc.now = func() time.Time { return time.Now().Add(25 * time.Hour) }
	refreshed, ok, err = svc.RefreshIfStale(claims)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotEmpty(t, refreshed)
	assert.NotEqual(t, res.Token, refreshed)
}

func TestChangePassword(t *testing.T) {
	user := studentUser(t, "oldpass")
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("newpassword")))
}

func TestChangePasswordWrongOld(t *testing.T) {
	repo := newMockAuthRepo(studentUser(t, "oldpass"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestForgotPasswordSilentOnUnknownEmail(t *testing.T) {
	repo := newMockAuthRepo()
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "nobody@example.com"})
	assert.NoError(t, err)
	assert.Empty(t, repo.resetTokens)
}

func TestResetPasswordFlow(t *testing.T) {
	user := studentUser(t, "oldpass")
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "user@example.com"}))
	require.NotNil(t, user.ResetToken)

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: *user.ResetToken, NewPassword: "brandnewpass"})
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte("brandnewpass")))
	assert.Nil(t, user.ResetToken)
}

func TestResetPasswordExpiredToken(t *testing.T) {
	user := studentUser(t, "oldpass")
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	require.NoError(t, svc.ForgotPassword(context.Background(), models.ForgotPasswordRequest{Email: "user@example.com"}))
	expired := time.Now().Add(-time.Minute)
	user.ResetTokenExpires = &expired

	err := svc.ResetPassword(context.Background(), models.ResetPasswordRequest{Token: *user.ResetToken, NewPassword: "brandnewpass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestHomePath(t *testing.T) {
	assert.Equal(t, "/dashboard", HomePath(models.RoleStudent))
	assert.Equal(t, "/admin", HomePath(models.RoleInstructor))
	assert.Equal(t, "/admin", HomePath(models.RoleAdmin))
}
