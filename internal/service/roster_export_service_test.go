package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/storage"
)

type mockRosterRepo struct {
	roster []models.RosterEntry
}

func (m *mockRosterRepo) RosterByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error) {
	return m.roster, nil
}

type mockExportAuditor struct {
	logs []*models.AuditLog
}

func (m *mockExportAuditor) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.logs = append(m.logs, log)
	return nil
}

func newRosterService(t *testing.T, roster []models.RosterEntry, courses *mockCourseReader) (*RosterExportService, *mockExportAuditor) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	auditor := &mockExportAuditor{}
	return NewRosterExportService(&mockRosterRepo{roster: roster}, courses, auditor, store, signer, zap.NewNop()), auditor
}

func ownedCourse(instructorID string) *mockCourseReader {
	return &mockCourseReader{courses: map[string]*models.Course{
		testCourseID: {ID: testCourseID, Title: "Go Basics", InstructorID: instructorID},
	}}
}

func TestRosterExportCSVRoundTrip(t *testing.T) {
	roster := []models.RosterEntry{
		{UserID: "u1", FullName: "Ada", Email: "ada@example.com", EnrolledAt: time.Now(), Progress: 100, Completed: true},
	}
	svc, auditor := newRosterService(t, roster, ownedCourse("i1"))

	result, err := svc.Export(context.Background(), instructorClaims("i1"), testCourseID, models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RowCount)
	assert.Contains(t, result.DownloadURL, "token=")
	require.Len(t, auditor.logs, 1)
	assert.Equal(t, models.AuditActionRosterExport, auditor.logs[0].Action)

	token := strings.TrimPrefix(result.DownloadURL, "/exports/download?token=")
	file, name, err := svc.Resolve(token)
	require.NoError(t, err)
	defer file.Close()

	content, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Contains(t, name, ".csv")
	assert.Contains(t, string(content), "ada@example.com")
	assert.Contains(t, string(content), "Name,Email,Enrolled At,Progress,Completed")
}

func TestRosterExportPDF(t *testing.T) {
	roster := []models.RosterEntry{{UserID: "u1", FullName: "Ada", Email: "ada@example.com", EnrolledAt: time.Now()}}
	svc, _ := newRosterService(t, roster, ownedCourse("i1"))

	result, err := svc.Export(context.Background(), instructorClaims("i1"), testCourseID, models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Contains(t, result.FileName, ".pdf")
}

func TestRosterExportForeignCourseForbidden(t *testing.T) {
	svc, _ := newRosterService(t, nil, ownedCourse("other"))

	_, err := svc.Export(context.Background(), instructorClaims("i1"), testCourseID, models.ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRosterExportAdminBypassesOwnership(t *testing.T) {
	svc, _ := newRosterService(t, nil, ownedCourse("other"))

	claims := &models.SessionClaims{UserID: "a1", Role: models.RoleAdmin}
	_, err := svc.Export(context.Background(), claims, testCourseID, models.ExportFormatCSV)
	require.NoError(t, err)
}

func TestRosterExportRejectsStudents(t *testing.T) {
	svc, _ := newRosterService(t, nil, ownedCourse("i1"))

	_, err := svc.Export(context.Background(), studentClaims("u1"), testCourseID, models.ExportFormatCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestRosterExportRejectsUnknownFormat(t *testing.T) {
	svc, _ := newRosterService(t, nil, ownedCourse("i1"))

	_, err := svc.Export(context.Background(), instructorClaims("i1"), testCourseID, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidInput.Code, appErrors.FromError(err).Code)
}

func TestExportRemovesExpiredFiles(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", 30*time.Minute)
	svc := NewRosterExportService(&mockRosterRepo{}, ownedCourse("i1"), &mockExportAuditor{}, store, signer, zap.NewNop())

	stale, err := store.Save("rosters/old/stale.csv", []byte("old"))
	require.NoError(t, err)
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, stale), past, past))

	result, err := svc.Export(context.Background(), instructorClaims("i1"), testCourseID, models.ExportFormatCSV)
	require.NoError(t, err)

	_, err = store.Open("rosters/old/stale.csv")
	require.Error(t, err)

	// The file just written survives the sweep.
	fresh, err := store.Open(result.FileName)
	require.NoError(t, err)
	fresh.Close()
}

func TestResolveRejectsTamperedToken(t *testing.T) {
	svc, _ := newRosterService(t, nil, ownedCourse("i1"))

	_, _, err := svc.Resolve("bogus.token.value.here")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
