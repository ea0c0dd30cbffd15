package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edupath-id/edupath-api/internal/models"
	appErrors "github.com/edupath-id/edupath-api/pkg/errors"
	"github.com/edupath-id/edupath-api/pkg/export"
	"github.com/edupath-id/edupath-api/pkg/storage"
)

var rosterHeaders = []string{"Name", "Email", "Enrolled At", "Progress", "Completed"}

type rosterRepository interface {
	RosterByCourse(ctx context.Context, courseID string) ([]models.RosterEntry, error)
}

type rosterAuditor interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// RosterExportService renders course rosters to CSV or PDF files and hands
// out time-limited signed download tokens. Files are generated synchronously
// in the request path.
type RosterExportService struct {
	enrollments rosterRepository
	courses     courseReader
	auditor     rosterAuditor
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	store       *storage.LocalStorage
	signer      *storage.SignedURLSigner
	logger      *zap.Logger
}

// NewRosterExportService constructs RosterExportService.
func NewRosterExportService(enrollments rosterRepository, courses courseReader, auditor rosterAuditor, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *RosterExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterExportService{
		enrollments: enrollments,
		courses:     courses,
		auditor:     auditor,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		store:       store,
		signer:      signer,
		logger:      logger,
	}
}

// Export generates a roster file for the course. Instructors may only export
// rosters for courses they own; admins may export any.
func (s *RosterExportService) Export(ctx context.Context, claims *models.SessionClaims, courseID, format string) (*models.ExportResult, error) {
	if claims == nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "")
	}
	if claims.Role != models.RoleInstructor && claims.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only instructors can export rosters")
	}
	if _, err := uuid.Parse(courseID); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "invalid course id")
	}
	if format != models.ExportFormatCSV && format != models.ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrInvalidInput, "format must be csv or pdf")
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if claims.Role == models.RoleInstructor && course.InstructorID != claims.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "course belongs to another instructor")
	}

	roster, err := s.enrollments.RosterByCourse(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
	}

	dataset := rosterDataset(roster)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, fmt.Sprintf("Roster - %s", course.Title))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	exportID := uuid.NewString()
	relPath := fmt.Sprintf("rosters/%s/%s.%s", courseID, exportID, format)
	if _, err := s.store.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store roster file")
	}

	token, expiresAt, err := s.signer.Generate(exportID, relPath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download url")
	}

	if s.auditor != nil {
		if err := s.auditor.CreateAuditLog(ctx, &models.AuditLog{
			UserID:     &claims.UserID,
			Action:     models.AuditActionRosterExport,
			Resource:   "courses",
			ResourceID: &courseID,
			NewValues:  []byte(fmt.Sprintf(`{"format":%q,"rows":%d}`, format, len(roster))),
		}); err != nil {
			s.logger.Warn("failed to record roster export audit log", zap.Error(err))
		}
	}

	s.logger.Info("roster exported",
		zap.String("course_id", courseID),
		zap.String("export_id", exportID),
		zap.String("format", format),
		zap.Int("rows", len(roster)))

	// Piggy-back housekeeping on the write path: files older than the token
	// TTL can no longer be downloaded, so drop them now.
	if _, err := s.CleanupExpired(s.signer.TTL()); err != nil {
		s.logger.Warn("failed to clean up expired exports", zap.Error(err))
	}

	return &models.ExportResult{
		ExportID:    exportID,
		CourseID:    courseID,
		Format:      format,
		FileName:    relPath,
		RowCount:    len(roster),
		DownloadURL: fmt.Sprintf("/exports/download?token=%s", token),
		ExpiresAt:   expiresAt,
	}, nil
}

// Resolve validates a signed download token and opens the referenced file.
func (s *RosterExportService) Resolve(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, appErrors.ErrForbidden.Status, "invalid or expired download token")
	}
	file, err := s.store.Open(relPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export file no longer available")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open export file")
	}
	return file, relPath, nil
}

// CleanupExpired removes export files older than the signer TTL.
func (s *RosterExportService) CleanupExpired(ttl time.Duration) (int, error) {
	deleted, err := s.store.CleanupOlderThan(ttl)
	if err != nil {
		return 0, err
	}
	if len(deleted) > 0 {
		s.logger.Info("expired exports removed", zap.Int("count", len(deleted)))
	}
	return len(deleted), nil
}

func rosterDataset(roster []models.RosterEntry) export.Dataset {
	rows := make([]map[string]string, 0, len(roster))
	for _, entry := range roster {
		completed := "no"
		if entry.Completed {
			completed = "yes"
		}
		rows = append(rows, map[string]string{
			"Name":        entry.FullName,
			"Email":       entry.Email,
			"Enrolled At": entry.EnrolledAt.Format(time.RFC3339),
			"Progress":    strconv.FormatFloat(entry.Progress, 'f', 1, 64) + "%",
			"Completed":   completed,
		})
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}
