package models

import "time"

// Export formats accepted by the roster export endpoint.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// ExportResult describes a generated roster file and its signed download token.
type ExportResult struct {
	ExportID    string    `json:"export_id"`
	CourseID    string    `json:"course_id"`
	Format      string    `json:"format"`
	FileName    string    `json:"file_name"`
	RowCount    int       `json:"row_count"`
	DownloadURL string    `json:"download_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}
