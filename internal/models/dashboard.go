package models

// DashboardSummary is the per-user landing page payload: enrollment counters
// plus the most recently accessed courses.
type DashboardSummary struct {
	UserID               string             `json:"user_id"`
	TotalEnrollments     int                `json:"total_enrollments"`
	CompletedEnrollments int                `json:"completed_enrollments"`
	InProgress           int                `json:"in_progress"`
	RecentEnrollments    []EnrollmentDetail `json:"recent_enrollments"`
}
