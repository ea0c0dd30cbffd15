package models

import "time"

// Enrollment links a user to a course. At most one row exists per
// (user_id, course_id) pair; the database enforces this with a unique index
// and the service-level existence check is only advisory.
type Enrollment struct {
	ID           string     `db:"id" json:"id"`
	UserID       string     `db:"user_id" json:"user_id"`
	CourseID     string     `db:"course_id" json:"course_id"`
	EnrolledAt   time.Time  `db:"enrolled_at" json:"enrolled_at"`
	Progress     float64    `db:"progress" json:"progress"`
	Completed    bool       `db:"completed" json:"completed"`
	LastAccessed *time.Time `db:"last_accessed" json:"last_accessed,omitempty"`
}

// EnrollmentDetail enriches Enrollment with course and instructor info.
type EnrollmentDetail struct {
	Enrollment
	CourseTitle    string `db:"course_title" json:"course_title"`
	InstructorID   string `db:"instructor_id" json:"instructor_id"`
	InstructorName string `db:"instructor_name" json:"instructor_name"`
}

// EnrollmentWithCourse is the full listing projection: the enrollment plus
// the course with its module and lesson structure.
type EnrollmentWithCourse struct {
	Enrollment
	Course CourseDetail `json:"course"`
}

// RosterEntry is one row of an instructor's course roster export.
type RosterEntry struct {
	UserID     string    `db:"user_id" json:"user_id"`
	FullName   string    `db:"full_name" json:"full_name"`
	Email      string    `db:"email" json:"email"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Progress   float64   `db:"progress" json:"progress"`
	Completed  bool      `db:"completed" json:"completed"`
}
