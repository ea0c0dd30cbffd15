package models

import "time"

// Course is the read-mostly catalog entity.
type Course struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	Description  string    `db:"description" json:"description"`
	Price        float64   `db:"price" json:"price"`
	InstructorID string    `db:"instructor_id" json:"instructor_id"`
	Published    bool      `db:"published" json:"published"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseModule groups lessons inside a course.
type CourseModule struct {
	ID       string   `db:"id" json:"id"`
	CourseID string   `db:"course_id" json:"course_id"`
	Title    string   `db:"title" json:"title"`
	Position int      `db:"position" json:"position"`
	Lessons  []Lesson `db:"-" json:"lessons"`
}

// Lesson is a single unit of course content.
type Lesson struct {
	ID              string `db:"id" json:"id"`
	ModuleID        string `db:"module_id" json:"module_id"`
	Title           string `db:"title" json:"title"`
	Position        int    `db:"position" json:"position"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
}

// CourseDetail enriches Course with its instructor and content structure.
type CourseDetail struct {
	Course
	InstructorName string         `db:"instructor_name" json:"instructor_name"`
	Modules        []CourseModule `db:"-" json:"modules"`
}

// CreateCourseRequest is the payload for publishing a new catalog entry.
type CreateCourseRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description string  `json:"description"`
	Price       float64 `json:"price" validate:"gte=0"`
	Published   bool    `json:"published"`
}

// CourseFilter provides filters for listing courses.
type CourseFilter struct {
	InstructorID string
	Search       string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
