package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edupath-id/edupath-api/internal/models"
)

// CourseRepository handles persistence of the course catalog. Queries return
// explicit projections; related modules and lessons are loaded with separate
// statements instead of join-graph hydration.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository constructs the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// List returns published courses filtered by the provided criteria.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error) {
	base := `FROM courses c LEFT JOIN users u ON u.id = c.instructor_id`
	conditions := []string{"c.published = TRUE"}
	var args []interface{}

	if filter.InstructorID != "" {
		conditions = append(conditions, fmt.Sprintf("c.instructor_id = $%d", len(args)+1))
		args = append(args, filter.InstructorID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(c.title) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"title":      "c.title",
		"price":      "c.price",
		"created_at": "c.created_at",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "c.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT c.id, c.title, c.description, c.price, c.instructor_id, c.published, c.created_at, c.updated_at,
        COALESCE(u.full_name, '') AS instructor_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, base+clause, orderBy, order, size, offset)

	var courses []models.CourseDetail
	if err := r.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list courses: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count courses: %w", err)
	}
	return courses, total, nil
}

// FindByID returns a course by its ID.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, title, description, price, instructor_id, published, created_at, updated_at FROM courses WHERE id = $1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// FindDetailByID returns a course with instructor info and full content
// structure (modules ordered by position, each with its lessons).
func (r *CourseRepository) FindDetailByID(ctx context.Context, id string) (*models.CourseDetail, error) {
	const query = `SELECT c.id, c.title, c.description, c.price, c.instructor_id, c.published, c.created_at, c.updated_at,
        COALESCE(u.full_name, '') AS instructor_name
        FROM courses c
        LEFT JOIN users u ON u.id = c.instructor_id
        WHERE c.id = $1`
	var detail models.CourseDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	modules, err := r.modulesWithLessons(ctx, id)
	if err != nil {
		return nil, err
	}
	detail.Modules = modules
	return &detail, nil
}

// Create persists a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = now
	}
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, title, description, price, instructor_id, published, created_at, updated_at)
        VALUES (:id, :title, :description, :price, :instructor_id, :published, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

func (r *CourseRepository) modulesWithLessons(ctx context.Context, courseID string) ([]models.CourseModule, error) {
	const moduleQuery = `SELECT id, course_id, title, position FROM course_modules WHERE course_id = $1 ORDER BY position ASC`
	var modules []models.CourseModule
	if err := r.db.SelectContext(ctx, &modules, moduleQuery, courseID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("list course modules: %w", err)
	}
	if len(modules) == 0 {
		return modules, nil
	}

	ids := make([]string, len(modules))
	for i, m := range modules {
		ids[i] = m.ID
	}
	lessonQuery, args, err := sqlx.In(`SELECT id, module_id, title, position, duration_minutes FROM lessons WHERE module_id IN (?) ORDER BY position ASC`, ids)
	if err != nil {
		return nil, fmt.Errorf("build lessons query: %w", err)
	}
	lessonQuery = r.db.Rebind(lessonQuery)

	var lessons []models.Lesson
	if err := r.db.SelectContext(ctx, &lessons, lessonQuery, args...); err != nil {
		return nil, fmt.Errorf("list lessons: %w", err)
	}

	byModule := make(map[string][]models.Lesson, len(modules))
	for _, lesson := range lessons {
		byModule[lesson.ModuleID] = append(byModule[lesson.ModuleID], lesson)
	}
	for i := range modules {
		modules[i].Lessons = byModule[modules[i].ID]
	}
	return modules, nil
}
