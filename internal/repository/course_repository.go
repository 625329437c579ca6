package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

// CourseRepository provides database access for the course catalog.
type CourseRepository struct {
	db *sqlx.DB
}

// NewCourseRepository creates the repository.
func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

// FindByID returns a course by identifier.
func (r *CourseRepository) FindByID(ctx context.Context, id string) (*models.Course, error) {
	const query = `SELECT id, name, description, semesters, active, created_at, updated_at FROM courses WHERE id = $1 LIMIT 1`
	var course models.Course
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// List returns courses matching the filter with total count.
func (r *CourseRepository) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error) {
	base := `FROM courses WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " AND " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf("SELECT id, name, description, semesters, active, created_at, updated_at %s ORDER BY name ASC LIMIT %d OFFSET %d", base+clause, size, offset)

	var courses []models.Course
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

// Create inserts a new course.
func (r *CourseRepository) Create(ctx context.Context, course *models.Course) error {
	if course.ID == "" {
		course.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	course.CreatedAt = now
	course.UpdatedAt = now
	const query = `INSERT INTO courses (id, name, description, semesters, active, created_at, updated_at)
        VALUES (:id, :name, :description, :semesters, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

// Update updates mutable course fields.
func (r *CourseRepository) Update(ctx context.Context, course *models.Course) error {
	course.UpdatedAt = time.Now().UTC()
	const query = `UPDATE courses SET name = :name, description = :description, semesters = :semesters, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, course); err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return nil
}

// ListDisciplines returns the disciplines of a course ordered by semester.
func (r *CourseRepository) ListDisciplines(ctx context.Context, courseID string) ([]models.Discipline, error) {
	const query = `SELECT id, course_id, name, workload, semester, active, created_at, updated_at FROM disciplines WHERE course_id = $1 ORDER BY semester ASC, name ASC`
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, courseID); err != nil {
		return nil, fmt.Errorf("list course disciplines: %w", err)
	}
	return disciplines, nil
}

// FindDisciplineByID returns a discipline by identifier.
func (r *CourseRepository) FindDisciplineByID(ctx context.Context, id string) (*models.Discipline, error) {
	const query = `SELECT id, course_id, name, workload, semester, active, created_at, updated_at FROM disciplines WHERE id = $1 LIMIT 1`
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, query, id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// CreateDiscipline inserts a new discipline under a course.
func (r *CourseRepository) CreateDiscipline(ctx context.Context, discipline *models.Discipline) error {
	if discipline.ID == "" {
		discipline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	discipline.CreatedAt = now
	discipline.UpdatedAt = now
	const query = `INSERT INTO disciplines (id, course_id, name, workload, semester, active, created_at, updated_at)
        VALUES (:id, :course_id, :name, :workload, :semester, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, discipline); err != nil {
		return fmt.Errorf("create discipline: %w", err)
	}
	return nil
}

// UpdateDiscipline updates mutable discipline fields.
func (r *CourseRepository) UpdateDiscipline(ctx context.Context, discipline *models.Discipline) error {
	discipline.UpdatedAt = time.Now().UTC()
	const query = `UPDATE disciplines SET name = :name, workload = :workload, semester = :semester, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, discipline); err != nil {
		return fmt.Errorf("update discipline: %w", err)
	}
	return nil
}
