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

// ClassRepository provides database access for discipline offerings.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository creates the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// FindByID returns a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, discipline_id, teacher_id, semester, year, schedule, capacity, created_at, updated_at FROM classes WHERE id = $1 LIMIT 1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// List returns classes with discipline and teacher context.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes cl
LEFT JOIN disciplines d ON d.id = cl.discipline_id
LEFT JOIN users t ON t.id = cl.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.DisciplineID != "" {
		conditions = append(conditions, fmt.Sprintf("cl.discipline_id = $%d", len(args)+1))
		args = append(args, filter.DisciplineID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("cl.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Semester != 0 {
		conditions = append(conditions, fmt.Sprintf("cl.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("cl.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
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

	query := fmt.Sprintf(`SELECT cl.id, cl.discipline_id, cl.teacher_id, cl.semester, cl.year, cl.schedule, cl.capacity, cl.created_at, cl.updated_at,
        d.name AS discipline_name, d.course_id AS course_id, t.full_name AS teacher_name
        %s ORDER BY cl.year DESC, cl.semester DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// Create inserts a new class.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, discipline_id, teacher_id, semester, year, schedule, capacity, created_at, updated_at)
        VALUES (:id, :discipline_id, :teacher_id, :semester, :year, :schedule, :capacity, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update updates mutable class fields.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET teacher_id = :teacher_id, schedule = :schedule, capacity = :capacity, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class permanently.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM classes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	return nil
}
