package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

// scopeLive hides soft-deleted enrollments. Every query in this repository
// goes through it; callers never see deleted rows unless they ask explicitly.
const scopeLive = "e.deleted_at IS NULL"

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.status, e.enrolled_at, e.semester, e.deleted_at, e.created_at, e.updated_at`

// EnrollmentRepository handles persistence of enrollments.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// List returns enrollments filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id
LEFT JOIN courses c ON c.id = e.course_id`
	conditions := []string{scopeLive}
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		conditions = append(conditions, fmt.Sprintf("e.course_id = $%d", len(args)+1))
		args = append(args, filter.CourseID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := " WHERE " + strings.Join(conditions, " AND ")

	allowedSorts := map[string]string{
		"enrolled_at":  "e.enrolled_at",
		"student_name": "s.full_name",
		"course_name":  "c.name",
		"status":       "e.status",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "e.enrolled_at"
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

	query := fmt.Sprintf(`SELECT %s,
        s.full_name AS student_name, s.registry AS student_registry, s.cpf AS student_cpf, c.name AS course_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, orderBy, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns a live enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	query := fmt.Sprintf(`SELECT %s FROM enrollments e WHERE e.id = $1 AND %s`, enrollmentColumns, scopeLive)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns a live enrollment with student and course context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s,
        s.full_name AS student_name, s.registry AS student_registry, s.cpf AS student_cpf, c.name AS course_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        LEFT JOIN courses c ON c.id = e.course_id
        WHERE e.id = $1 AND %s`, enrollmentColumns, scopeLive)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// ExistsNonCancelled checks whether the student already holds a live,
// non-cancelled enrollment for the course.
func (r *EnrollmentRepository) ExistsNonCancelled(ctx context.Context, studentID, courseID string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM enrollments e WHERE e.student_id = $1 AND e.course_id = $2 AND e.status <> $3 AND %s LIMIT 1`, scopeLive)
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, courseID, models.EnrollmentStatusCancelled); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check existing enrollment: %w", err)
	}
	return true, nil
}

// Create persists a new enrollment record.
func (r *EnrollmentRepository) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if enrollment.EnrolledAt.IsZero() {
		enrollment.EnrolledAt = now
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusPending
	}
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, course_id, status, enrolled_at, semester, deleted_at, created_at, updated_at)
        VALUES (:id, :student_id, :course_id, :status, :enrolled_at, :semester, :deleted_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// UpdateStatus updates the status of a live enrollment.
func (r *EnrollmentRepository) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error {
	query := fmt.Sprintf(`UPDATE enrollments e SET status = $2, updated_at = $3 WHERE e.id = $1 AND %s`, scopeLive)
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update enrollment status: %w", err)
	}
	return nil
}

// SoftDelete cancels an enrollment and hides it from default queries. The
// row is never physically erased.
func (r *EnrollmentRepository) SoftDelete(ctx context.Context, id string) error {
	now := time.Now().UTC()
	query := fmt.Sprintf(`UPDATE enrollments e SET status = $2, deleted_at = $3, updated_at = $3 WHERE e.id = $1 AND %s`, scopeLive)
	res, err := r.db.ExecContext(ctx, query, id, models.EnrollmentStatusCancelled, now)
	if err != nil {
		return fmt.Errorf("soft delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkActiveAsPending flips every live ACTIVE enrollment to PENDING in one
// transaction and returns the affected IDs. Partial transitions are never
// observable: any failure rolls the whole batch back.
func (r *EnrollmentRepository) MarkActiveAsPending(ctx context.Context) (ids []string, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reenrollment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	query := fmt.Sprintf(`UPDATE enrollments e SET status = $1, updated_at = $2 WHERE e.status = $3 AND %s RETURNING e.id`, scopeLive)
	rows, err := tx.QueryxContext(ctx, query, models.EnrollmentStatusPending, time.Now().UTC(), models.EnrollmentStatusActive)
	if err != nil {
		return nil, fmt.Errorf("mark active enrollments pending: %w", err)
	}
	for rows.Next() {
		var id string
		if err = rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan enrollment id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollment ids: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reenrollment tx: %w", err)
	}
	return ids, nil
}

// AcceptReenrollment atomically reverts a PENDING enrollment to ACTIVE and
// records the acceptance contract. Returns sql.ErrNoRows when the enrollment
// is not live and PENDING, leaving the database untouched.
func (r *EnrollmentRepository) AcceptReenrollment(ctx context.Context, enrollmentID string, contract *models.Contract) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin acceptance tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	updateQuery := fmt.Sprintf(`UPDATE enrollments e SET status = $2, updated_at = $3 WHERE e.id = $1 AND e.status = $4 AND %s`, scopeLive)
	res, err := tx.ExecContext(ctx, updateQuery, enrollmentID, models.EnrollmentStatusActive, time.Now().UTC(), models.EnrollmentStatusPending)
	if err != nil {
		return fmt.Errorf("activate enrollment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check activation: %w", err)
	}
	if affected == 0 {
		err = sql.ErrNoRows
		return err
	}

	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	const insertQuery = `INSERT INTO contracts (id, enrollment_id, student_id, semester, year, file_path, file_name, accepted_at, created_at)
        VALUES (:id, :enrollment_id, :student_id, :semester, :year, :file_path, :file_name, :accepted_at, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insertQuery, contract); err != nil {
		return fmt.Errorf("create acceptance contract: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit acceptance tx: %w", err)
	}
	return nil
}
