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

// ContractRepository persists contract records.
type ContractRepository struct {
	db *sqlx.DB
}

// NewContractRepository constructs the repository.
func NewContractRepository(db *sqlx.DB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Create inserts a new contract row. Contracts are append-only; only
// SetAccepted may touch a row afterwards.
func (r *ContractRepository) Create(ctx context.Context, contract *models.Contract) error {
	if contract.ID == "" {
		contract.ID = uuid.NewString()
	}
	if contract.CreatedAt.IsZero() {
		contract.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contracts (id, enrollment_id, student_id, semester, year, file_path, file_name, accepted_at, created_at)
        VALUES (:id, :enrollment_id, :student_id, :semester, :year, :file_path, :file_name, :accepted_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, contract); err != nil {
		return fmt.Errorf("create contract: %w", err)
	}
	return nil
}

// FindByID returns a contract by identifier.
func (r *ContractRepository) FindByID(ctx context.Context, id string) (*models.Contract, error) {
	const query = `SELECT id, enrollment_id, student_id, semester, year, file_path, file_name, accepted_at, created_at FROM contracts WHERE id = $1`
	var contract models.Contract
	if err := r.db.GetContext(ctx, &contract, query, id); err != nil {
		return nil, err
	}
	return &contract, nil
}

// List returns contracts matching the filter, newest first.
func (r *ContractRepository) List(ctx context.Context, filter models.ContractFilter) ([]models.Contract, int, error) {
	base := `FROM contracts`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT id, enrollment_id, student_id, semester, year, file_path, file_name, accepted_at, created_at %s ORDER BY created_at DESC LIMIT %d OFFSET %d`, base+clause, size, offset)

	var contracts []models.Contract
	if err := r.db.SelectContext(ctx, &contracts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list contracts: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count contracts: %w", err)
	}
	return contracts, total, nil
}

// SetAccepted stamps the acceptance timestamp once. Already-accepted rows
// are left untouched.
func (r *ContractRepository) SetAccepted(ctx context.Context, id string, acceptedAt time.Time) error {
	const query = `UPDATE contracts SET accepted_at = $2 WHERE id = $1 AND accepted_at IS NULL`
	if _, err := r.db.ExecContext(ctx, query, id, acceptedAt); err != nil {
		return fmt.Errorf("set contract accepted: %w", err)
	}
	return nil
}
