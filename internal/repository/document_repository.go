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

const documentColumns = `id, student_id, type, file_path, file_name, mime_type, size_bytes, status, reviewed_by, reviewed_at, note, created_at`

// DocumentRepository persists uploaded student documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document record.
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	if document.Status == "" {
		document.Status = models.DocumentStatusPending
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, student_id, type, file_path, file_name, mime_type, size_bytes, status, reviewed_by, reviewed_at, note, created_at)
        VALUES (:id, :student_id, :type, :file_path, :file_name, :mime_type, :size_bytes, :status, :reviewed_by, :reviewed_at, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, document); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// FindByID returns a document by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM documents WHERE id = $1 LIMIT 1`, documentColumns)
	var document models.Document
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		return nil, err
	}
	return &document, nil
}

// List returns documents matching the filter, newest first.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error) {
	base := `FROM documents`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
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

	query := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", documentColumns, base+clause, size, offset)

	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	return documents, total, nil
}

// Review sets the review outcome for a document.
func (r *DocumentRepository) Review(ctx context.Context, id string, status models.DocumentStatus, reviewerID string, note *string) error {
	const query = `UPDATE documents SET status = $2, reviewed_by = $3, reviewed_at = $4, note = $5 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, reviewerID, time.Now().UTC(), note); err != nil {
		return fmt.Errorf("review document: %w", err)
	}
	return nil
}

// AllMandatoryApproved reports whether the student holds an approved
// document of every mandatory type. Feeds the activation guard.
func (r *DocumentRepository) AllMandatoryApproved(ctx context.Context, studentID string) (bool, error) {
	placeholders := make([]string, len(models.MandatoryDocumentTypes))
	args := make([]interface{}, 0, len(models.MandatoryDocumentTypes)+2)
	args = append(args, studentID, models.DocumentStatusApproved)
	for i, docType := range models.MandatoryDocumentTypes {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, docType)
	}
	query := fmt.Sprintf(`SELECT COUNT(DISTINCT type) FROM documents WHERE student_id = $1 AND status = $2 AND type IN (%s)`, strings.Join(placeholders, ","))

	var approved int
	if err := r.db.GetContext(ctx, &approved, query, args...); err != nil {
		return false, fmt.Errorf("count approved documents: %w", err)
	}
	return approved == len(models.MandatoryDocumentTypes), nil
}
