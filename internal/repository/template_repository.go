package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

const templateColumns = `id, name, content, active, created_at, updated_at`

// TemplateRepository persists contract templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// FindFirstActive returns the oldest active template. This is the template
// every rendering path uses.
func (r *TemplateRepository) FindFirstActive(ctx context.Context) (*models.ContractTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM contract_templates WHERE active = TRUE ORDER BY created_at ASC LIMIT 1`, templateColumns)
	var template models.ContractTemplate
	if err := r.db.GetContext(ctx, &template, query); err != nil {
		return nil, err
	}
	return &template, nil
}

// FindByID returns a template by identifier.
func (r *TemplateRepository) FindByID(ctx context.Context, id string) (*models.ContractTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM contract_templates WHERE id = $1`, templateColumns)
	var template models.ContractTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// List returns all templates, newest first.
func (r *TemplateRepository) List(ctx context.Context) ([]models.ContractTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM contract_templates ORDER BY created_at DESC`, templateColumns)
	var templates []models.ContractTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list contract templates: %w", err)
	}
	return templates, nil
}

// Create inserts a new template.
func (r *TemplateRepository) Create(ctx context.Context, template *models.ContractTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	template.CreatedAt = now
	template.UpdatedAt = now
	const query = `INSERT INTO contract_templates (id, name, content, active, created_at, updated_at)
        VALUES (:id, :name, :content, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create contract template: %w", err)
	}
	return nil
}

// Update updates the mutable fields of a template.
func (r *TemplateRepository) Update(ctx context.Context, template *models.ContractTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE contract_templates SET name = :name, content = :content, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update contract template: %w", err)
	}
	return nil
}
