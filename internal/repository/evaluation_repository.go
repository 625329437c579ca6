package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/secretaria-online/secretaria-api/internal/models"
)

// EvaluationRepository persists evaluations and grades.
type EvaluationRepository struct {
	db *sqlx.DB
}

// NewEvaluationRepository constructs the repository.
func NewEvaluationRepository(db *sqlx.DB) *EvaluationRepository {
	return &EvaluationRepository{db: db}
}

// FindByID returns an evaluation by identifier.
func (r *EvaluationRepository) FindByID(ctx context.Context, id string) (*models.Evaluation, error) {
	const query = `SELECT id, class_id, name, weight, applied_at, created_at, updated_at FROM evaluations WHERE id = $1 LIMIT 1`
	var evaluation models.Evaluation
	if err := r.db.GetContext(ctx, &evaluation, query, id); err != nil {
		return nil, err
	}
	return &evaluation, nil
}

// ListByClass returns a class's evaluations ordered by application date.
func (r *EvaluationRepository) ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error) {
	const query = `SELECT id, class_id, name, weight, applied_at, created_at, updated_at FROM evaluations WHERE class_id = $1 ORDER BY applied_at ASC`
	var evaluations []models.Evaluation
	if err := r.db.SelectContext(ctx, &evaluations, query, classID); err != nil {
		return nil, fmt.Errorf("list class evaluations: %w", err)
	}
	return evaluations, nil
}

// Create inserts a new evaluation.
func (r *EvaluationRepository) Create(ctx context.Context, evaluation *models.Evaluation) error {
	if evaluation.ID == "" {
		evaluation.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now
	const query = `INSERT INTO evaluations (id, class_id, name, weight, applied_at, created_at, updated_at)
        VALUES (:id, :class_id, :name, :weight, :applied_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, evaluation); err != nil {
		return fmt.Errorf("create evaluation: %w", err)
	}
	return nil
}

// UpsertGrade records or replaces a student's score for an evaluation.
func (r *EvaluationRepository) UpsertGrade(ctx context.Context, grade *models.Grade) error {
	if grade.ID == "" {
		grade.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if grade.CreatedAt.IsZero() {
		grade.CreatedAt = now
	}
	grade.UpdatedAt = now
	const query = `INSERT INTO grades (id, evaluation_id, student_id, score, created_at, updated_at)
        VALUES (:id, :evaluation_id, :student_id, :score, :created_at, :updated_at)
        ON CONFLICT (evaluation_id, student_id) DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, grade); err != nil {
		return fmt.Errorf("upsert grade: %w", err)
	}
	return nil
}

// ListGrades returns the grades of an evaluation with student names.
func (r *EvaluationRepository) ListGrades(ctx context.Context, evaluationID string) ([]models.GradeDetail, error) {
	const query = `SELECT g.id, g.evaluation_id, g.student_id, g.score, g.created_at, g.updated_at, s.full_name AS student_name
        FROM grades g
        LEFT JOIN students s ON s.id = g.student_id
        WHERE g.evaluation_id = $1 ORDER BY s.full_name ASC`
	var grades []models.GradeDetail
	if err := r.db.SelectContext(ctx, &grades, query, evaluationID); err != nil {
		return nil, fmt.Errorf("list evaluation grades: %w", err)
	}
	return grades, nil
}
