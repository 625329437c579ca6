package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type evaluationRepository interface {
	FindByID(ctx context.Context, id string) (*models.Evaluation, error)
	ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error)
	Create(ctx context.Context, evaluation *models.Evaluation) error
	UpsertGrade(ctx context.Context, grade *models.Grade) error
	ListGrades(ctx context.Context, evaluationID string) ([]models.GradeDetail, error)
}

type evaluationClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

// CreateEvaluationRequest is the payload for scheduling an assessment.
type CreateEvaluationRequest struct {
	ClassID   string  `json:"class_id" validate:"required,uuid4"`
	Name      string  `json:"name" validate:"required,min=2,max=150"`
	Weight    float64 `json:"weight" validate:"required,gt=0,lte=10"`
	AppliedAt string  `json:"applied_at" validate:"required,datetime=2006-01-02"`
}

// RecordGradeRequest sets or replaces a student's score on an evaluation.
type RecordGradeRequest struct {
	StudentID string  `json:"student_id" validate:"required,uuid4"`
	Score     float64 `json:"score" validate:"gte=0,lte=10"`
}

// EvaluationService manages class assessments and grades. A teacher may
// only touch evaluations of their own classes; admins bypass that check.
type EvaluationService struct {
	repo      evaluationRepository
	classes   evaluationClassReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEvaluationService constructs EvaluationService.
func NewEvaluationService(repo evaluationRepository, classes evaluationClassReader, validate *validator.Validate, logger *zap.Logger) *EvaluationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EvaluationService{repo: repo, classes: classes, validator: validate, logger: logger}
}

// ListByClass returns the evaluations of a class.
func (s *EvaluationService) ListByClass(ctx context.Context, classID string) ([]models.Evaluation, error) {
	if _, err := s.loadClass(ctx, classID); err != nil {
		return nil, err
	}
	evaluations, err := s.repo.ListByClass(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list evaluations")
	}
	return evaluations, nil
}

// Create schedules an assessment for a class. Teachers may only create for
// classes they teach.
func (s *EvaluationService) Create(ctx context.Context, actor *models.User, req CreateEvaluationRequest) (*models.Evaluation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid evaluation payload"), validationDetails(err)...)
	}
	appliedAt, err := time.Parse("2006-01-02", req.AppliedAt)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "applied_at must use the YYYY-MM-DD format")
	}

	class, err := s.loadClass(ctx, req.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTeacher(actor, class); err != nil {
		return nil, err
	}

	evaluation := &models.Evaluation{
		ClassID:   req.ClassID,
		Name:      req.Name,
		Weight:    req.Weight,
		AppliedAt: appliedAt,
	}
	if err := s.repo.Create(ctx, evaluation); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create evaluation")
	}
	s.logger.Info("evaluation created", zap.String("evaluation_id", evaluation.ID), zap.String("class_id", class.ID))
	return evaluation, nil
}

// RecordGrade sets a student's score, replacing any previous one for the
// same evaluation.
func (s *EvaluationService) RecordGrade(ctx context.Context, actor *models.User, evaluationID string, req RecordGradeRequest) (*models.Grade, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid grade payload"), validationDetails(err)...)
	}

	evaluation, err := s.repo.FindByID(ctx, evaluationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	class, err := s.loadClass(ctx, evaluation.ClassID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeTeacher(actor, class); err != nil {
		return nil, err
	}

	grade := &models.Grade{
		EvaluationID: evaluationID,
		StudentID:    req.StudentID,
		Score:        req.Score,
	}
	if err := s.repo.UpsertGrade(ctx, grade); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record grade")
	}
	return grade, nil
}

// Grades returns every grade recorded for an evaluation.
func (s *EvaluationService) Grades(ctx context.Context, evaluationID string) ([]models.GradeDetail, error) {
	if _, err := s.repo.FindByID(ctx, evaluationID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "evaluation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load evaluation")
	}
	grades, err := s.repo.ListGrades(ctx, evaluationID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list grades")
	}
	return grades, nil
}

func (s *EvaluationService) loadClass(ctx context.Context, classID string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func (s *EvaluationService) authorizeTeacher(actor *models.User, class *models.Class) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthorized, "missing authenticated user")
	}
	if actor.Role == models.RoleAdmin {
		return nil
	}
	if actor.Role == models.RoleTeacher && class.TeacherID == actor.ID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the assigned teacher may manage this class")
}
