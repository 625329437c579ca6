package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type courseRepository interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context, filter models.CourseFilter) ([]models.Course, int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	ListDisciplines(ctx context.Context, courseID string) ([]models.Discipline, error)
	FindDisciplineByID(ctx context.Context, id string) (*models.Discipline, error)
	CreateDiscipline(ctx context.Context, discipline *models.Discipline) error
	UpdateDiscipline(ctx context.Context, discipline *models.Discipline) error
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=150"`
	Description string `json:"description" validate:"max=1000"`
	Semesters   int    `json:"semesters" validate:"required,gte=1,lte=12"`
}

// UpdateCourseRequest updates a course's mutable fields.
type UpdateCourseRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=150"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	Semesters   *int    `json:"semesters" validate:"omitempty,gte=1,lte=12"`
	Active      *bool   `json:"active"`
}

// CreateDisciplineRequest adds a discipline to a course.
type CreateDisciplineRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=150"`
	Workload int    `json:"workload" validate:"required,gte=1,lte=2000"`
	Semester int    `json:"semester" validate:"required,gte=1,lte=12"`
}

// CourseService manages courses and their disciplines.
type CourseService struct {
	repo      courseRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, validate *validator.Validate, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseService{repo: repo, validator: validate, logger: logger}
}

// List returns courses matching the filter.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.Course, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return courses, pagination, nil
}

// Get returns a single course.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req CreateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid course payload"), validationDetails(err)...)
	}

	course := &models.Course{
		Name:        req.Name,
		Description: req.Description,
		Semesters:   req.Semesters,
		Active:      true,
	}
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.logger.Info("course created", zap.String("course_id", course.ID), zap.String("name", course.Name))
	return course, nil
}

// Update changes a course's mutable fields.
func (s *CourseService) Update(ctx context.Context, id string, req UpdateCourseRequest) (*models.Course, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid course payload"), validationDetails(err)...)
	}

	course, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		course.Name = *req.Name
	}
	if req.Description != nil {
		course.Description = *req.Description
	}
	if req.Semesters != nil {
		course.Semesters = *req.Semesters
	}
	if req.Active != nil {
		course.Active = *req.Active
	}

	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	return course, nil
}

// Disciplines returns the disciplines of a course.
func (s *CourseService) Disciplines(ctx context.Context, courseID string) ([]models.Discipline, error) {
	if _, err := s.Get(ctx, courseID); err != nil {
		return nil, err
	}
	disciplines, err := s.repo.ListDisciplines(ctx, courseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	return disciplines, nil
}

// AddDiscipline creates a discipline within a course. The discipline's
// semester must fit the course's duration.
func (s *CourseService) AddDiscipline(ctx context.Context, courseID string, req CreateDisciplineRequest) (*models.Discipline, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid discipline payload"), validationDetails(err)...)
	}

	course, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if req.Semester > course.Semesters {
		return nil, appErrors.Clone(appErrors.ErrValidation, "discipline semester exceeds the course duration")
	}

	discipline := &models.Discipline{
		CourseID: courseID,
		Name:     req.Name,
		Workload: req.Workload,
		Semester: req.Semester,
		Active:   true,
	}
	if err := s.repo.CreateDiscipline(ctx, discipline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discipline")
	}
	return discipline, nil
}
