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

type classRepository interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type teacherUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type classDisciplineReader interface {
	FindDisciplineByID(ctx context.Context, id string) (*models.Discipline, error)
}

// CreateClassRequest is the payload for opening a class.
type CreateClassRequest struct {
	DisciplineID string `json:"discipline_id" validate:"required,uuid4"`
	TeacherID    string `json:"teacher_id" validate:"required,uuid4"`
	Semester     int    `json:"semester" validate:"required,oneof=1 2"`
	Year         int    `json:"year" validate:"required,gte=2000,lte=2100"`
	Schedule     string `json:"schedule" validate:"required,max=200"`
	Capacity     int    `json:"capacity" validate:"required,gte=1,lte=500"`
}

// UpdateClassRequest updates a class's mutable fields.
type UpdateClassRequest struct {
	TeacherID *string `json:"teacher_id" validate:"omitempty,uuid4"`
	Schedule  *string `json:"schedule" validate:"omitempty,max=200"`
	Capacity  *int    `json:"capacity" validate:"omitempty,gte=1,lte=500"`
}

// ClassService manages discipline offerings and their teacher assignment.
type ClassService struct {
	repo        classRepository
	users       teacherUserReader
	disciplines classDisciplineReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewClassService constructs ClassService.
func NewClassService(repo classRepository, users teacherUserReader, disciplines classDisciplineReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{repo: repo, users: users, disciplines: disciplines, validator: validate, logger: logger}
}

// List returns classes matching the filter.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	classes, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return classes, pagination, nil
}

// Get returns a single class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create opens a class. The assigned user must hold the TEACHER role.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid class payload"), validationDetails(err)...)
	}

	if _, err := s.disciplines.FindDisciplineByID(ctx, req.DisciplineID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load discipline")
	}
	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}

	class := &models.Class{
		DisciplineID: req.DisciplineID,
		TeacherID:    req.TeacherID,
		Semester:     req.Semester,
		Year:         req.Year,
		Schedule:     req.Schedule,
		Capacity:     req.Capacity,
	}
	if err := s.repo.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("discipline_id", class.DisciplineID))
	return class, nil
}

// Update changes a class's teacher, schedule or capacity.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid class payload"), validationDetails(err)...)
	}

	class, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.TeacherID != nil {
		if err := s.checkTeacher(ctx, *req.TeacherID); err != nil {
			return nil, err
		}
		class.TeacherID = *req.TeacherID
	}
	if req.Schedule != nil {
		class.Schedule = *req.Schedule
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}

	if err := s.repo.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	return nil
}

func (s *ClassService) checkTeacher(ctx context.Context, teacherID string) error {
	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if user.Role != models.RoleTeacher {
		return appErrors.Clone(appErrors.ErrValidation, "assigned user does not hold the teacher role")
	}
	return nil
}
