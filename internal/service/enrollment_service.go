package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type enrollmentRepository interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	ExistsNonCancelled(ctx context.Context, studentID, courseID string) (bool, error)
	Create(ctx context.Context, enrollment *models.Enrollment) error
	UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus) error
	SoftDelete(ctx context.Context, id string) error
}

type enrollmentStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type enrollmentCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type mandatoryDocumentChecker interface {
	AllMandatoryApproved(ctx context.Context, studentID string) (bool, error)
}

// CreateEnrollmentRequest is the payload for registering a student in a course.
type CreateEnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required,uuid4"`
	CourseID  string `json:"course_id" validate:"required,uuid4"`
	Semester  *int   `json:"semester" validate:"omitempty,gte=1,lte=12"`
}

// UpdateEnrollmentStatusRequest is the payload for a manual status change.
type UpdateEnrollmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// EnrollmentService manages the enrollment lifecycle. Every status change
// goes through the transition table; there is no back door that writes an
// arbitrary status.
type EnrollmentService struct {
	repo      enrollmentRepository
	students  enrollmentStudentReader
	courses   enrollmentCourseReader
	documents mandatoryDocumentChecker
	audit     auditWriter

	// requireDocumentApproval selects the activation mode. Off, an admin
	// may set ACTIVE from any state, terminal ones included. On, activation
	// follows the transition table and PENDING to ACTIVE additionally
	// requires every mandatory document approved. Off by default.
	requireDocumentApproval bool

	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs EnrollmentService.
func NewEnrollmentService(
	repo enrollmentRepository,
	students enrollmentStudentReader,
	courses enrollmentCourseReader,
	documents mandatoryDocumentChecker,
	audit auditWriter,
	requireDocumentApproval bool,
	validate *validator.Validate,
	logger *zap.Logger,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		repo:                    repo,
		students:                students,
		courses:                 courses,
		documents:               documents,
		audit:                   audit,
		requireDocumentApproval: requireDocumentApproval,
		validator:               validate,
		logger:                  logger,
	}
}

// List returns enrollments matching the filter with pagination info.
func (s *EnrollmentService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	enrollments, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return enrollments, pagination, nil
}

// Get returns a single enrollment with student and course details.
func (s *EnrollmentService) Get(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	detail, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return detail, nil
}

// Create registers a student in a course. The enrollment starts PENDING. A
// student may hold at most one non-cancelled enrollment per course.
func (s *EnrollmentService) Create(ctx context.Context, req CreateEnrollmentRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid enrollment payload"), validationDetails(err)...)
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if _, err := s.courses.FindByID(ctx, req.CourseID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}

	exists, err := s.repo.ExistsNonCancelled(ctx, req.StudentID, req.CourseID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollments")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student already has an open enrollment in this course")
	}

	enrollment := &models.Enrollment{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    models.EnrollmentStatusPending,
		Semester:  req.Semester,
	}
	if err := s.repo.Create(ctx, enrollment); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}

	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.String("student_id", enrollment.StudentID),
		zap.String("course_id", enrollment.CourseID),
	)
	return enrollment, nil
}

// UpdateStatus applies a manual transition. Illegal moves fail with the
// current status named in the message, except activation with document
// vetting disabled, which is allowed from any state.
func (s *EnrollmentService) UpdateStatus(ctx context.Context, id, actorID string, req UpdateEnrollmentStatusRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid status payload"), validationDetails(err)...)
	}
	next, err := models.ParseEnrollmentStatus(req.Status)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	allowed := enrollment.Status.CanTransitionTo(next)
	if next == models.EnrollmentStatusActive && !s.requireDocumentApproval {
		// Without document vetting, activation is unconditional.
		allowed = true
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("cannot transition enrollment from %s to %s", enrollment.Status, next))
	}

	if next == models.EnrollmentStatusActive && enrollment.Status == models.EnrollmentStatusPending && s.requireDocumentApproval {
		approved, err := s.documents.AllMandatoryApproved(ctx, enrollment.StudentID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check document approvals")
		}
		if !approved {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				"activation requires every mandatory document to be approved")
		}
	}

	previous := enrollment.Status
	if err := s.repo.UpdateStatus(ctx, id, next); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment status")
	}
	enrollment.Status = next

	oldPayload, _ := json.Marshal(map[string]string{"status": string(previous)})
	newPayload, _ := json.Marshal(map[string]string{"status": string(next)})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     models.AuditActionStatusChange,
		Resource:   "enrollments",
		ResourceID: &id,
		OldValues:  oldPayload,
		NewValues:  newPayload,
	}); err != nil {
		s.logger.Warn("failed to record status change audit log", zap.Error(err))
	}

	s.logger.Info("enrollment status updated",
		zap.String("enrollment_id", id),
		zap.String("from", string(previous)),
		zap.String("to", string(next)),
	)
	return enrollment, nil
}

// Delete cancels an enrollment via soft delete. The row keeps its history
// and is excluded from default listings.
func (s *EnrollmentService) Delete(ctx context.Context, id string) error {
	enrollment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if !enrollment.Status.CanTransitionTo(models.EnrollmentStatusCancelled) {
		return appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("cannot cancel an enrollment that is %s", enrollment.Status))
	}

	if err := s.repo.SoftDelete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel enrollment")
	}
	s.logger.Info("enrollment cancelled", zap.String("enrollment_id", id))
	return nil
}

// OwnedByUser reports whether the enrollment belongs to the student linked
// to the given user account.
func (s *EnrollmentService) OwnedByUser(ctx context.Context, enrollmentID, userID string) (bool, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}
	enrollment, err := s.repo.FindByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	return enrollment.StudentID == student.ID, nil
}
