package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type reenrollmentEnrollmentRepository interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	MarkActiveAsPending(ctx context.Context) ([]string, error)
	AcceptReenrollment(ctx context.Context, enrollmentID string, contract *models.Contract) error
}

type studentProfileReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.Student, error)
}

type adminPasswordGate interface {
	VerifyAdminPassword(ctx context.Context, userID, password string) (bool, error)
}

type contractTemplateRenderer interface {
	ActiveTemplate(ctx context.Context) (*models.ContractTemplate, error)
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// ProcessAllRequest is the payload for the global reenrollment batch.
type ProcessAllRequest struct {
	Semester      int    `json:"semester" validate:"required,oneof=1 2"`
	Year          int    `json:"year" validate:"required,gte=2000,lte=2100"`
	AdminPassword string `json:"adminPassword" validate:"required"`
}

// ProcessAllResult reports the outcome of the batch transition.
type ProcessAllResult struct {
	TotalStudents         int      `json:"totalStudents"`
	AffectedEnrollmentIDs []string `json:"affectedEnrollmentIds"`
}

// ContractPreview carries the rendered contract shown to a student.
type ContractPreview struct {
	ContractHTML string `json:"contractHTML"`
	EnrollmentID string `json:"enrollmentId"`
	Semester     int    `json:"semester"`
	Year         int    `json:"year"`
}

// ReenrollmentService orchestrates the two-phase semester rollover: the
// admin-triggered batch flips every ACTIVE enrollment to PENDING; each
// student later accepts individually, reverting their enrollment to ACTIVE
// and creating a no-PDF contract record. Contracts exist only once a
// student has agreed, never merely because the rollover was initiated.
type ReenrollmentService struct {
	enrollments reenrollmentEnrollmentRepository
	students    studentProfileReader
	gate        adminPasswordGate
	templates   contractTemplateRenderer
	audit       auditWriter
	institution string
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewReenrollmentService constructs ReenrollmentService.
func NewReenrollmentService(
	enrollments reenrollmentEnrollmentRepository,
	students studentProfileReader,
	gate adminPasswordGate,
	templates contractTemplateRenderer,
	audit auditWriter,
	institution string,
	validate *validator.Validate,
	logger *zap.Logger,
) *ReenrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReenrollmentService{
		enrollments: enrollments,
		students:    students,
		gate:        gate,
		templates:   templates,
		audit:       audit,
		institution: institution,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// ProcessAll transitions every ACTIVE enrollment to PENDING system-wide in
// one transaction, after the acting admin re-proves their credential. No
// contract is created here.
func (s *ReenrollmentService) ProcessAll(ctx context.Context, adminID string, req ProcessAllRequest) (*ProcessAllResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.WithDetails(appErrors.Clone(appErrors.ErrValidation, "invalid reenrollment payload"), validationDetails(err)...)
	}

	ok, err := s.gate.VerifyAdminPassword(ctx, adminID, req.AdminPassword)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "admin password verification failed")
	}

	ids, err := s.enrollments.MarkActiveAsPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to process reenrollment batch")
	}
	if ids == nil {
		ids = []string{}
	}

	s.logger.Info("global reenrollment processed",
		zap.String("admin_id", adminID),
		zap.Int("affected", len(ids)),
		zap.Int("semester", req.Semester),
		zap.Int("year", req.Year),
	)

	payload, _ := json.Marshal(map[string]interface{}{
		"affected": len(ids),
		"semester": req.Semester,
		"year":     req.Year,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &adminID,
		Action:    models.AuditActionReenrollAll,
		Resource:  "reenrollments",
		NewValues: payload,
	}); err != nil {
		s.logger.Warn("failed to record reenrollment audit log", zap.Error(err))
	}

	return &ProcessAllResult{TotalStudents: len(ids), AffectedEnrollmentIDs: ids}, nil
}

// Preview renders the contract a student is asked to accept. The enrollment
// must belong to the requesting student and be PENDING; nothing is written
// to storage.
func (s *ReenrollmentService) Preview(ctx context.Context, userID, enrollmentID string) (*ContractPreview, error) {
	detail, err := s.authorizeStudent(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	if detail.Status != models.EnrollmentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("enrollment is %s, contract preview requires PENDING", detail.Status))
	}

	template, err := s.templates.ActiveTemplate(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	semester, year := currentPeriod(now)
	html := Render(template.Content, ContractData{
		StudentName:     detail.StudentName,
		StudentRegistry: detail.StudentRegistry,
		StudentCPF:      detail.StudentCPF,
		CourseName:      detail.CourseName,
		Semester:        semester,
		Year:            year,
		CurrentDate:     now,
		InstitutionName: s.institution,
	})

	return &ContractPreview{
		ContractHTML: html,
		EnrollmentID: detail.ID,
		Semester:     semester,
		Year:         year,
	}, nil
}

// Accept records the student's agreement: in one transaction the enrollment
// reverts from PENDING to ACTIVE and a contract row with null file fields is
// created. A non-PENDING enrollment fails without mutating anything.
func (s *ReenrollmentService) Accept(ctx context.Context, userID, enrollmentID string) (*models.Contract, error) {
	detail, err := s.authorizeStudent(ctx, userID, enrollmentID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	semester, year := currentPeriod(now)
	contract := &models.Contract{
		EnrollmentID: &detail.ID,
		StudentID:    detail.StudentID,
		Semester:     semester,
		Year:         year,
		AcceptedAt:   &now,
	}

	if err := s.enrollments.AcceptReenrollment(ctx, detail.ID, contract); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrStateConflict,
				fmt.Sprintf("enrollment is %s, acceptance requires PENDING", detail.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to accept reenrollment")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &userID,
		Action:     models.AuditActionReenrollAccept,
		Resource:   "reenrollments",
		ResourceID: &detail.ID,
		NewValues:  []byte(`{"status":"accepted"}`),
	}); err != nil {
		s.logger.Warn("failed to record acceptance audit log", zap.Error(err))
	}

	return contract, nil
}

// authorizeStudent resolves the acting student's profile and checks that the
// enrollment belongs to them. Ownership failures always surface as a
// permission error regardless of the enrollment's status.
func (s *ReenrollmentService) authorizeStudent(ctx context.Context, userID, enrollmentID string) (*models.EnrollmentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if detail.StudentID != student.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "enrollment does not belong to this student")
	}
	return detail, nil
}

// currentPeriod derives the academic period from the calendar date:
// January through June is semester 1, July through December semester 2.
func currentPeriod(now time.Time) (semester, year int) {
	if now.Month() <= time.June {
		return 1, now.Year()
	}
	return 2, now.Year()
}
