package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type contractRepository interface {
	Create(ctx context.Context, contract *models.Contract) error
	FindByID(ctx context.Context, id string) (*models.Contract, error)
	List(ctx context.Context, filter models.ContractFilter) ([]models.Contract, int, error)
}

type contractEnrollmentReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
}

type pdfRenderer interface {
	Render(contractHTML, title string) ([]byte, error)
}

type fileStore interface {
	Save(filename string, data []byte) (string, error)
}

// ContractService exposes contract listings and the admin-side PDF
// generation path. Reenrollment acceptance creates contracts without a
// file; this service can later materialise the PDF for them.
type ContractService struct {
	contracts   contractRepository
	enrollments contractEnrollmentReader
	templates   contractTemplateRenderer
	exporter    pdfRenderer
	store       fileStore
	audit       auditWriter
	institution string
	logger      *zap.Logger
}

// NewContractService constructs ContractService.
func NewContractService(
	contracts contractRepository,
	enrollments contractEnrollmentReader,
	templates contractTemplateRenderer,
	exporter pdfRenderer,
	store fileStore,
	audit auditWriter,
	institution string,
	logger *zap.Logger,
) *ContractService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContractService{
		contracts:   contracts,
		enrollments: enrollments,
		templates:   templates,
		exporter:    exporter,
		store:       store,
		audit:       audit,
		institution: institution,
		logger:      logger,
	}
}

// List returns contracts matching the filter.
func (s *ContractService) List(ctx context.Context, filter models.ContractFilter) ([]models.Contract, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	contracts, total, err := s.contracts.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contracts")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return contracts, pagination, nil
}

// Get returns a single contract.
func (s *ContractService) Get(ctx context.Context, id string) (*models.Contract, error) {
	contract, err := s.contracts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contract not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load contract")
	}
	return contract, nil
}

// Generate renders the active template against an enrollment, exports a
// PDF, stores it and records the contract. Used by administrators to issue
// a signed document outside the reenrollment flow.
func (s *ContractService) Generate(ctx context.Context, enrollmentID, adminID string, semester, year int) (*models.Contract, error) {
	if semester != 1 && semester != 2 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester must be 1 or 2")
	}
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}

	detail, err := s.enrollments.FindDetailByID(ctx, enrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	template, err := s.templates.ActiveTemplate(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
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

	pdf, err := s.exporter.Render(html, fmt.Sprintf("Contrato de Matricula %d/%d", semester, year))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render contract pdf")
	}

	fileName := fmt.Sprintf("contract_%s_%d_%d.pdf", detail.ID, year, semester)
	filePath, err := s.store.Save(fileName, pdf)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store contract pdf")
	}

	contract := &models.Contract{
		EnrollmentID: &detail.ID,
		StudentID:    detail.StudentID,
		Semester:     semester,
		Year:         year,
		FilePath:     &filePath,
		FileName:     &fileName,
	}
	if err := s.contracts.Create(ctx, contract); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contract")
	}

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &adminID,
		Action:     models.AuditActionContractGenerate,
		Resource:   "contracts",
		ResourceID: &contract.ID,
	}); err != nil {
		s.logger.Warn("failed to record contract audit log", zap.Error(err))
	}

	s.logger.Info("contract generated",
		zap.String("contract_id", contract.ID),
		zap.String("enrollment_id", detail.ID),
	)
	return contract, nil
}
