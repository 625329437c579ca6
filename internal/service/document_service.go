package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/secretaria-online/secretaria-api/internal/models"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
)

type documentRepository interface {
	Create(ctx context.Context, document *models.Document) error
	FindByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, int, error)
	Review(ctx context.Context, id string, status models.DocumentStatus, reviewerID string, note *string) error
}

type documentStore interface {
	SaveStream(filename string, r io.Reader) (string, error)
	Delete(filename string) error
}

// DocumentUpload carries an incoming file and its declared metadata.
type DocumentUpload struct {
	Type      string
	FileName  string
	MIMEType  string
	SizeBytes int64
	Content   io.Reader
}

// ReviewDocumentRequest is the payload for approving or rejecting a document.
type ReviewDocumentRequest struct {
	Status string  `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   *string `json:"note" validate:"omitempty,max=500"`
}

// DocumentService handles uploads and the review workflow. Files are
// limited in size and MIME type before anything is written to disk.
type DocumentService struct {
	repo     documentRepository
	students studentProfileReader
	store    documentStore
	audit    auditWriter

	maxSizeBytes int64
	allowedMIMEs map[string]bool

	logger *zap.Logger
}

// NewDocumentService constructs DocumentService.
func NewDocumentService(
	repo documentRepository,
	students studentProfileReader,
	store documentStore,
	audit auditWriter,
	maxSizeBytes int64,
	allowedMIMEs []string,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]bool, len(allowedMIMEs))
	for _, m := range allowedMIMEs {
		allowed[strings.ToLower(strings.TrimSpace(m))] = true
	}
	return &DocumentService{
		repo:         repo,
		students:     students,
		store:        store,
		audit:        audit,
		maxSizeBytes: maxSizeBytes,
		allowedMIMEs: allowed,
		logger:       logger,
	}
}

// List returns documents matching the filter.
func (s *DocumentService) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, *models.Pagination, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	documents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return documents, pagination, nil
}

// Get returns a single document.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return document, nil
}

// Upload stores a student's file and creates a PENDING document record. The
// acting user must have a linked student profile.
func (s *DocumentService) Upload(ctx context.Context, userID string, upload DocumentUpload) (*models.Document, error) {
	docType, err := parseDocumentType(upload.Type)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if upload.SizeBytes <= 0 || upload.SizeBytes > s.maxSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("file size must be between 1 and %d bytes", s.maxSizeBytes))
	}
	if !s.allowedMIMEs[strings.ToLower(upload.MIMEType)] {
		return nil, appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("mime type %s is not accepted", upload.MIMEType))
	}

	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no student profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student profile")
	}

	storedName := fmt.Sprintf("%s_%s%s", student.ID, uuid.NewString(), filepath.Ext(upload.FileName))
	path, err := s.store.SaveStream(storedName, io.LimitReader(upload.Content, s.maxSizeBytes))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store document file")
	}

	document := &models.Document{
		StudentID: student.ID,
		Type:      docType,
		FilePath:  path,
		FileName:  upload.FileName,
		MIMEType:  strings.ToLower(upload.MIMEType),
		SizeBytes: upload.SizeBytes,
		Status:    models.DocumentStatusPending,
	}
	if err := s.repo.Create(ctx, document); err != nil {
		if removeErr := s.store.Delete(storedName); removeErr != nil {
			s.logger.Warn("failed to remove orphan document file", zap.Error(removeErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document")
	}

	s.logger.Info("document uploaded",
		zap.String("document_id", document.ID),
		zap.String("student_id", student.ID),
		zap.String("type", string(docType)),
	)
	return document, nil
}

// Review approves or rejects a PENDING document. Decisions are final.
func (s *DocumentService) Review(ctx context.Context, id, reviewerID string, req ReviewDocumentRequest) (*models.Document, error) {
	status := models.DocumentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if status != models.DocumentStatusApproved && status != models.DocumentStatusRejected {
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be APPROVED or REJECTED")
	}
	if status == models.DocumentStatusRejected && (req.Note == nil || strings.TrimSpace(*req.Note) == "") {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a note is required when rejecting a document")
	}

	document, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "document not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	if document.Status != models.DocumentStatusPending {
		return nil, appErrors.Clone(appErrors.ErrStateConflict,
			fmt.Sprintf("document has already been reviewed as %s", document.Status))
	}

	if err := s.repo.Review(ctx, id, status, reviewerID, req.Note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to review document")
	}
	document.Status = status
	document.ReviewedBy = &reviewerID
	document.Note = req.Note

	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:     &reviewerID,
		Action:     models.AuditActionDocumentReview,
		Resource:   "documents",
		ResourceID: &id,
		NewValues:  []byte(fmt.Sprintf(`{"status":%q}`, status)),
	}); err != nil {
		s.logger.Warn("failed to record document review audit log", zap.Error(err))
	}
	return document, nil
}

func parseDocumentType(raw string) (models.DocumentType, error) {
	docType := models.DocumentType(strings.ToUpper(strings.TrimSpace(raw)))
	switch docType {
	case models.DocumentTypeIdentity, models.DocumentTypeCPF, models.DocumentTypeProofAddress,
		models.DocumentTypeSchoolRecord, models.DocumentTypePhoto:
		return docType, nil
	}
	return "", fmt.Errorf("unknown document type %q", raw)
}
