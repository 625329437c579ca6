package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/models"
	"github.com/secretaria-online/secretaria-api/internal/service"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
	"github.com/secretaria-online/secretaria-api/pkg/response"
)

// DocumentHandler exposes document upload and review endpoints.
type DocumentHandler struct {
	documents *service.DocumentService
	students  *service.StudentService
}

// NewDocumentHandler constructs DocumentHandler.
func NewDocumentHandler(documents *service.DocumentService, students *service.StudentService) *DocumentHandler {
	return &DocumentHandler{documents: documents, students: students}
}

// List godoc
// @Summary List documents
// @Description Students see their own documents, admins may filter freely
// @Tags Documents
// @Produce json
// @Param studentId query string false "Filter by student (admin only)"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by type"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.DocumentFilter
	filter.StudentID = c.Query("studentId")
	filter.Status = models.DocumentStatus(strings.ToUpper(c.Query("status")))
	filter.Type = models.DocumentType(strings.ToUpper(c.Query("type")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	// Students are always scoped to their own documents.
	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.StudentID = student.ID
	}

	documents, pagination, err := h.documents.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, documents, pagination)
}

// Upload godoc
// @Summary Upload document
// @Description Upload a file as the authenticated student
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param type formData string true "Document type"
// @Param file formData file true "File"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /documents [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "a file is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read uploaded file"))
		return
	}
	defer file.Close()

	document, err := h.documents.Upload(c.Request.Context(), claims.UserID, service.DocumentUpload{
		Type:      c.PostForm("type"),
		FileName:  fileHeader.Filename,
		MIMEType:  fileHeader.Header.Get("Content-Type"),
		SizeBytes: fileHeader.Size,
		Content:   file,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, document)
}

// Review godoc
// @Summary Review document
// @Description Approve or reject a pending document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body service.ReviewDocumentRequest true "Review payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /documents/{id}/review [put]
func (h *DocumentHandler) Review(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ReviewDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	document, err := h.documents.Review(c.Request.Context(), c.Param("id"), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, document, nil)
}
