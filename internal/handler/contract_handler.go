package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/models"
	"github.com/secretaria-online/secretaria-api/internal/service"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
	"github.com/secretaria-online/secretaria-api/pkg/response"
)

// ContractHandler exposes contract endpoints.
type ContractHandler struct {
	contracts *service.ContractService
	students  *service.StudentService
}

// NewContractHandler constructs ContractHandler.
func NewContractHandler(contracts *service.ContractService, students *service.StudentService) *ContractHandler {
	return &ContractHandler{contracts: contracts, students: students}
}

// GenerateContractRequest is the admin payload for issuing a contract PDF.
type GenerateContractRequest struct {
	EnrollmentID string `json:"enrollment_id" binding:"required"`
	Semester     int    `json:"semester" binding:"required"`
	Year         int    `json:"year" binding:"required"`
}

// List godoc
// @Summary List contracts
// @Description Students see their own contracts, admins may filter freely
// @Tags Contracts
// @Produce json
// @Param studentId query string false "Filter by student (admin only)"
// @Param enrollmentId query string false "Filter by enrollment"
// @Param year query int false "Filter by year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contracts [get]
func (h *ContractHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var filter models.ContractFilter
	filter.StudentID = c.Query("studentId")
	filter.EnrollmentID = c.Query("enrollmentId")
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.Year = year
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		filter.StudentID = student.ID
	}

	contracts, pagination, err := h.contracts.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contracts, pagination)
}

// Get godoc
// @Summary Get contract
// @Tags Contracts
// @Produce json
// @Param id path string true "Contract ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contracts/{id} [get]
func (h *ContractHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contract, err := h.contracts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	if claims.Role == models.RoleStudent {
		student, err := h.students.GetByUserID(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			return
		}
		if contract.StudentID != student.ID {
			response.Error(c, appErrors.ErrForbidden)
			return
		}
	}
	response.JSON(c, http.StatusOK, contract, nil)
}

// Generate godoc
// @Summary Generate contract PDF
// @Description Render the active template for an enrollment and store a PDF
// @Tags Contracts
// @Accept json
// @Produce json
// @Param payload body GenerateContractRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contracts/generate [post]
func (h *ContractHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req GenerateContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	contract, err := h.contracts.Generate(c.Request.Context(), req.EnrollmentID, claims.UserID, req.Semester, req.Year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contract)
}
