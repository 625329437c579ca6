package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/service"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
	"github.com/secretaria-online/secretaria-api/pkg/response"
)

// ReenrollmentHandler exposes the semester rollover endpoints.
type ReenrollmentHandler struct {
	service *service.ReenrollmentService
}

// NewReenrollmentHandler constructs ReenrollmentHandler.
func NewReenrollmentHandler(svc *service.ReenrollmentService) *ReenrollmentHandler {
	return &ReenrollmentHandler{service: svc}
}

// ProcessAll godoc
// @Summary Process global reenrollment
// @Description Move every active enrollment to pending, requiring the admin password
// @Tags Reenrollments
// @Accept json
// @Produce json
// @Param payload body service.ProcessAllRequest true "Rollover payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /reenrollments/process-all [post]
func (h *ReenrollmentHandler) ProcessAll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ProcessAllRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.service.ProcessAll(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ContractPreview godoc
// @Summary Preview the reenrollment contract
// @Description Render the active contract template for a pending enrollment
// @Tags Reenrollments
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reenrollments/contract-preview/{enrollmentId} [get]
func (h *ReenrollmentHandler) ContractPreview(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	preview, err := h.service.Preview(c.Request.Context(), claims.UserID, c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, preview, nil)
}

// Accept godoc
// @Summary Accept reenrollment
// @Description Accept the contract, reactivating the enrollment
// @Tags Reenrollments
// @Produce json
// @Param enrollmentId path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /reenrollments/accept/{enrollmentId} [post]
func (h *ReenrollmentHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contract, err := h.service.Accept(c.Request.Context(), claims.UserID, c.Param("enrollmentId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contract, nil)
}
