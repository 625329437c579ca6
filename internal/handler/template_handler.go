package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secretaria-online/secretaria-api/internal/models"
	"github.com/secretaria-online/secretaria-api/internal/service"
	appErrors "github.com/secretaria-online/secretaria-api/pkg/errors"
	"github.com/secretaria-online/secretaria-api/pkg/response"
)

// TemplateHandler exposes contract template management endpoints.
type TemplateHandler struct {
	templates *service.TemplateService
}

// NewTemplateHandler constructs TemplateHandler.
func NewTemplateHandler(templates *service.TemplateService) *TemplateHandler {
	return &TemplateHandler{templates: templates}
}

type templatePayload struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
	Active  bool   `json:"active"`
}

// List godoc
// @Summary List contract templates
// @Tags Templates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /templates [get]
func (h *TemplateHandler) List(c *gin.Context) {
	templates, err := h.templates.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Create godoc
// @Summary Create contract template
// @Tags Templates
// @Accept json
// @Produce json
// @Param payload body templatePayload true "Template payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /templates [post]
func (h *TemplateHandler) Create(c *gin.Context) {
	var payload templatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	template := &models.ContractTemplate{
		Name:    payload.Name,
		Content: payload.Content,
		Active:  payload.Active,
	}
	if err := h.templates.Create(c.Request.Context(), template); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// Update godoc
// @Summary Update contract template
// @Tags Templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body templatePayload true "Template payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /templates/{id} [put]
func (h *TemplateHandler) Update(c *gin.Context) {
	var payload templatePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	template := &models.ContractTemplate{
		ID:      c.Param("id"),
		Name:    payload.Name,
		Content: payload.Content,
		Active:  payload.Active,
	}
	if err := h.templates.Update(c.Request.Context(), template); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}
