package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/service"
	"funnel_backend/internal/contacts/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

// Handler handles HTTP requests for contact records.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead ID"
)

// New creates a new contacts handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Create stores a new lead without a stage placement.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// Get returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), ownerID, leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// List returns leads, optionally narrowed to a stage (one board column),
// a pipeline, or a lifecycle status.
// GET /api/v1/leads?stageId=&pipelineId=&lifecycle=
func (h *Handler) List(c *gin.Context) {
	var filter repository.ListFilter

	if raw := c.Query("stageId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid stageId", nil)
			return
		}
		filter.StageID = &id
	}
	if raw := c.Query("pipelineId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid pipelineId", nil)
			return
		}
		filter.PipelineID = &id
	}
	if raw := c.Query("lifecycle"); raw != "" {
		filter.Lifecycle = &raw
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), ownerID, filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RecordInteraction logs a touch with the lead and bumps the engagement
// counter consumed by move validation.
// POST /api/v1/leads/:id/interactions
func (h *Handler) RecordInteraction(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.RecordInteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.RecordInteraction(c.Request.Context(), ownerID, leadID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
