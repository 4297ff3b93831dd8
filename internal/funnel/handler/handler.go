package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/service"
	"funnel_backend/internal/funnel/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

// Handler handles HTTP requests for the funnel engine.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidLeadID    = "invalid lead ID"
)

// New creates a new funnel handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// Move transitions a lead to another stage of its current pipeline.
// POST /api/v1/leads/:id/move
func (h *Handler) Move(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.MoveLeadRequest
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

	actorID := identity.ActorID()
	result, err := h.svc.Move(c.Request.Context(), ownerID, leadID, req, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Place performs the first placement of a lead into a funnel.
// POST /api/v1/leads/:id/place
func (h *Handler) Place(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.PlaceLeadRequest
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

	actorID := identity.ActorID()
	result, err := h.svc.PlaceInitial(c.Request.Context(), ownerID, leadID, req, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Transfer re-homes a lead into a different pipeline.
// POST /api/v1/leads/:id/transfer
func (h *Handler) Transfer(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidLeadID, nil)
		return
	}

	var req transport.TransferLeadRequest
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

	actorID := identity.ActorID()
	result, err := h.svc.Transfer(c.Request.Context(), ownerID, leadID, req, &actorID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// ListEvents returns funnel history for a lead or pipeline.
// GET /api/v1/funnel-events?leadId=&pipelineId=&from=&to=
func (h *Handler) ListEvents(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	var filter repository.EventFilter
	if raw := c.Query("leadId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid leadId", nil)
			return
		}
		filter.LeadID = &id
	}
	if raw := c.Query("pipelineId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid pipelineId", nil)
			return
		}
		filter.PipelineID = &id
	}
	if raw := c.Query("from"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid from timestamp", nil)
			return
		}
		filter.From = &ts
	}
	if raw := c.Query("to"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid to timestamp", nil)
			return
		}
		filter.To = &ts
	}

	result, err := h.svc.ListEvents(c.Request.Context(), ownerID, filter)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
