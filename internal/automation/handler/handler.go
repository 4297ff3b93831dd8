package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/automation/service"
	"funnel_backend/internal/automation/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

// Handler handles HTTP requests for automation rules.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidRuleID    = "invalid rule ID"
)

// New creates a new automation handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// List returns every automation rule of the tenant.
// GET /api/v1/automation/rules
func (h *Handler) List(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.List(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Upsert creates or replaces an automation rule.
// PUT /api/v1/automation/rules
func (h *Handler) Upsert(c *gin.Context) {
	var req transport.UpsertRuleRequest
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

	result, err := h.svc.Upsert(c.Request.Context(), ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetActive toggles an automation rule.
// PATCH /api/v1/automation/rules/:id/active
func (h *Handler) SetActive(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRuleID, nil)
		return
	}

	var req transport.SetActiveRequest
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

	result, err := h.svc.SetActive(c.Request.Context(), ownerID, ruleID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// Delete removes an automation rule.
// DELETE /api/v1/automation/rules/:id
func (h *Handler) Delete(c *gin.Context) {
	ruleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRuleID, nil)
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

	if httpkit.HandleError(c, h.svc.Delete(c.Request.Context(), ownerID, ruleID)) {
		return
	}
	httpkit.NoContent(c)
}
