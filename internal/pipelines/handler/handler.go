package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/pipelines/service"
	"funnel_backend/internal/pipelines/transport"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/validator"
)

// Handler handles HTTP requests for the pipeline registry.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest    = "invalid request"
	msgValidationFailed  = "validation failed"
	msgInvalidPipelineID = "invalid pipeline ID"
	msgInvalidStageID    = "invalid stage ID"
)

// New creates a new pipelines handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// ListPipelines returns every pipeline of the tenant with stages.
// GET /api/v1/pipelines
func (h *Handler) ListPipelines(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	ownerID, ok := httpkit.MustGetOwnerID(c, identity)
	if !ok {
		return
	}

	result, err := h.svc.ListPipelines(c.Request.Context(), ownerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// GetPipeline returns one pipeline with its ordered stages.
// GET /api/v1/pipelines/:id
func (h *Handler) GetPipeline(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
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

	result, err := h.svc.GetPipeline(c.Request.Context(), ownerID, pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// CreatePipeline creates an empty pipeline.
// POST /api/v1/pipelines
func (h *Handler) CreatePipeline(c *gin.Context) {
	var req transport.CreatePipelineRequest
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

	result, err := h.svc.CreatePipeline(c.Request.Context(), ownerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// UpdatePipeline applies a partial pipeline update.
// PATCH /api/v1/pipelines/:id
func (h *Handler) UpdatePipeline(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
		return
	}

	var req transport.UpdatePipelineRequest
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

	result, err := h.svc.UpdatePipeline(c.Request.Context(), ownerID, pipelineID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// DeletePipeline removes a pipeline and its stages.
// DELETE /api/v1/pipelines/:id
func (h *Handler) DeletePipeline(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
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

	if httpkit.HandleError(c, h.svc.DeletePipeline(c.Request.Context(), ownerID, pipelineID)) {
		return
	}
	httpkit.NoContent(c)
}

// ListStages returns a pipeline's stages ordered by position.
// GET /api/v1/pipelines/:id/stages
func (h *Handler) ListStages(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
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

	result, err := h.svc.ListStages(c.Request.Context(), ownerID, pipelineID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// AddStage appends a stage to the end of a pipeline.
// POST /api/v1/pipelines/:id/stages
func (h *Handler) AddStage(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
		return
	}

	var req transport.CreateStageRequest
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

	result, err := h.svc.AddStage(c.Request.Context(), ownerID, pipelineID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

// ReorderStages rewrites a pipeline's stage ordering.
// PUT /api/v1/pipelines/:id/stages/reorder
func (h *Handler) ReorderStages(c *gin.Context) {
	pipelineID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidPipelineID, nil)
		return
	}

	var req transport.ReorderStagesRequest
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

	result, err := h.svc.ReorderStages(c.Request.Context(), ownerID, pipelineID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// UpdateStage changes a stage's name, kind, or color.
// PATCH /api/v1/stages/:id
func (h *Handler) UpdateStage(c *gin.Context) {
	stageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
		return
	}

	var req transport.UpdateStageRequest
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

	result, err := h.svc.UpdateStage(c.Request.Context(), ownerID, stageID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// RemoveStage deletes an empty stage and compacts sibling positions.
// DELETE /api/v1/stages/:id
func (h *Handler) RemoveStage(c *gin.Context) {
	stageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidStageID, nil)
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

	if httpkit.HandleError(c, h.svc.RemoveStage(c.Request.Context(), ownerID, stageID)) {
		return
	}
	httpkit.NoContent(c)
}

// GetActivePipeline returns the caller's default board selection.
// GET /api/v1/me/active-pipeline
func (h *Handler) GetActivePipeline(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.GetActivePipeline(c.Request.Context(), identity.ActorID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

// SetActivePipeline records the caller's default board selection.
// PUT /api/v1/me/active-pipeline
func (h *Handler) SetActivePipeline(c *gin.Context) {
	var req transport.SetActivePipelineRequest
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

	if httpkit.HandleError(c, h.svc.SetActivePipeline(c.Request.Context(), ownerID, identity.ActorID(), req)) {
		return
	}
	httpkit.NoContent(c)
}
