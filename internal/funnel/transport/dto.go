package transport

import "github.com/google/uuid"

// MoveLeadRequest asks the engine to move a lead to another stage of its
// current pipeline.
type MoveLeadRequest struct {
	TargetStageID uuid.UUID `json:"targetStageId" validate:"required"`
	Reason        string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// PlaceLeadRequest asks the engine to perform a lead's first placement.
type PlaceLeadRequest struct {
	PipelineID uuid.UUID `json:"pipelineId" validate:"required"`
	StageID    uuid.UUID `json:"stageId" validate:"required"`
}

// TransferLeadRequest re-homes a lead into a stage of a different pipeline.
type TransferLeadRequest struct {
	PipelineID uuid.UUID `json:"pipelineId" validate:"required"`
	StageID    uuid.UUID `json:"stageId" validate:"required"`
	Reason     string    `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// MoveResponse reports the outcome of a move, place, or transfer.
// A refused no-op move comes back with Moved=false and a code instead of
// an error: the caller should not render it as a failure.
type MoveResponse struct {
	Moved     bool                 `json:"moved"`
	Lifecycle string               `json:"lifecycle"`
	Code      string               `json:"code,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Event     *FunnelEventResponse `json:"event,omitempty"`
}

// FunnelEventResponse represents one audit record in API responses.
type FunnelEventResponse struct {
	ID          uuid.UUID  `json:"id"`
	LeadID      uuid.UUID  `json:"leadId"`
	PipelineID  *uuid.UUID `json:"pipelineId,omitempty"`
	FromStageID *uuid.UUID `json:"fromStageId,omitempty"`
	ToStageID   *uuid.UUID `json:"toStageId,omitempty"`
	PerformedBy *uuid.UUID `json:"performedBy,omitempty"`
	PerformedAt string     `json:"performedAt"`
	ReasonText  *string    `json:"reasonText,omitempty"`
}

// FunnelEventListResponse wraps a list of funnel events.
type FunnelEventListResponse struct {
	Items []FunnelEventResponse `json:"items"`
	Total int                   `json:"total"`
}
