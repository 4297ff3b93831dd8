// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"funnel_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Funnel Domain Events
// =============================================================================

// LeadMoved is published after a lead successfully transitions between stages
// of the same pipeline. UI layers subscribe to refresh board columns.
type LeadMoved struct {
	BaseEvent
	LeadID      uuid.UUID `json:"leadId"`
	OwnerID     uuid.UUID `json:"ownerId"`
	PipelineID  uuid.UUID `json:"pipelineId"`
	FromStageID uuid.UUID `json:"fromStageId"`
	ToStageID   uuid.UUID `json:"toStageId"`
	Lifecycle   string    `json:"lifecycle"`
	Reason      string    `json:"reason,omitempty"`
}

func (e LeadMoved) EventName() string { return "funnel.lead.moved" }

// LeadPlaced is published after a lead's first entry into any funnel
// (from_stage is null in the audit record).
type LeadPlaced struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	OwnerID    uuid.UUID `json:"ownerId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	StageID    uuid.UUID `json:"stageId"`
	Automated  bool      `json:"automated"`
}

func (e LeadPlaced) EventName() string { return "funnel.lead.placed" }

// LeadTransferred is published when a lead is re-homed into a different
// pipeline. Distinct from LeadMoved: stage_entered_at is re-initialized.
type LeadTransferred struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OwnerID        uuid.UUID `json:"ownerId"`
	FromPipelineID uuid.UUID `json:"fromPipelineId"`
	ToPipelineID   uuid.UUID `json:"toPipelineId"`
	ToStageID      uuid.UUID `json:"toStageId"`
}

func (e LeadTransferred) EventName() string { return "funnel.lead.transferred" }

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// StageGraphChanged is published after any stage CRUD or reorder so
// connected boards re-render their columns.
type StageGraphChanged struct {
	BaseEvent
	OwnerID    uuid.UUID `json:"ownerId"`
	PipelineID uuid.UUID `json:"pipelineId"`
	Change     string    `json:"change"` // "added", "updated", "removed", "reordered"
}

func (e StageGraphChanged) EventName() string { return "pipelines.stages.changed" }

// PipelineDeleted is published when a pipeline is removed. Stages cascade;
// funnel events keep a nulled back-reference.
type PipelineDeleted struct {
	BaseEvent
	OwnerID    uuid.UUID `json:"ownerId"`
	PipelineID uuid.UUID `json:"pipelineId"`
}

func (e PipelineDeleted) EventName() string { return "pipelines.pipeline.deleted" }

// =============================================================================
// Contact Ingestion Events
// =============================================================================

// ContactIngested is published when a new contact arrives through the
// capture webhook. The automation matcher consumes the equivalent asynq
// task; this event only feeds in-process listeners such as SSE.
type ContactIngested struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OwnerID        uuid.UUID `json:"ownerId"`
	HasAttribution bool      `json:"hasAttribution"`
}

func (e ContactIngested) EventName() string { return "contacts.contact.ingested" }
