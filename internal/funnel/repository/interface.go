package repository

import (
	"context"
	"time"

	"funnel_backend/internal/funnel/domain"

	"github.com/google/uuid"
)

// Lead is the engine's view of a lead record: placement fields plus the
// engagement facts the move validator consults. All other contact fields
// belong to the contacts module.
type Lead struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	StageID          *uuid.UUID
	PipelineID       *uuid.UUID // pipeline of the current stage, nil when unplaced
	Lifecycle        domain.Lifecycle
	StageEnteredAt   *time.Time
	InteractionCount int
	HasNextAction    bool
	UpdatedAt        time.Time
}

// Stage is the engine's view of a stage row.
type Stage struct {
	ID         uuid.UUID
	OwnerID    uuid.UUID
	PipelineID uuid.UUID
	Name       string
	Kind       domain.StageKind
	Position   int
}

// Ref converts a stage row to the validator's stage reference.
func (s Stage) Ref() domain.StageRef {
	return domain.StageRef{ID: s.ID, PipelineID: s.PipelineID, Kind: s.Kind}
}

// FunnelEvent is one immutable audit record of a placement or move.
// Stage and pipeline references are nullable: they are nulled when a
// stage or pipeline is deleted so history survives for reporting.
type FunnelEvent struct {
	ID          uuid.UUID
	LeadID      uuid.UUID
	PipelineID  *uuid.UUID
	FromStageID *uuid.UUID
	ToStageID   *uuid.UUID
	PerformedBy *uuid.UUID
	PerformedAt time.Time
	ReasonText  *string
}

// MoveParams describes the committed half of an approved move: the
// compare-and-swap expectations, the new lead state, and the audit record.
type MoveParams struct {
	LeadID  uuid.UUID
	OwnerID uuid.UUID

	// CAS expectations read before validation. A concurrent move changes
	// stage_id or updated_at, which makes the conditional update match
	// zero rows.
	ExpectedStageID   uuid.UUID
	ExpectedUpdatedAt time.Time

	TargetStageID uuid.UUID
	PipelineID    uuid.UUID
	Lifecycle     domain.Lifecycle
	EnteredAt     time.Time

	PerformedBy *uuid.UUID
	ReasonText  *string
}

// PlacementParams describes a first placement (from stage is null).
type PlacementParams struct {
	LeadID        uuid.UUID
	OwnerID       uuid.UUID
	TargetStageID uuid.UUID
	PipelineID    uuid.UUID
	Lifecycle     domain.Lifecycle
	EnteredAt     time.Time
	PerformedBy   *uuid.UUID
}

// EventFilter narrows funnel-event listings for reporting.
type EventFilter struct {
	LeadID     *uuid.UUID
	PipelineID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
}

// Repository is the persistence boundary of the funnel engine.
type Repository interface {
	// GetLead loads the engine's slice of a lead, scoped to its owner.
	GetLead(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error)
	// GetStage loads a stage scoped to its owner.
	GetStage(ctx context.Context, ownerID, stageID uuid.UUID) (Stage, error)
	// ApplyMove atomically updates the lead's placement fields and appends
	// one funnel event in a single transaction. Returns a StaleLeadState
	// conflict when the CAS expectations no longer hold.
	ApplyMove(ctx context.Context, p MoveParams) (FunnelEvent, error)
	// ApplyPlacement atomically sets the first placement of an unplaced
	// lead and appends one funnel event with a null from stage. Returns an
	// AlreadyPlaced conflict when the lead has a stage already.
	ApplyPlacement(ctx context.Context, p PlacementParams) (FunnelEvent, error)
	// ListEvents returns funnel events for a lead or a pipeline, newest
	// first, bounded by the filter's date range.
	ListEvents(ctx context.Context, ownerID uuid.UUID, f EventFilter) ([]FunnelEvent, error)
}
