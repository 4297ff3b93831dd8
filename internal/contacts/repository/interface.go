package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lead is a contact record. Placement fields (stage_id, lifecycle_status,
// stage_entered_at) are owned by the funnel engine and never written here.
type Lead struct {
	ID               uuid.UUID
	OwnerID          uuid.UUID
	Name             string
	Email            *string
	Phone            *string
	Attribution      map[string]string
	StageID          *uuid.UUID
	Lifecycle        string
	StageEnteredAt   *time.Time
	InteractionCount int
	HasNextAction    bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateLeadParams contains data for creating a lead.
type CreateLeadParams struct {
	OwnerID     uuid.UUID
	Name        string
	Email       *string
	Phone       *string
	Attribution map[string]string
}

// ListFilter narrows a lead listing. StageID selects one board column.
type ListFilter struct {
	StageID    *uuid.UUID
	PipelineID *uuid.UUID
	Lifecycle  *string
	Limit      int
}

// Repository is the persistence boundary for contact records.
type Repository interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	Get(ctx context.Context, ownerID, leadID uuid.UUID) (Lead, error)
	List(ctx context.Context, ownerID uuid.UUID, filter ListFilter) ([]Lead, error)
	// RecordInteraction increments the engagement counter and records
	// whether a follow-up is scheduled.
	RecordInteraction(ctx context.Context, ownerID, leadID uuid.UUID, hasNextAction bool) (Lead, error)
	// FindRecentDuplicate returns the most recent lead with the same
	// email or phone created after the cutoff, or nil.
	FindRecentDuplicate(ctx context.Context, ownerID uuid.UUID, email, phone *string, since time.Time) (*Lead, error)
}
