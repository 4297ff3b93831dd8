package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/automation/domain"
)

// StoredRule is a persisted automation rule with audit timestamps.
type StoredRule struct {
	domain.Rule
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpsertParams creates or replaces a rule.
type UpsertParams struct {
	ID          *uuid.UUID
	OwnerID     uuid.UUID
	TriggerType string
	PipelineID  uuid.UUID
	StageID     uuid.UUID
	IsActive    bool
}

// Repository is the persistence boundary for automation rules.
type Repository interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]StoredRule, error)
	ListActive(ctx context.Context, ownerID uuid.UUID) ([]domain.Rule, error)
	// Upsert inserts or updates a rule. The partial unique index on
	// (owner_id, trigger_type) WHERE is_active rejects a second active
	// rule for the same trigger type.
	Upsert(ctx context.Context, params UpsertParams) (StoredRule, error)
	SetActive(ctx context.Context, ownerID, ruleID uuid.UUID, active bool) (StoredRule, error)
	Delete(ctx context.Context, ownerID, ruleID uuid.UUID) error
}
