package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Pipeline is a named, ordered sequence of stages owned by one tenant.
type Pipeline struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        string
	Slug        string
	Description *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Stage is one step of a pipeline. Position values within a pipeline are
// always a contiguous zero-based sequence.
type Stage struct {
	ID         uuid.UUID
	PipelineID uuid.UUID
	Name       string
	Slug       string
	Kind       string
	Color      *string
	Position   int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreatePipelineParams contains data for creating a pipeline.
type CreatePipelineParams struct {
	OwnerID     uuid.UUID
	Name        string
	Slug        string
	Description *string
}

// UpdatePipelineParams contains partial data for updating a pipeline.
type UpdatePipelineParams struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Name        *string
	Slug        *string
	Description *string
}

// CreateStageParams contains data for appending a stage to a pipeline.
type CreateStageParams struct {
	PipelineID uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	Slug       string
	Kind       string
	Color      *string
}

// UpdateStageParams contains partial data for updating a stage.
type UpdateStageParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    *string
	Slug    *string
	Kind    *string
	Color   *string
}

// Repository is the persistence boundary for pipelines and stages.
type Repository interface {
	ListPipelines(ctx context.Context, ownerID uuid.UUID) ([]Pipeline, error)
	GetPipeline(ctx context.Context, ownerID, id uuid.UUID) (Pipeline, error)
	CreatePipeline(ctx context.Context, params CreatePipelineParams) (Pipeline, error)
	UpdatePipeline(ctx context.Context, params UpdatePipelineParams) (Pipeline, error)
	// DeletePipeline removes a pipeline and cascades its stages. Funnel
	// events survive with nulled stage references.
	DeletePipeline(ctx context.Context, ownerID, id uuid.UUID) error

	ListStages(ctx context.Context, ownerID, pipelineID uuid.UUID) ([]Stage, error)
	GetStage(ctx context.Context, ownerID, stageID uuid.UUID) (Stage, error)
	// CreateStage appends the stage at position = current stage count,
	// atomically with respect to concurrent appends.
	CreateStage(ctx context.Context, params CreateStageParams) (Stage, error)
	UpdateStage(ctx context.Context, params UpdateStageParams) (Stage, error)
	// DeleteStage removes a stage and renumbers the remaining siblings to
	// a contiguous zero-based sequence in the same transaction.
	DeleteStage(ctx context.Context, ownerID, stageID uuid.UUID) error
	// RenumberStages rewrites every sibling's position to its index in
	// orderedIDs in one transaction. The caller is responsible for
	// verifying orderedIDs is a permutation of the current stage set.
	RenumberStages(ctx context.Context, ownerID, pipelineID uuid.UUID, orderedIDs []uuid.UUID) error

	// StageHasLeads reports whether any lead currently references the stage.
	StageHasLeads(ctx context.Context, ownerID, stageID uuid.UUID) (bool, error)

	// GetActivePipeline and SetActivePipeline manage the per-operator
	// default-view selection. Presentation state only: no engine
	// operation consults it.
	GetActivePipeline(ctx context.Context, operatorID uuid.UUID) (*uuid.UUID, error)
	SetActivePipeline(ctx context.Context, operatorID, pipelineID uuid.UUID) error
}
