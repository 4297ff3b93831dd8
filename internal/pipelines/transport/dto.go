package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreatePipelineRequest is the payload for creating a pipeline.
type CreatePipelineRequest struct {
	Name        string  `json:"name" validate:"required,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// UpdatePipelineRequest is the payload for a partial pipeline update.
type UpdatePipelineRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

// CreateStageRequest appends a stage to the end of a pipeline.
type CreateStageRequest struct {
	Name  string  `json:"name" validate:"required,min=1,max=120"`
	Kind  string  `json:"kind" validate:"required,oneof=intermediate won lost"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateStageRequest is the payload for a partial stage update.
type UpdateStageRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Kind  *string `json:"kind,omitempty" validate:"omitempty,oneof=intermediate won lost"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// ReorderStagesRequest carries the full new ordering for a pipeline's
// stages. The id list must be a permutation of the current stage set.
type ReorderStagesRequest struct {
	StageIDs []uuid.UUID `json:"stageIds" validate:"required,min=1,dive,required"`
}

// SetActivePipelineRequest selects the caller's default board view.
type SetActivePipelineRequest struct {
	PipelineID uuid.UUID `json:"pipelineId" validate:"required"`
}

// PipelineResponse is the API representation of a pipeline.
type PipelineResponse struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Slug        string          `json:"slug"`
	Description *string         `json:"description,omitempty"`
	Stages      []StageResponse `json:"stages,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// StageResponse is the API representation of a stage.
type StageResponse struct {
	ID         uuid.UUID `json:"id"`
	PipelineID uuid.UUID `json:"pipelineId"`
	Name       string    `json:"name"`
	Slug       string    `json:"slug"`
	Kind       string    `json:"kind"`
	Color      *string   `json:"color,omitempty"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PipelineListResponse wraps a pipeline collection.
type PipelineListResponse struct {
	Pipelines []PipelineResponse `json:"pipelines"`
}

// StageListResponse wraps an ordered stage collection.
type StageListResponse struct {
	Stages []StageResponse `json:"stages"`
}

// ActivePipelineResponse reports the caller's current default view.
// PipelineID is null when the operator never picked one.
type ActivePipelineResponse struct {
	PipelineID *uuid.UUID `json:"pipelineId"`
}
