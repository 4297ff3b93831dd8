package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest is the payload for manually creating a lead.
type CreateLeadRequest struct {
	Name        string            `json:"name" validate:"required,min=1,max=200"`
	Email       *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string           `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Attribution map[string]string `json:"attribution,omitempty"`
}

// RecordInteractionRequest logs a touch with the lead.
type RecordInteractionRequest struct {
	HasNextAction bool `json:"hasNextAction"`
}

// LeadResponse is the API representation of a lead.
type LeadResponse struct {
	ID               uuid.UUID         `json:"id"`
	Name             string            `json:"name"`
	Email            *string           `json:"email,omitempty"`
	Phone            *string           `json:"phone,omitempty"`
	Attribution      map[string]string `json:"attribution,omitempty"`
	StageID          *uuid.UUID        `json:"stageId"`
	Lifecycle        string            `json:"lifecycle"`
	StageEnteredAt   *time.Time        `json:"stageEnteredAt,omitempty"`
	InteractionCount int               `json:"interactionCount"`
	HasNextAction    bool              `json:"hasNextAction"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

// LeadListResponse wraps a lead collection.
type LeadListResponse struct {
	Leads []LeadResponse `json:"leads"`
}
