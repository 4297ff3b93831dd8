package transport

import (
	"time"

	"github.com/google/uuid"
)

// UpsertRuleRequest creates or replaces an automation rule. Omitting ID
// creates a new rule.
type UpsertRuleRequest struct {
	ID          *uuid.UUID `json:"id,omitempty"`
	TriggerType string     `json:"triggerType" validate:"required,oneof=new_contact new_contact_with_attribution"`
	PipelineID  uuid.UUID  `json:"pipelineId" validate:"required"`
	StageID     uuid.UUID  `json:"stageId" validate:"required"`
	IsActive    bool       `json:"isActive"`
}

// SetActiveRequest toggles a rule.
type SetActiveRequest struct {
	IsActive bool `json:"isActive"`
}

// RuleResponse is the API representation of an automation rule.
type RuleResponse struct {
	ID          uuid.UUID `json:"id"`
	TriggerType string    `json:"triggerType"`
	PipelineID  uuid.UUID `json:"pipelineId"`
	StageID     uuid.UUID `json:"stageId"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RuleListResponse wraps a rule collection.
type RuleListResponse struct {
	Rules []RuleResponse `json:"rules"`
}
