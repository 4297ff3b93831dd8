// Package service implements the automation matcher: rule CRUD plus the
// trigger handler that turns inbound new-contact events into initial
// placements.
package service

import (
	"context"

	"github.com/google/uuid"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/automation/transport"
	funneldomain "funnel_backend/internal/funnel/domain"
	funneltransport "funnel_backend/internal/funnel/transport"
	pipelinerepo "funnel_backend/internal/pipelines/repository"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
)

// Placer performs guarded first placements. The funnel service satisfies
// it; placement stays idempotent there, not here.
type Placer interface {
	PlaceInitial(ctx context.Context, ownerID, leadID uuid.UUID, req funneltransport.PlaceLeadRequest, performedBy *uuid.UUID) (funneltransport.MoveResponse, error)
}

// StageDirectory resolves stages for rule validation. The pipelines
// repository satisfies it.
type StageDirectory interface {
	GetStage(ctx context.Context, ownerID, stageID uuid.UUID) (pipelinerepo.Stage, error)
}

// Service manages automation rules and handles trigger events.
type Service struct {
	repo   repository.Repository
	placer Placer
	stages StageDirectory
	log    *logger.Logger
}

// New creates a new automation service.
func New(repo repository.Repository, placer Placer, stages StageDirectory, log *logger.Logger) *Service {
	return &Service{repo: repo, placer: placer, stages: stages, log: log}
}

// List returns every rule of the tenant.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) (transport.RuleListResponse, error) {
	rules, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return transport.RuleListResponse{}, err
	}

	out := make([]transport.RuleResponse, 0, len(rules))
	for _, r := range rules {
		out = append(out, toRuleResponse(r))
	}
	return transport.RuleListResponse{Rules: out}, nil
}

// Upsert creates or replaces a rule. The target stage must belong to the
// target pipeline; at most one active rule may exist per trigger type.
func (s *Service) Upsert(ctx context.Context, ownerID uuid.UUID, req transport.UpsertRuleRequest) (transport.RuleResponse, error) {
	st, err := s.stages.GetStage(ctx, ownerID, req.StageID)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	if st.PipelineID != req.PipelineID {
		return transport.RuleResponse{}, apperr.Validation("stage does not belong to the target pipeline")
	}

	rule, err := s.repo.Upsert(ctx, repository.UpsertParams{
		ID:          req.ID,
		OwnerID:     ownerID,
		TriggerType: req.TriggerType,
		PipelineID:  req.PipelineID,
		StageID:     req.StageID,
		IsActive:    req.IsActive,
	})
	if err != nil {
		return transport.RuleResponse{}, err
	}

	s.log.Info("automation rule upserted",
		"rule_id", rule.ID, "owner_id", ownerID, "trigger_type", rule.TriggerType)
	return toRuleResponse(rule), nil
}

// SetActive toggles a rule. Enabling fails while another rule of the same
// trigger type is already active.
func (s *Service) SetActive(ctx context.Context, ownerID, ruleID uuid.UUID, req transport.SetActiveRequest) (transport.RuleResponse, error) {
	rule, err := s.repo.SetActive(ctx, ownerID, ruleID, req.IsActive)
	if err != nil {
		return transport.RuleResponse{}, err
	}
	return toRuleResponse(rule), nil
}

// Delete removes a rule.
func (s *Service) Delete(ctx context.Context, ownerID, ruleID uuid.UUID) error {
	return s.repo.Delete(ctx, ownerID, ruleID)
}

// HandleTrigger matches an inbound new-contact event against the
// tenant's active rules and performs the initial placement on a match.
// Safe under at-least-once delivery: a lead that already has a placement
// leaves the trigger a no-op, so redelivery never duplicates anything.
func (s *Service) HandleTrigger(ctx context.Context, ev domain.TriggerEvent) error {
	rules, err := s.repo.ListActive(ctx, ev.OwnerID)
	if err != nil {
		return err
	}

	rule := domain.Match(rules, ev)
	if rule == nil {
		s.log.Info("no automation rule for trigger",
			"lead_id", ev.LeadID, "trigger_class", domain.TriggerClass(ev))
		return nil
	}

	_, err = s.placer.PlaceInitial(ctx, ev.OwnerID, ev.LeadID, funneltransport.PlaceLeadRequest{
		PipelineID: rule.PipelineID,
		StageID:    rule.StageID,
	}, nil)
	if err != nil {
		if apperr.GetCode(err) == string(funneldomain.CodeAlreadyPlaced) {
			s.log.Info("lead already placed, trigger ignored",
				"lead_id", ev.LeadID, "rule_id", rule.ID)
			return nil
		}
		return err
	}

	s.log.Info("automated placement applied",
		"lead_id", ev.LeadID, "rule_id", rule.ID, "stage_id", rule.StageID)
	return nil
}

func toRuleResponse(r repository.StoredRule) transport.RuleResponse {
	return transport.RuleResponse{
		ID:          r.ID,
		TriggerType: r.TriggerType,
		PipelineID:  r.PipelineID,
		StageID:     r.StageID,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
