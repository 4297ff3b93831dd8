// Package service implements the pipeline engine: validated stage moves,
// first placements, cross-pipeline transfers, and the funnel event log.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"
)

// Service orchestrates funnel operations. Validation is delegated to the
// pure domain.Validate function; persistence to the repository, which
// commits the lead update and the audit append in one transaction.
type Service struct {
	repo    repository.Repository
	bus     events.Bus
	policy  domain.EngagementPolicy
	timeout time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// New creates a new funnel engine service.
func New(repo repository.Repository, bus events.Bus, cfg config.EngineConfig, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		bus:     bus,
		policy:  domain.EngagementPolicy{MinInteractions: cfg.GetMinEngagementInteractions()},
		timeout: cfg.GetMoveTimeout(),
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Move transitions a lead to another stage of its current pipeline.
// performedBy is nil for automated moves. The no-op case (target equals
// current stage) returns success-without-effect, not an error.
func (s *Service) Move(ctx context.Context, ownerID, leadID uuid.UUID, req transport.MoveLeadRequest, performedBy *uuid.UUID) (transport.MoveResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	if lead.StageID == nil {
		return transport.MoveResponse{}, apperr.Validation("lead has no placement yet, place it first")
	}

	source, err := s.repo.GetStage(ctx, ownerID, *lead.StageID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	target, err := s.repo.GetStage(ctx, ownerID, req.TargetStageID)
	if err != nil {
		return transport.MoveResponse{}, err
	}

	mc := domain.MoveContext{
		InteractionCount: lead.InteractionCount,
		HasNextAction:    lead.HasNextAction,
		ReasonText:       req.Reason,
	}

	verdict := domain.Validate(source.Ref(), target.Ref(), mc, s.policy)
	if !verdict.OK {
		if verdict.Code == domain.CodeNoOpMove {
			return transport.MoveResponse{
				Moved:     false,
				Lifecycle: string(lead.Lifecycle),
				Code:      string(verdict.Code),
				Reason:    verdict.Reason,
			}, nil
		}
		s.log.MoveRejected(leadID.String(), target.ID.String(), string(verdict.Code), verdict.Reason)
		return transport.MoveResponse{}, apperr.Validation(verdict.Reason).WithCode(string(verdict.Code))
	}

	now := s.now()
	lifecycle := domain.DeriveLifecycle(target.Kind)

	event, err := s.repo.ApplyMove(ctx, repository.MoveParams{
		LeadID:            leadID,
		OwnerID:           ownerID,
		ExpectedStageID:   *lead.StageID,
		ExpectedUpdatedAt: lead.UpdatedAt,
		TargetStageID:     target.ID,
		PipelineID:        target.PipelineID,
		Lifecycle:         lifecycle,
		EnteredAt:         now,
		PerformedBy:       performedBy,
		ReasonText:        optionalText(req.Reason),
	})
	if err != nil {
		return transport.MoveResponse{}, err
	}

	s.log.Info("lead moved",
		"leadId", leadID, "from", source.ID, "to", target.ID, "lifecycle", lifecycle)

	s.bus.Publish(ctx, events.LeadMoved{
		BaseEvent:   events.NewBaseEvent(),
		LeadID:      leadID,
		OwnerID:     ownerID,
		PipelineID:  target.PipelineID,
		FromStageID: source.ID,
		ToStageID:   target.ID,
		Lifecycle:   string(lifecycle),
		Reason:      strings.TrimSpace(req.Reason),
	})

	resp := toEventResponse(event)
	return transport.MoveResponse{Moved: true, Lifecycle: string(lifecycle), Event: &resp}, nil
}

// PlaceInitial performs a lead's first entry into any funnel. The second
// call for the same lead fails with AlreadyPlaced and writes nothing,
// which makes at-least-once trigger delivery safe.
func (s *Service) PlaceInitial(ctx context.Context, ownerID, leadID uuid.UUID, req transport.PlaceLeadRequest, performedBy *uuid.UUID) (transport.MoveResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	target, err := s.repo.GetStage(ctx, ownerID, req.StageID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	if target.PipelineID != req.PipelineID {
		return transport.MoveResponse{}, apperr.Validation("stage does not belong to the given pipeline")
	}

	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	if lead.StageID != nil {
		return transport.MoveResponse{}, apperr.Conflict("lead already has a stage placement").
			WithCode(string(domain.CodeAlreadyPlaced))
	}

	now := s.now()
	lifecycle := domain.DeriveLifecycle(target.Kind)

	event, err := s.repo.ApplyPlacement(ctx, repository.PlacementParams{
		LeadID:        leadID,
		OwnerID:       ownerID,
		TargetStageID: target.ID,
		PipelineID:    target.PipelineID,
		Lifecycle:     lifecycle,
		EnteredAt:     now,
		PerformedBy:   performedBy,
	})
	if err != nil {
		return transport.MoveResponse{}, err
	}

	s.log.Info("lead placed", "leadId", leadID, "pipelineId", target.PipelineID, "stageId", target.ID)

	s.bus.Publish(ctx, events.LeadPlaced{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     leadID,
		OwnerID:    ownerID,
		PipelineID: target.PipelineID,
		StageID:    target.ID,
		Automated:  performedBy == nil,
	})

	resp := toEventResponse(event)
	return transport.MoveResponse{Moved: true, Lifecycle: string(lifecycle), Event: &resp}, nil
}

// Transfer re-homes a placed lead into a stage of a different pipeline and
// re-initializes stage_entered_at. Terminal targets carry the same reason
// and engagement requirements as a move.
func (s *Service) Transfer(ctx context.Context, ownerID, leadID uuid.UUID, req transport.TransferLeadRequest, performedBy *uuid.UUID) (transport.MoveResponse, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	lead, err := s.repo.GetLead(ctx, ownerID, leadID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	if lead.StageID == nil || lead.PipelineID == nil {
		return transport.MoveResponse{}, apperr.Validation("lead has no placement yet, place it first")
	}

	target, err := s.repo.GetStage(ctx, ownerID, req.StageID)
	if err != nil {
		return transport.MoveResponse{}, err
	}
	if target.PipelineID != req.PipelineID {
		return transport.MoveResponse{}, apperr.Validation("stage does not belong to the given pipeline")
	}
	if target.PipelineID == *lead.PipelineID {
		return transport.MoveResponse{}, apperr.Validation("target pipeline equals the current one, use move instead")
	}

	if target.Kind.IsTerminal() {
		if strings.TrimSpace(req.Reason) == "" {
			return transport.MoveResponse{}, apperr.Validation("closing a lead requires a reason").
				WithCode(string(domain.CodeReasonRequired))
		}
		mc := domain.MoveContext{InteractionCount: lead.InteractionCount, HasNextAction: lead.HasNextAction}
		if !s.policy.Satisfied(mc) {
			return transport.MoveResponse{}, apperr.Validation("lead has no recorded interaction or scheduled next action").
				WithCode(string(domain.CodeInsufficientEngagement))
		}
	}

	now := s.now()
	lifecycle := domain.DeriveLifecycle(target.Kind)

	event, err := s.repo.ApplyMove(ctx, repository.MoveParams{
		LeadID:            leadID,
		OwnerID:           ownerID,
		ExpectedStageID:   *lead.StageID,
		ExpectedUpdatedAt: lead.UpdatedAt,
		TargetStageID:     target.ID,
		PipelineID:        target.PipelineID,
		Lifecycle:         lifecycle,
		EnteredAt:         now,
		PerformedBy:       performedBy,
		ReasonText:        optionalText(req.Reason),
	})
	if err != nil {
		return transport.MoveResponse{}, err
	}

	s.log.Info("lead transferred",
		"leadId", leadID, "fromPipeline", *lead.PipelineID, "toPipeline", target.PipelineID)

	s.bus.Publish(ctx, events.LeadTransferred{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OwnerID:        ownerID,
		FromPipelineID: *lead.PipelineID,
		ToPipelineID:   target.PipelineID,
		ToStageID:      target.ID,
	})

	resp := toEventResponse(event)
	return transport.MoveResponse{Moved: true, Lifecycle: string(lifecycle), Event: &resp}, nil
}

// ListEvents returns the funnel history for a lead or a pipeline.
func (s *Service) ListEvents(ctx context.Context, ownerID uuid.UUID, filter repository.EventFilter) (transport.FunnelEventListResponse, error) {
	if filter.LeadID == nil && filter.PipelineID == nil {
		return transport.FunnelEventListResponse{}, apperr.BadRequest("leadId or pipelineId is required")
	}

	items, err := s.repo.ListEvents(ctx, ownerID, filter)
	if err != nil {
		return transport.FunnelEventListResponse{}, err
	}

	responses := make([]transport.FunnelEventResponse, len(items))
	for i, ev := range items {
		responses[i] = toEventResponse(ev)
	}
	return transport.FunnelEventListResponse{Items: responses, Total: len(responses)}, nil
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func optionalText(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func toEventResponse(ev repository.FunnelEvent) transport.FunnelEventResponse {
	return transport.FunnelEventResponse{
		ID:          ev.ID,
		LeadID:      ev.LeadID,
		PipelineID:  ev.PipelineID,
		FromStageID: ev.FromStageID,
		ToStageID:   ev.ToStageID,
		PerformedBy: ev.PerformedBy,
		PerformedAt: ev.PerformedAt.Format(time.RFC3339),
		ReasonText:  ev.ReasonText,
	}
}
