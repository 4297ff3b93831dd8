// Package service implements the contact record store. Placement fields
// are owned by the funnel engine; this service only manages identity and
// engagement data.
package service

import (
	"context"

	"github.com/google/uuid"

	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/transport"
	"funnel_backend/platform/logger"
)

// Service manages contact records.
type Service struct {
	repo repository.Repository
	log  *logger.Logger
}

// New creates a new contacts service.
func New(repo repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Create stores a new lead. It enters the funnel without a placement;
// PlaceInitial (manual or automated) assigns the first stage.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.Create(ctx, repository.CreateLeadParams{
		OwnerID:     ownerID,
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Attribution: req.Attribution,
	})
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.log.Info("lead created", "lead_id", lead.ID, "owner_id", ownerID)
	return toLeadResponse(lead), nil
}

// Get returns one lead.
func (s *Service) Get(ctx context.Context, ownerID, leadID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.Get(ctx, ownerID, leadID)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

// List returns leads filtered by stage, pipeline, or lifecycle. A stage
// filter yields one board column.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, filter repository.ListFilter) (transport.LeadListResponse, error) {
	leads, err := s.repo.List(ctx, ownerID, filter)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	out := make([]transport.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, toLeadResponse(l))
	}
	return transport.LeadListResponse{Leads: out}, nil
}

// RecordInteraction increments the engagement counter. The counter feeds
// the move validator's engagement rule.
func (s *Service) RecordInteraction(ctx context.Context, ownerID, leadID uuid.UUID, req transport.RecordInteractionRequest) (transport.LeadResponse, error) {
	lead, err := s.repo.RecordInteraction(ctx, ownerID, leadID, req.HasNextAction)
	if err != nil {
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

func toLeadResponse(l repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:               l.ID,
		Name:             l.Name,
		Email:            l.Email,
		Phone:            l.Phone,
		Attribution:      l.Attribution,
		StageID:          l.StageID,
		Lifecycle:        l.Lifecycle,
		StageEnteredAt:   l.StageEnteredAt,
		InteractionCount: l.InteractionCount,
		HasNextAction:    l.HasNextAction,
		CreatedAt:        l.CreatedAt,
		UpdatedAt:        l.UpdatedAt,
	}
}
