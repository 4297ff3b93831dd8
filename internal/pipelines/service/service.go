// Package service implements the pipeline registry: pipeline and stage
// CRUD, the ordered stage graph, and per-operator board preferences.
package service

import (
	"context"

	"github.com/google/uuid"

	"funnel_backend/internal/events"
	"funnel_backend/internal/pipelines/repository"
	"funnel_backend/internal/pipelines/transport"
	"funnel_backend/platform/apperr"
	"funnel_backend/platform/logger"
)

// Machine-readable refusal codes surfaced in error payloads.
const (
	CodeInvalidStageSet = "InvalidStageSet"
	CodeStageInUse      = "StageInUse"
)

// Service manages pipelines and their stage graphs.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new pipeline registry service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// ListPipelines returns every pipeline of the tenant, stages included, so
// a board UI can render in one round trip.
func (s *Service) ListPipelines(ctx context.Context, ownerID uuid.UUID) (transport.PipelineListResponse, error) {
	pipelines, err := s.repo.ListPipelines(ctx, ownerID)
	if err != nil {
		return transport.PipelineListResponse{}, err
	}

	out := make([]transport.PipelineResponse, 0, len(pipelines))
	for _, p := range pipelines {
		stages, err := s.repo.ListStages(ctx, ownerID, p.ID)
		if err != nil {
			return transport.PipelineListResponse{}, err
		}
		out = append(out, toPipelineResponse(p, stages))
	}
	return transport.PipelineListResponse{Pipelines: out}, nil
}

// GetPipeline returns one pipeline with its ordered stages.
func (s *Service) GetPipeline(ctx context.Context, ownerID, id uuid.UUID) (transport.PipelineResponse, error) {
	p, err := s.repo.GetPipeline(ctx, ownerID, id)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	stages, err := s.repo.ListStages(ctx, ownerID, p.ID)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	return toPipelineResponse(p, stages), nil
}

// CreatePipeline creates an empty pipeline.
func (s *Service) CreatePipeline(ctx context.Context, ownerID uuid.UUID, req transport.CreatePipelineRequest) (transport.PipelineResponse, error) {
	p, err := s.repo.CreatePipeline(ctx, repository.CreatePipelineParams{
		OwnerID:     ownerID,
		Name:        req.Name,
		Slug:        Slugify(req.Name),
		Description: req.Description,
	})
	if err != nil {
		return transport.PipelineResponse{}, err
	}

	s.log.Info("pipeline created", "pipeline_id", p.ID, "owner_id", ownerID)
	return toPipelineResponse(p, nil), nil
}

// UpdatePipeline applies a partial update. Renaming recomputes the slug.
func (s *Service) UpdatePipeline(ctx context.Context, ownerID, id uuid.UUID, req transport.UpdatePipelineRequest) (transport.PipelineResponse, error) {
	params := repository.UpdatePipelineParams{
		ID:          id,
		OwnerID:     ownerID,
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Name != nil {
		slug := Slugify(*req.Name)
		params.Slug = &slug
	}

	p, err := s.repo.UpdatePipeline(ctx, params)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	stages, err := s.repo.ListStages(ctx, ownerID, p.ID)
	if err != nil {
		return transport.PipelineResponse{}, err
	}
	return toPipelineResponse(p, stages), nil
}

// DeletePipeline removes a pipeline with its stages. Leads that were in
// the pipeline lose their placement; their audit trail survives with
// nulled stage references.
func (s *Service) DeletePipeline(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.DeletePipeline(ctx, ownerID, id); err != nil {
		return err
	}

	s.log.Info("pipeline deleted", "pipeline_id", id, "owner_id", ownerID)
	s.bus.Publish(ctx, events.PipelineDeleted{
		BaseEvent:  events.NewBaseEvent(),
		OwnerID:    ownerID,
		PipelineID: id,
	})
	return nil
}

// ListStages returns the pipeline's stages ordered by position.
func (s *Service) ListStages(ctx context.Context, ownerID, pipelineID uuid.UUID) (transport.StageListResponse, error) {
	if _, err := s.repo.GetPipeline(ctx, ownerID, pipelineID); err != nil {
		return transport.StageListResponse{}, err
	}
	stages, err := s.repo.ListStages(ctx, ownerID, pipelineID)
	if err != nil {
		return transport.StageListResponse{}, err
	}
	return transport.StageListResponse{Stages: toStageResponses(stages)}, nil
}

// AddStage appends a stage at the end of the pipeline. Position is
// assigned by the repository, atomically with concurrent appends.
func (s *Service) AddStage(ctx context.Context, ownerID, pipelineID uuid.UUID, req transport.CreateStageRequest) (transport.StageResponse, error) {
	st, err := s.repo.CreateStage(ctx, repository.CreateStageParams{
		PipelineID: pipelineID,
		OwnerID:    ownerID,
		Name:       req.Name,
		Slug:       Slugify(req.Name),
		Kind:       req.Kind,
		Color:      req.Color,
	})
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.publishGraphChange(ctx, ownerID, pipelineID, "added")
	return toStageResponse(st), nil
}

// UpdateStage changes a stage's name, kind, or color. Position is only
// ever changed through ReorderStages.
func (s *Service) UpdateStage(ctx context.Context, ownerID, stageID uuid.UUID, req transport.UpdateStageRequest) (transport.StageResponse, error) {
	params := repository.UpdateStageParams{
		ID:      stageID,
		OwnerID: ownerID,
		Name:    req.Name,
		Kind:    req.Kind,
		Color:   req.Color,
	}
	if req.Name != nil {
		slug := Slugify(*req.Name)
		params.Slug = &slug
	}

	st, err := s.repo.UpdateStage(ctx, params)
	if err != nil {
		return transport.StageResponse{}, err
	}

	s.publishGraphChange(ctx, ownerID, st.PipelineID, "updated")
	return toStageResponse(st), nil
}

// RemoveStage deletes a stage and compacts sibling positions. Deletion is
// refused while any lead still sits in the stage: operators move the
// leads out first, so no audit trail is ever orphaned by accident.
func (s *Service) RemoveStage(ctx context.Context, ownerID, stageID uuid.UUID) error {
	st, err := s.repo.GetStage(ctx, ownerID, stageID)
	if err != nil {
		return err
	}

	inUse, err := s.repo.StageHasLeads(ctx, ownerID, stageID)
	if err != nil {
		return err
	}
	if inUse {
		return apperr.Conflict("stage still has leads, move them out first").
			WithCode(CodeStageInUse)
	}

	if err := s.repo.DeleteStage(ctx, ownerID, stageID); err != nil {
		return err
	}

	s.publishGraphChange(ctx, ownerID, st.PipelineID, "removed")
	return nil
}

// ReorderStages rewrites the pipeline's stage ordering. The request must
// list exactly the current stage ids, each once; anything else is refused
// without touching the graph.
func (s *Service) ReorderStages(ctx context.Context, ownerID, pipelineID uuid.UUID, req transport.ReorderStagesRequest) (transport.StageListResponse, error) {
	if _, err := s.repo.GetPipeline(ctx, ownerID, pipelineID); err != nil {
		return transport.StageListResponse{}, err
	}
	current, err := s.repo.ListStages(ctx, ownerID, pipelineID)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	if err := checkStageSet(current, req.StageIDs); err != nil {
		return transport.StageListResponse{}, err
	}

	if err := s.repo.RenumberStages(ctx, ownerID, pipelineID, req.StageIDs); err != nil {
		return transport.StageListResponse{}, err
	}

	reordered, err := s.repo.ListStages(ctx, ownerID, pipelineID)
	if err != nil {
		return transport.StageListResponse{}, err
	}

	s.publishGraphChange(ctx, ownerID, pipelineID, "reordered")
	return transport.StageListResponse{Stages: toStageResponses(reordered)}, nil
}

// GetActivePipeline returns the caller's default board selection, or null
// if none was ever picked.
func (s *Service) GetActivePipeline(ctx context.Context, operatorID uuid.UUID) (transport.ActivePipelineResponse, error) {
	id, err := s.repo.GetActivePipeline(ctx, operatorID)
	if err != nil {
		return transport.ActivePipelineResponse{}, err
	}
	return transport.ActivePipelineResponse{PipelineID: id}, nil
}

// SetActivePipeline records the caller's default board selection. The
// choice is presentation state only: no engine operation consults it.
func (s *Service) SetActivePipeline(ctx context.Context, ownerID, operatorID uuid.UUID, req transport.SetActivePipelineRequest) error {
	if _, err := s.repo.GetPipeline(ctx, ownerID, req.PipelineID); err != nil {
		return err
	}
	return s.repo.SetActivePipeline(ctx, operatorID, req.PipelineID)
}

// checkStageSet verifies requested is an exact permutation of current.
func checkStageSet(current []repository.Stage, requested []uuid.UUID) error {
	if len(requested) != len(current) {
		return apperr.Validation("stage id list must cover every stage exactly once").
			WithCode(CodeInvalidStageSet)
	}

	known := make(map[uuid.UUID]bool, len(current))
	for _, st := range current {
		known[st.ID] = true
	}
	seen := make(map[uuid.UUID]bool, len(requested))
	for _, id := range requested {
		if !known[id] || seen[id] {
			return apperr.Validation("stage id list must cover every stage exactly once").
				WithCode(CodeInvalidStageSet)
		}
		seen[id] = true
	}
	return nil
}

func (s *Service) publishGraphChange(ctx context.Context, ownerID, pipelineID uuid.UUID, change string) {
	s.bus.Publish(ctx, events.StageGraphChanged{
		BaseEvent:  events.NewBaseEvent(),
		OwnerID:    ownerID,
		PipelineID: pipelineID,
		Change:     change,
	})
}

func toPipelineResponse(p repository.Pipeline, stages []repository.Stage) transport.PipelineResponse {
	return transport.PipelineResponse{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Description: p.Description,
		Stages:      toStageResponses(stages),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toStageResponses(stages []repository.Stage) []transport.StageResponse {
	if stages == nil {
		return nil
	}
	out := make([]transport.StageResponse, 0, len(stages))
	for _, st := range stages {
		out = append(out, toStageResponse(st))
	}
	return out
}

func toStageResponse(st repository.Stage) transport.StageResponse {
	return transport.StageResponse{
		ID:         st.ID,
		PipelineID: st.PipelineID,
		Name:       st.Name,
		Slug:       st.Slug,
		Kind:       st.Kind,
		Color:      st.Color,
		Position:   st.Position,
		CreatedAt:  st.CreatedAt,
		UpdatedAt:  st.UpdatedAt,
	}
}
