package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/funnel/domain"
	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/transport"
	"funnel_backend/platform/apperr"
	platformevents "funnel_backend/platform/events"
	"funnel_backend/platform/logger"
)

// fakeRepo is an in-memory Repository with the same CAS semantics as the
// SQL implementation: ApplyMove fails when the expectations no longer
// match, ApplyPlacement fails when the lead already has a stage.
type fakeRepo struct {
	leads  map[uuid.UUID]repository.Lead
	stages map[uuid.UUID]repository.Stage
	events []repository.FunnelEvent

	// afterGetLead runs after a GetLead call, letting tests interleave a
	// concurrent modification between the engine's read and its write.
	afterGetLead func()
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:  make(map[uuid.UUID]repository.Lead),
		stages: make(map[uuid.UUID]repository.Stage),
	}
}

func (f *fakeRepo) GetLead(_ context.Context, ownerID, leadID uuid.UUID) (repository.Lead, error) {
	lead, ok := f.leads[leadID]
	if !ok || lead.OwnerID != ownerID {
		return repository.Lead{}, apperr.NotFound("lead not found")
	}
	if f.afterGetLead != nil {
		defer f.afterGetLead()
	}
	return lead, nil
}

func (f *fakeRepo) GetStage(_ context.Context, ownerID, stageID uuid.UUID) (repository.Stage, error) {
	st, ok := f.stages[stageID]
	if !ok || st.OwnerID != ownerID {
		return repository.Stage{}, apperr.NotFound("stage not found")
	}
	return st, nil
}

func (f *fakeRepo) ApplyMove(_ context.Context, p repository.MoveParams) (repository.FunnelEvent, error) {
	lead := f.leads[p.LeadID]
	if lead.StageID == nil || *lead.StageID != p.ExpectedStageID || !lead.UpdatedAt.Equal(p.ExpectedUpdatedAt) {
		return repository.FunnelEvent{}, apperr.Conflict("stale").WithCode(string(domain.CodeStaleLeadState))
	}

	stageID := p.TargetStageID
	pipelineID := p.PipelineID
	entered := p.EnteredAt
	lead.StageID = &stageID
	lead.PipelineID = &pipelineID
	lead.Lifecycle = p.Lifecycle
	lead.StageEnteredAt = &entered
	lead.UpdatedAt = time.Now()
	f.leads[p.LeadID] = lead

	from := p.ExpectedStageID
	ev := repository.FunnelEvent{
		ID: uuid.New(), LeadID: p.LeadID, PipelineID: &pipelineID,
		FromStageID: &from, ToStageID: &stageID,
		PerformedBy: p.PerformedBy, PerformedAt: p.EnteredAt, ReasonText: p.ReasonText,
	}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeRepo) ApplyPlacement(_ context.Context, p repository.PlacementParams) (repository.FunnelEvent, error) {
	lead := f.leads[p.LeadID]
	if lead.StageID != nil {
		return repository.FunnelEvent{}, apperr.Conflict("placed").WithCode(string(domain.CodeAlreadyPlaced))
	}

	stageID := p.TargetStageID
	pipelineID := p.PipelineID
	entered := p.EnteredAt
	lead.StageID = &stageID
	lead.PipelineID = &pipelineID
	lead.Lifecycle = p.Lifecycle
	lead.StageEnteredAt = &entered
	lead.UpdatedAt = time.Now()
	f.leads[p.LeadID] = lead

	ev := repository.FunnelEvent{
		ID: uuid.New(), LeadID: p.LeadID, PipelineID: &pipelineID,
		ToStageID: &stageID, PerformedBy: p.PerformedBy, PerformedAt: p.EnteredAt,
	}
	f.events = append(f.events, ev)
	return ev, nil
}

func (f *fakeRepo) ListEvents(_ context.Context, _ uuid.UUID, filter repository.EventFilter) ([]repository.FunnelEvent, error) {
	var out []repository.FunnelEvent
	for _, ev := range f.events {
		if filter.LeadID != nil && ev.LeadID != *filter.LeadID {
			continue
		}
		if filter.PipelineID != nil && (ev.PipelineID == nil || *ev.PipelineID != *filter.PipelineID) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

var _ repository.Repository = (*fakeRepo)(nil)

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu        sync.Mutex
	published []platformevents.Event
}

func (b *recordingBus) Publish(_ context.Context, ev platformevents.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, ev)
}

func (b *recordingBus) PublishSync(ctx context.Context, ev platformevents.Event) error {
	b.Publish(ctx, ev)
	return nil
}

func (b *recordingBus) Subscribe(string, platformevents.Handler) {}

type engineCfg struct {
	minInteractions int
}

func (c engineCfg) GetMinEngagementInteractions() int { return c.minInteractions }
func (c engineCfg) GetMoveTimeout() time.Duration     { return time.Second }

type fixture struct {
	repo    *fakeRepo
	bus     *recordingBus
	svc     *Service
	ownerID uuid.UUID

	pipeline   uuid.UUID
	altPipe    uuid.UUID
	stageNew   repository.Stage
	stageQual  repository.Stage
	stageWon   repository.Stage
	stageLost  repository.Stage
	stageOther repository.Stage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:     newFakeRepo(),
		bus:      &recordingBus{},
		ownerID:  uuid.New(),
		pipeline: uuid.New(),
		altPipe:  uuid.New(),
	}

	addStage := func(pipelineID uuid.UUID, name string, kind domain.StageKind, pos int) repository.Stage {
		st := repository.Stage{
			ID: uuid.New(), OwnerID: f.ownerID, PipelineID: pipelineID,
			Name: name, Kind: kind, Position: pos,
		}
		f.repo.stages[st.ID] = st
		return st
	}

	f.stageNew = addStage(f.pipeline, "New", domain.StageKindIntermediate, 0)
	f.stageQual = addStage(f.pipeline, "Qualified", domain.StageKindIntermediate, 1)
	f.stageWon = addStage(f.pipeline, "Won", domain.StageKindWon, 2)
	f.stageLost = addStage(f.pipeline, "Lost", domain.StageKindLost, 3)
	f.stageOther = addStage(f.altPipe, "Intake", domain.StageKindIntermediate, 0)

	f.svc = New(f.repo, f.bus, engineCfg{minInteractions: 1}, logger.New("development"))
	return f
}

func (f *fixture) addLead(t *testing.T, stage *repository.Stage, interactions int) uuid.UUID {
	t.Helper()

	lead := repository.Lead{
		ID: uuid.New(), OwnerID: f.ownerID,
		Lifecycle:        domain.LifecycleActive,
		InteractionCount: interactions,
		UpdatedAt:        time.Now().Add(-time.Hour),
	}
	if stage != nil {
		stageID := stage.ID
		pipelineID := stage.PipelineID
		entered := time.Now().Add(-time.Hour)
		lead.StageID = &stageID
		lead.PipelineID = &pipelineID
		lead.StageEnteredAt = &entered
	}
	f.repo.leads[lead.ID] = lead
	return lead.ID
}

func TestMoveAppendsExactlyOneEvent(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 2)

	resp, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageWon.ID, Reason: "closed after demo"}, nil)
	if err != nil {
		t.Fatalf("Move: %v", err)
	}

	if !resp.Moved || resp.Lifecycle != string(domain.LifecycleWon) {
		t.Errorf("unexpected response: %+v", resp)
	}
	if len(f.repo.events) != 1 {
		t.Fatalf("events = %d, want 1", len(f.repo.events))
	}
	ev := f.repo.events[0]
	if ev.FromStageID == nil || *ev.FromStageID != f.stageNew.ID {
		t.Errorf("event from = %v, want %v", ev.FromStageID, f.stageNew.ID)
	}
	if ev.ReasonText == nil || *ev.ReasonText != "closed after demo" {
		t.Errorf("event reason = %v", ev.ReasonText)
	}
	lead := f.repo.leads[leadID]
	if lead.StageID == nil || *lead.StageID != f.stageWon.ID {
		t.Errorf("lead stage = %v, want %v", lead.StageID, f.stageWon.ID)
	}
	if len(f.bus.published) != 1 {
		t.Errorf("published events = %d, want 1", len(f.bus.published))
	}
}

func TestMoveToTerminalWithoutReasonHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 5)

	_, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageWon.ID, Reason: "   "}, nil)
	if apperr.GetCode(err) != string(domain.CodeReasonRequired) {
		t.Fatalf("error code = %q, want ReasonRequired (err %v)", apperr.GetCode(err), err)
	}

	if len(f.repo.events) != 0 {
		t.Errorf("refused move appended %d events", len(f.repo.events))
	}
	lead := f.repo.leads[leadID]
	if *lead.StageID != f.stageNew.ID {
		t.Errorf("lead moved despite refusal")
	}
	if len(f.bus.published) != 0 {
		t.Errorf("refused move published %d events", len(f.bus.published))
	}
}

func TestMoveWithoutEngagementRefused(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 0)

	_, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageLost.ID, Reason: "no budget"}, nil)
	if apperr.GetCode(err) != string(domain.CodeInsufficientEngagement) {
		t.Fatalf("error code = %q, want InsufficientEngagement", apperr.GetCode(err))
	}
}

func TestMoveNoOpIsSuccessWithoutEffect(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageQual, 0)

	resp, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageQual.ID}, nil)
	if err != nil {
		t.Fatalf("no-op move returned error: %v", err)
	}
	if resp.Moved {
		t.Error("no-op move reported Moved=true")
	}
	if resp.Code != string(domain.CodeNoOpMove) {
		t.Errorf("code = %q, want NoOpMove", resp.Code)
	}
	if len(f.repo.events) != 0 {
		t.Errorf("no-op move appended events")
	}
}

func TestMoveAcrossPipelinesRefused(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 3)

	_, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageOther.ID}, nil)
	if apperr.GetCode(err) != string(domain.CodeCrossPipelineMove) {
		t.Fatalf("error code = %q, want CrossPipelineMove", apperr.GetCode(err))
	}
}

func TestMoveStaleStateSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 2)

	// A concurrent operator commits between our read and our write.
	f.repo.afterGetLead = func() {
		f.repo.afterGetLead = nil
		lead := f.repo.leads[leadID]
		lead.UpdatedAt = time.Now()
		f.repo.leads[leadID] = lead
	}

	_, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageQual.ID}, nil)
	if apperr.GetCode(err) != string(domain.CodeStaleLeadState) {
		t.Fatalf("error code = %q, want StaleLeadState", apperr.GetCode(err))
	}
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("stale state should be a conflict, got kind %v", apperr.GetKind(err))
	}

	// A retry with fresh state succeeds.
	if _, err := f.svc.Move(context.Background(), f.ownerID, leadID,
		transport.MoveLeadRequest{TargetStageID: f.stageQual.ID}, nil); err != nil {
		t.Fatalf("retry after stale: %v", err)
	}
}

func TestPlaceInitialIsIdempotent(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, nil, 0)

	req := transport.PlaceLeadRequest{PipelineID: f.pipeline, StageID: f.stageNew.ID}

	if _, err := f.svc.PlaceInitial(context.Background(), f.ownerID, leadID, req, nil); err != nil {
		t.Fatalf("first placement: %v", err)
	}

	_, err := f.svc.PlaceInitial(context.Background(), f.ownerID, leadID, req, nil)
	if apperr.GetCode(err) != string(domain.CodeAlreadyPlaced) {
		t.Fatalf("second placement code = %q, want AlreadyPlaced", apperr.GetCode(err))
	}

	if len(f.repo.events) != 1 {
		t.Errorf("events = %d, want exactly 1", len(f.repo.events))
	}
	if ev := f.repo.events[0]; ev.FromStageID != nil {
		t.Errorf("initial placement has non-null from stage: %v", ev.FromStageID)
	}
}

func TestPlaceInitialRejectsForeignStage(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, nil, 0)

	_, err := f.svc.PlaceInitial(context.Background(), f.ownerID, leadID,
		transport.PlaceLeadRequest{PipelineID: f.pipeline, StageID: f.stageOther.ID}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransferResetsStageEnteredAt(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageQual, 1)
	before := *f.repo.leads[leadID].StageEnteredAt

	resp, err := f.svc.Transfer(context.Background(), f.ownerID, leadID,
		transport.TransferLeadRequest{PipelineID: f.altPipe, StageID: f.stageOther.ID}, nil)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if !resp.Moved {
		t.Error("transfer reported Moved=false")
	}

	lead := f.repo.leads[leadID]
	if lead.PipelineID == nil || *lead.PipelineID != f.altPipe {
		t.Errorf("lead pipeline = %v, want %v", lead.PipelineID, f.altPipe)
	}
	if !lead.StageEnteredAt.After(before) {
		t.Errorf("stage_entered_at was not re-initialized")
	}
}

func TestTransferWithinSamePipelineRefused(t *testing.T) {
	f := newFixture(t)
	leadID := f.addLead(t, &f.stageNew, 1)

	_, err := f.svc.Transfer(context.Background(), f.ownerID, leadID,
		transport.TransferLeadRequest{PipelineID: f.pipeline, StageID: f.stageQual.ID}, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListEventsRequiresScope(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ListEvents(context.Background(), f.ownerID, repository.EventFilter{})
	if !apperr.Is(err, apperr.KindBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
}
