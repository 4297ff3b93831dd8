package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"funnel_backend/internal/pipelines/repository"
	"funnel_backend/internal/pipelines/transport"
	"funnel_backend/platform/apperr"
	platformevents "funnel_backend/platform/events"
	"funnel_backend/platform/logger"
)

// fakeRepo is an in-memory Repository. Stage positions behave like the
// SQL implementation: appends take position = count, deletes compact,
// RenumberStages rewrites positions to the index in the given ordering.
type fakeRepo struct {
	pipelines   map[uuid.UUID]repository.Pipeline
	stages      map[uuid.UUID]repository.Stage
	stagedLeads map[uuid.UUID]int // stage id -> lead count
	activePrefs map[uuid.UUID]uuid.UUID
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		pipelines:   make(map[uuid.UUID]repository.Pipeline),
		stages:      make(map[uuid.UUID]repository.Stage),
		stagedLeads: make(map[uuid.UUID]int),
		activePrefs: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *fakeRepo) ListPipelines(_ context.Context, ownerID uuid.UUID) ([]repository.Pipeline, error) {
	var out []repository.Pipeline
	for _, p := range f.pipelines {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeRepo) GetPipeline(_ context.Context, ownerID, id uuid.UUID) (repository.Pipeline, error) {
	p, ok := f.pipelines[id]
	if !ok || p.OwnerID != ownerID {
		return repository.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	return p, nil
}

func (f *fakeRepo) CreatePipeline(_ context.Context, params repository.CreatePipelineParams) (repository.Pipeline, error) {
	p := repository.Pipeline{
		ID: uuid.New(), OwnerID: params.OwnerID,
		Name: params.Name, Slug: params.Slug, Description: params.Description,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.pipelines[p.ID] = p
	return p, nil
}

func (f *fakeRepo) UpdatePipeline(_ context.Context, params repository.UpdatePipelineParams) (repository.Pipeline, error) {
	p, ok := f.pipelines[params.ID]
	if !ok || p.OwnerID != params.OwnerID {
		return repository.Pipeline{}, apperr.NotFound("pipeline not found")
	}
	if params.Name != nil {
		p.Name = *params.Name
	}
	if params.Slug != nil {
		p.Slug = *params.Slug
	}
	if params.Description != nil {
		p.Description = params.Description
	}
	p.UpdatedAt = time.Now()
	f.pipelines[params.ID] = p
	return p, nil
}

func (f *fakeRepo) DeletePipeline(_ context.Context, ownerID, id uuid.UUID) error {
	p, ok := f.pipelines[id]
	if !ok || p.OwnerID != ownerID {
		return apperr.NotFound("pipeline not found")
	}
	delete(f.pipelines, id)
	for stageID, st := range f.stages {
		if st.PipelineID == id {
			delete(f.stages, stageID)
		}
	}
	return nil
}

func (f *fakeRepo) orderedStages(pipelineID uuid.UUID) []repository.Stage {
	var out []repository.Stage
	for _, st := range f.stages {
		if st.PipelineID == pipelineID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (f *fakeRepo) ListStages(_ context.Context, ownerID, pipelineID uuid.UUID) ([]repository.Stage, error) {
	p, ok := f.pipelines[pipelineID]
	if !ok || p.OwnerID != ownerID {
		return []repository.Stage{}, nil
	}
	return f.orderedStages(pipelineID), nil
}

func (f *fakeRepo) GetStage(_ context.Context, ownerID, stageID uuid.UUID) (repository.Stage, error) {
	st, ok := f.stages[stageID]
	if !ok {
		return repository.Stage{}, apperr.NotFound("stage not found")
	}
	if p, ok := f.pipelines[st.PipelineID]; !ok || p.OwnerID != ownerID {
		return repository.Stage{}, apperr.NotFound("stage not found")
	}
	return st, nil
}

func (f *fakeRepo) CreateStage(_ context.Context, params repository.CreateStageParams) (repository.Stage, error) {
	p, ok := f.pipelines[params.PipelineID]
	if !ok || p.OwnerID != params.OwnerID {
		return repository.Stage{}, apperr.NotFound("pipeline not found")
	}
	st := repository.Stage{
		ID: uuid.New(), PipelineID: params.PipelineID,
		Name: params.Name, Slug: params.Slug, Kind: params.Kind, Color: params.Color,
		Position:  len(f.orderedStages(params.PipelineID)),
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	f.stages[st.ID] = st
	return st, nil
}

func (f *fakeRepo) UpdateStage(ctx context.Context, params repository.UpdateStageParams) (repository.Stage, error) {
	st, err := f.GetStage(ctx, params.OwnerID, params.ID)
	if err != nil {
		return repository.Stage{}, err
	}
	if params.Name != nil {
		st.Name = *params.Name
	}
	if params.Slug != nil {
		st.Slug = *params.Slug
	}
	if params.Kind != nil {
		st.Kind = *params.Kind
	}
	if params.Color != nil {
		st.Color = params.Color
	}
	st.UpdatedAt = time.Now()
	f.stages[st.ID] = st
	return st, nil
}

func (f *fakeRepo) DeleteStage(ctx context.Context, ownerID, stageID uuid.UUID) error {
	st, err := f.GetStage(ctx, ownerID, stageID)
	if err != nil {
		return err
	}
	delete(f.stages, stageID)
	for _, sibling := range f.orderedStages(st.PipelineID) {
		if sibling.Position > st.Position {
			sibling.Position--
			f.stages[sibling.ID] = sibling
		}
	}
	return nil
}

func (f *fakeRepo) RenumberStages(_ context.Context, ownerID, pipelineID uuid.UUID, orderedIDs []uuid.UUID) error {
	p, ok := f.pipelines[pipelineID]
	if !ok || p.OwnerID != ownerID {
		return apperr.NotFound("pipeline not found")
	}
	for i, id := range orderedIDs {
		st := f.stages[id]
		st.Position = i
		f.stages[id] = st
	}
	return nil
}

func (f *fakeRepo) StageHasLeads(_ context.Context, _, stageID uuid.UUID) (bool, error) {
	return f.stagedLeads[stageID] > 0, nil
}

func (f *fakeRepo) GetActivePipeline(_ context.Context, operatorID uuid.UUID) (*uuid.UUID, error) {
	id, ok := f.activePrefs[operatorID]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (f *fakeRepo) SetActivePipeline(_ context.Context, operatorID, pipelineID uuid.UUID) error {
	f.activePrefs[operatorID] = pipelineID
	return nil
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

type fixture struct {
	repo    *fakeRepo
	bus     *recordingBus
	svc     *Service
	ownerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		repo:    newFakeRepo(),
		bus:     &recordingBus{},
		ownerID: uuid.New(),
	}
	f.svc = New(f.repo, f.bus, logger.New("development"))
	return f
}

func (f *fixture) addPipeline(t *testing.T, name string, stageNames ...string) (uuid.UUID, []uuid.UUID) {
	t.Helper()

	p, err := f.svc.CreatePipeline(context.Background(), f.ownerID, transport.CreatePipelineRequest{Name: name})
	if err != nil {
		t.Fatalf("CreatePipeline: %v", err)
	}

	ids := make([]uuid.UUID, 0, len(stageNames))
	for _, name := range stageNames {
		st, err := f.svc.AddStage(context.Background(), f.ownerID, p.ID, transport.CreateStageRequest{
			Name: name, Kind: "intermediate",
		})
		if err != nil {
			t.Fatalf("AddStage(%s): %v", name, err)
		}
		ids = append(ids, st.ID)
	}
	return p.ID, ids
}

func assertPositions(t *testing.T, stages []transport.StageResponse, want []uuid.UUID) {
	t.Helper()

	if len(stages) != len(want) {
		t.Fatalf("stages = %d, want %d", len(stages), len(want))
	}
	for i, st := range stages {
		if st.Position != i {
			t.Errorf("stage %s position = %d, want %d", st.Name, st.Position, i)
		}
		if st.ID != want[i] {
			t.Errorf("position %d holds %s, want %s", i, st.ID, want[i])
		}
	}
}

func TestAddStageAppendsAtEnd(t *testing.T) {
	f := newFixture(t)
	pipelineID, ids := f.addPipeline(t, "Sales", "New", "Qualified", "Won")

	list, err := f.svc.ListStages(context.Background(), f.ownerID, pipelineID)
	if err != nil {
		t.Fatalf("ListStages: %v", err)
	}
	assertPositions(t, list.Stages, ids)

	st, err := f.svc.AddStage(context.Background(), f.ownerID, pipelineID, transport.CreateStageRequest{
		Name: "Lost", Kind: "lost",
	})
	if err != nil {
		t.Fatalf("AddStage: %v", err)
	}
	if st.Position != 3 {
		t.Errorf("appended position = %d, want 3", st.Position)
	}
}

func TestReorderStagesRenumbersContiguously(t *testing.T) {
	f := newFixture(t)
	pipelineID, ids := f.addPipeline(t, "Sales", "New", "Qualified", "Won")

	want := []uuid.UUID{ids[2], ids[0], ids[1]}
	list, err := f.svc.ReorderStages(context.Background(), f.ownerID, pipelineID,
		transport.ReorderStagesRequest{StageIDs: want})
	if err != nil {
		t.Fatalf("ReorderStages: %v", err)
	}
	assertPositions(t, list.Stages, want)

	var changed bool
	for _, ev := range f.bus.published {
		if ev.EventName() == "pipelines.stages.changed" {
			changed = true
		}
	}
	if !changed {
		t.Error("expected a stage graph change event")
	}
}

func TestReorderStagesRejectsWrongSet(t *testing.T) {
	f := newFixture(t)
	pipelineID, ids := f.addPipeline(t, "Sales", "New", "Qualified", "Won")

	cases := []struct {
		name     string
		stageIDs []uuid.UUID
	}{
		{"missing stage", []uuid.UUID{ids[0], ids[1]}},
		{"duplicate stage", []uuid.UUID{ids[0], ids[1], ids[1]}},
		{"extra stage", []uuid.UUID{ids[0], ids[1], ids[2], uuid.New()}},
		{"foreign stage", []uuid.UUID{ids[0], ids[1], uuid.New()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.ReorderStages(context.Background(), f.ownerID, pipelineID,
				transport.ReorderStagesRequest{StageIDs: tc.stageIDs})
			if apperr.GetCode(err) != CodeInvalidStageSet {
				t.Fatalf("code = %q, want %q (err = %v)", apperr.GetCode(err), CodeInvalidStageSet, err)
			}

			// The graph must be untouched.
			list, listErr := f.svc.ListStages(context.Background(), f.ownerID, pipelineID)
			if listErr != nil {
				t.Fatalf("ListStages: %v", listErr)
			}
			assertPositions(t, list.Stages, ids)
		})
	}
}

func TestRemoveStageCompactsPositions(t *testing.T) {
	f := newFixture(t)
	pipelineID, ids := f.addPipeline(t, "Sales", "New", "Qualified", "Won")

	if err := f.svc.RemoveStage(context.Background(), f.ownerID, ids[1]); err != nil {
		t.Fatalf("RemoveStage: %v", err)
	}

	list, err := f.svc.ListStages(context.Background(), f.ownerID, pipelineID)
	if err != nil {
		t.Fatalf("ListStages: %v", err)
	}
	assertPositions(t, list.Stages, []uuid.UUID{ids[0], ids[2]})
}

func TestRemoveStageBlockedWhileLeadsPresent(t *testing.T) {
	f := newFixture(t)
	pipelineID, ids := f.addPipeline(t, "Sales", "New", "Qualified")
	f.repo.stagedLeads[ids[0]] = 2

	err := f.svc.RemoveStage(context.Background(), f.ownerID, ids[0])
	if apperr.GetCode(err) != CodeStageInUse {
		t.Fatalf("code = %q, want %q (err = %v)", apperr.GetCode(err), CodeStageInUse, err)
	}

	list, listErr := f.svc.ListStages(context.Background(), f.ownerID, pipelineID)
	if listErr != nil {
		t.Fatalf("ListStages: %v", listErr)
	}
	if len(list.Stages) != 2 {
		t.Errorf("stages = %d, want 2", len(list.Stages))
	}
}

func TestSlugRoundTrip(t *testing.T) {
	names := []string{"Cold Outreach", "Won", "Q3 Enterprise Deals"}
	for _, name := range names {
		if got := Unslugify(Slugify(name)); got != name {
			t.Errorf("round trip %q = %q", name, got)
		}
	}
	if got := Slugify("Cold Outreach"); got != "Cold-Outreach" {
		t.Errorf("Slugify = %q, want Cold-Outreach", got)
	}
}

func TestRenameRecomputesSlug(t *testing.T) {
	f := newFixture(t)
	pipelineID, _ := f.addPipeline(t, "Sales Funnel")

	name := "Agency Retainers"
	p, err := f.svc.UpdatePipeline(context.Background(), f.ownerID, pipelineID,
		transport.UpdatePipelineRequest{Name: &name})
	if err != nil {
		t.Fatalf("UpdatePipeline: %v", err)
	}
	if p.Slug != "Agency-Retainers" {
		t.Errorf("slug = %q, want Agency-Retainers", p.Slug)
	}
}

func TestActivePipelinePreference(t *testing.T) {
	f := newFixture(t)
	pipelineID, _ := f.addPipeline(t, "Sales")
	operatorID := uuid.New()

	// Unset preference reads back as null, never an error.
	pref, err := f.svc.GetActivePipeline(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("GetActivePipeline: %v", err)
	}
	if pref.PipelineID != nil {
		t.Errorf("unset preference = %v, want nil", pref.PipelineID)
	}

	err = f.svc.SetActivePipeline(context.Background(), f.ownerID, operatorID,
		transport.SetActivePipelineRequest{PipelineID: pipelineID})
	if err != nil {
		t.Fatalf("SetActivePipeline: %v", err)
	}

	pref, err = f.svc.GetActivePipeline(context.Background(), operatorID)
	if err != nil {
		t.Fatalf("GetActivePipeline: %v", err)
	}
	if pref.PipelineID == nil || *pref.PipelineID != pipelineID {
		t.Errorf("preference = %v, want %s", pref.PipelineID, pipelineID)
	}

	// A pipeline from another tenant cannot be selected.
	err = f.svc.SetActivePipeline(context.Background(), f.ownerID, operatorID,
		transport.SetActivePipelineRequest{PipelineID: uuid.New()})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("foreign pipeline err = %v, want not found", err)
	}
}
