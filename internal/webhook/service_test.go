package webhook

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	contactsrepo "funnel_backend/internal/contacts/repository"
	contactstransport "funnel_backend/internal/contacts/transport"
	"funnel_backend/internal/scheduler"
	platformevents "funnel_backend/platform/events"
	"funnel_backend/platform/logger"
)

type fakeLeadCreator struct {
	created []contactstransport.CreateLeadRequest
}

func (f *fakeLeadCreator) Create(_ context.Context, _ uuid.UUID, req contactstransport.CreateLeadRequest) (contactstransport.LeadResponse, error) {
	f.created = append(f.created, req)
	return contactstransport.LeadResponse{ID: uuid.New(), Name: req.Name}, nil
}

type fakeDuplicateFinder struct {
	existing *contactsrepo.Lead
}

func (f *fakeDuplicateFinder) FindRecentDuplicate(_ context.Context, _ uuid.UUID, _, _ *string, _ time.Time) (*contactsrepo.Lead, error) {
	return f.existing, nil
}

type fakeEnqueuer struct {
	payloads []scheduler.AutomationTriggerPayload
	fail     bool
}

func (f *fakeEnqueuer) EnqueueAutomationTrigger(_ context.Context, payload scheduler.AutomationTriggerPayload) error {
	if f.fail {
		return errors.New("redis unavailable")
	}
	f.payloads = append(f.payloads, payload)
	return nil
}

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

func TestIngestEnqueuesTriggerWithAttribution(t *testing.T) {
	leads := &fakeLeadCreator{}
	enq := &fakeEnqueuer{}
	svc := NewService(leads, &fakeDuplicateFinder{}, enq, &recordingBus{}, logger.New("development"))
	ownerID := uuid.New()

	result, err := svc.Ingest(context.Background(), ownerID, ContactSubmission{
		Name:        "Ada",
		Attribution: map[string]string{"utm_source": "meta"},
	})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if result.Duplicate {
		t.Error("fresh submission flagged as duplicate")
	}

	if len(enq.payloads) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(enq.payloads))
	}
	p := enq.payloads[0]
	if !p.HasAttribution {
		t.Error("HasAttribution = false, want true")
	}
	if p.LeadID != result.LeadID.String() || p.OwnerID != ownerID.String() {
		t.Errorf("payload ids = %s/%s", p.LeadID, p.OwnerID)
	}
}

func TestIngestPlainSubmissionHasNoAttribution(t *testing.T) {
	enq := &fakeEnqueuer{}
	svc := NewService(&fakeLeadCreator{}, &fakeDuplicateFinder{}, enq, &recordingBus{}, logger.New("development"))

	_, err := svc.Ingest(context.Background(), uuid.New(), ContactSubmission{Name: "Bob"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(enq.payloads) != 1 || enq.payloads[0].HasAttribution {
		t.Errorf("payloads = %+v, want one without attribution", enq.payloads)
	}
}

func TestIngestSuppressesRecentDuplicate(t *testing.T) {
	existing := &contactsrepo.Lead{ID: uuid.New(), Name: "Ada"}
	leads := &fakeLeadCreator{}
	enq := &fakeEnqueuer{}
	svc := NewService(leads, &fakeDuplicateFinder{existing: existing}, enq, &recordingBus{}, logger.New("development"))

	email := "ada@example.com"
	result, err := svc.Ingest(context.Background(), uuid.New(), ContactSubmission{Name: "Ada", Email: &email})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !result.Duplicate || result.LeadID != existing.ID {
		t.Errorf("result = %+v, want duplicate of %s", result, existing.ID)
	}
	if len(leads.created) != 0 || len(enq.payloads) != 0 {
		t.Error("duplicate must not create a lead or enqueue a trigger")
	}
}

func TestIngestNormalizesPhone(t *testing.T) {
	leads := &fakeLeadCreator{}
	svc := NewService(leads, &fakeDuplicateFinder{}, &fakeEnqueuer{}, &recordingBus{}, logger.New("development"))

	raw := "06 12 34 56 78"
	_, err := svc.Ingest(context.Background(), uuid.New(), ContactSubmission{Name: "Dot", Phone: &raw})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(leads.created) != 1 || leads.created[0].Phone == nil {
		t.Fatalf("created = %+v, want one with phone", leads.created)
	}
	if got := *leads.created[0].Phone; got != "+31612345678" {
		t.Errorf("stored phone = %q, want E.164", got)
	}
}

func TestIngestSurvivesEnqueueFailure(t *testing.T) {
	leads := &fakeLeadCreator{}
	bus := &recordingBus{}
	svc := NewService(leads, &fakeDuplicateFinder{}, &fakeEnqueuer{fail: true}, bus, logger.New("development"))

	result, err := svc.Ingest(context.Background(), uuid.New(), ContactSubmission{Name: "Cleo"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if len(leads.created) != 1 {
		t.Fatalf("created = %d, want 1", len(leads.created))
	}
	if result.LeadID == uuid.Nil {
		t.Error("lead id missing")
	}
	if len(bus.published) != 1 {
		t.Errorf("published = %d, want 1", len(bus.published))
	}
}
