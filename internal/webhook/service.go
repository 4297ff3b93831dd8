package webhook

import (
	"context"
	"time"

	"github.com/google/uuid"

	contactsrepo "funnel_backend/internal/contacts/repository"
	contactstransport "funnel_backend/internal/contacts/transport"
	"funnel_backend/internal/events"
	"funnel_backend/internal/scheduler"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/phone"
)

// duplicateWindow suppresses repeat submissions of the same contact
// (double-clicked forms, retrying integrations).
const duplicateWindow = 60 * time.Second

// LeadCreator stores new contact records. The contacts service
// satisfies it.
type LeadCreator interface {
	Create(ctx context.Context, ownerID uuid.UUID, req contactstransport.CreateLeadRequest) (contactstransport.LeadResponse, error)
}

// DuplicateFinder looks up recent contacts with the same email or phone.
type DuplicateFinder interface {
	FindRecentDuplicate(ctx context.Context, ownerID uuid.UUID, email, phone *string, since time.Time) (*contactsrepo.Lead, error)
}

// ContactSubmission is a parsed inbound capture payload.
type ContactSubmission struct {
	Name        string            `json:"name" validate:"required,min=1,max=200"`
	Email       *string           `json:"email,omitempty" validate:"omitempty,email"`
	Phone       *string           `json:"phone,omitempty" validate:"omitempty,min=5,max=32"`
	Attribution map[string]string `json:"attribution,omitempty"`
}

// IngestResult reports what happened to a submission.
type IngestResult struct {
	LeadID    uuid.UUID `json:"leadId"`
	Duplicate bool      `json:"duplicate"`
}

// Service ingests contact submissions: create the record, hand the
// trigger to the queue, notify in-process listeners.
type Service struct {
	leads    LeadCreator
	dupes    DuplicateFinder
	enqueuer scheduler.TriggerEnqueuer
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

// NewService creates a new webhook ingestion service.
func NewService(leads LeadCreator, dupes DuplicateFinder, enqueuer scheduler.TriggerEnqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		leads:    leads,
		dupes:    dupes,
		enqueuer: enqueuer,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Ingest processes one submission. A contact with the same email or
// phone seen inside the duplicate window short-circuits: the existing
// lead is returned and no new trigger is enqueued.
func (s *Service) Ingest(ctx context.Context, ownerID uuid.UUID, sub ContactSubmission) (IngestResult, error) {
	sub.Phone = phone.NormalizePtr(sub.Phone)

	existing, err := s.dupes.FindRecentDuplicate(ctx, ownerID, sub.Email, sub.Phone, s.now().Add(-duplicateWindow))
	if err != nil {
		return IngestResult{}, err
	}
	if existing != nil {
		s.log.Info("duplicate submission suppressed",
			"lead_id", existing.ID, "owner_id", ownerID)
		return IngestResult{LeadID: existing.ID, Duplicate: true}, nil
	}

	lead, err := s.leads.Create(ctx, ownerID, contactstransport.CreateLeadRequest{
		Name:        sub.Name,
		Email:       sub.Email,
		Phone:       sub.Phone,
		Attribution: sub.Attribution,
	})
	if err != nil {
		return IngestResult{}, err
	}

	hasAttribution := len(sub.Attribution) > 0

	if s.enqueuer != nil {
		err = s.enqueuer.EnqueueAutomationTrigger(ctx, scheduler.AutomationTriggerPayload{
			LeadID:         lead.ID.String(),
			OwnerID:        ownerID.String(),
			HasAttribution: hasAttribution,
			Attributes:     sub.Attribution,
		})
		if err != nil {
			// The contact is stored; a lost trigger only means no automated
			// placement, which an operator can do by hand.
			s.log.Error("failed to enqueue automation trigger",
				"lead_id", lead.ID, "error", err)
		}
	}

	s.bus.Publish(ctx, events.ContactIngested{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OwnerID:        ownerID,
		HasAttribution: hasAttribution,
	})

	s.log.Info("contact ingested",
		"lead_id", lead.ID, "owner_id", ownerID, "has_attribution", hasAttribution)
	return IngestResult{LeadID: lead.ID}, nil
}
