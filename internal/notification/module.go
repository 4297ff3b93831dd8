// Package notification turns domain events into pushes to connected
// operators. Domain modules publish to the bus and never know about the
// transport.
package notification

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/notification/sse"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/logger"
)

// Module is the notification bounded context module implementing http.Module.
type Module struct {
	sse *sse.Service
	log *logger.Logger
}

// NewModule creates and initializes the notification module.
func NewModule(log *logger.Logger) *Module {
	return &Module{
		sse: sse.New(log),
		log: log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "notification"
}

// RegisterRoutes mounts the SSE stream endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/events/stream", m.sse.Handler(operatorFromContext, ownerFromContext))
}

// RegisterHandlers subscribes to the domain events that should refresh
// connected boards.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadMoved{}.EventName(), m)
	bus.Subscribe(events.LeadPlaced{}.EventName(), m)
	bus.Subscribe(events.LeadTransferred{}.EventName(), m)
	bus.Subscribe(events.StageGraphChanged{}.EventName(), m)
	bus.Subscribe(events.PipelineDeleted{}.EventName(), m)
	bus.Subscribe(events.ContactIngested{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the SSE hub.
func (m *Module) Handle(_ context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadMoved:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventLeadMoved, LeadID: e.LeadID, PipelineID: e.PipelineID,
			Data: map[string]interface{}{
				"fromStageId": e.FromStageID,
				"toStageId":   e.ToStageID,
				"lifecycle":   e.Lifecycle,
			},
		})
	case events.LeadPlaced:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventLeadPlaced, LeadID: e.LeadID, PipelineID: e.PipelineID,
			Data: map[string]interface{}{
				"stageId":   e.StageID,
				"automated": e.Automated,
			},
		})
	case events.LeadTransferred:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventLeadTransferred, LeadID: e.LeadID, PipelineID: e.ToPipelineID,
			Data: map[string]interface{}{
				"fromPipelineId": e.FromPipelineID,
				"toStageId":      e.ToStageID,
			},
		})
	case events.StageGraphChanged:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventStagesChanged, PipelineID: e.PipelineID,
			Data: map[string]interface{}{"change": e.Change},
		})
	case events.PipelineDeleted:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventPipelineDeleted, PipelineID: e.PipelineID,
		})
	case events.ContactIngested:
		m.sse.PublishToOwner(e.OwnerID, sse.Event{
			Type: sse.EventContactIngested, LeadID: e.LeadID,
			Data: map[string]interface{}{"hasAttribution": e.HasAttribution},
		})
	}
	return nil
}

func operatorFromContext(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if identity == nil || !identity.IsAuthenticated() {
		return uuid.Nil, false
	}
	return identity.ActorID(), true
}

func ownerFromContext(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.GetIdentity(c)
	if identity == nil {
		return uuid.Nil, false
	}
	ownerID := identity.OwnerID()
	if ownerID == uuid.Nil {
		return uuid.Nil, false
	}
	return ownerID, true
}
