// Package sse pushes board-refresh events to connected operators over
// Server-Sent Events.
package sse

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"funnel_backend/platform/logger"
)

// EventType represents different types of SSE events.
type EventType string

const (
	EventLeadMoved       EventType = "lead_moved"
	EventLeadPlaced      EventType = "lead_placed"
	EventLeadTransferred EventType = "lead_transferred"
	EventStagesChanged   EventType = "stages_changed"
	EventPipelineDeleted EventType = "pipeline_deleted"
	EventContactIngested EventType = "contact_ingested"
)

// Event represents an SSE event payload.
type Event struct {
	Type       EventType   `json:"type"`
	LeadID     uuid.UUID   `json:"leadId,omitempty"`
	PipelineID uuid.UUID   `json:"pipelineId,omitempty"`
	Data       interface{} `json:"data,omitempty"`
}

// client represents a connected SSE client.
type client struct {
	operatorID uuid.UUID
	ownerID    uuid.UUID
	events     chan Event
}

// Service manages SSE connections and event broadcasting. Events fan
// out per tenant: every connected operator of the owner gets the push.
type Service struct {
	mu      sync.RWMutex
	clients map[uuid.UUID][]*client // owner id -> clients
	log     *logger.Logger
}

// New creates a new SSE service.
func New(log *logger.Logger) *Service {
	return &Service{
		clients: make(map[uuid.UUID][]*client),
		log:     log,
	}
}

func (s *Service) addClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c.ownerID] = append(s.clients[c.ownerID], c)
}

func (s *Service) removeClient(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	clients := s.clients[c.ownerID]
	for i, cl := range clients {
		if cl == c {
			s.clients[c.ownerID] = append(clients[:i], clients[i+1:]...)
			break
		}
	}
	if len(s.clients[c.ownerID]) == 0 {
		delete(s.clients, c.ownerID)
	}

	close(c.events)
}

// PublishToOwner broadcasts an event to every connected operator of the
// tenant. Slow consumers drop events rather than block the publisher.
func (s *Service) PublishToOwner(ownerID uuid.UUID, event Event) {
	s.mu.RLock()
	clients := make([]*client, len(s.clients[ownerID]))
	copy(clients, s.clients[ownerID])
	s.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.events <- event:
		default:
			s.log.Warn("sse buffer full, event dropped",
				"operator_id", c.operatorID, "event_type", event.Type)
		}
	}
}

// Handler returns a gin handler for SSE connections.
func (s *Service) Handler(getOperatorID func(*gin.Context) (uuid.UUID, bool), getOwnerID func(*gin.Context) (uuid.UUID, bool)) gin.HandlerFunc {
	return func(c *gin.Context) {
		operatorID, ok := getOperatorID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		ownerID, ok := getOwnerID(c)
		if !ok {
			c.JSON(http.StatusForbidden, gin.H{"error": "no tenant in token"})
			return
		}

		c.Writer.Header().Set("Content-Type", "text/event-stream")
		c.Writer.Header().Set("Cache-Control", "no-cache")
		c.Writer.Header().Set("Connection", "keep-alive")
		c.Writer.Header().Set("X-Accel-Buffering", "no")

		cl := &client{
			operatorID: operatorID,
			ownerID:    ownerID,
			events:     make(chan Event, 32),
		}
		s.addClient(cl)
		defer s.removeClient(cl)

		c.SSEvent("connected", gin.H{"operatorId": operatorID})
		c.Writer.Flush()

		s.log.Info("sse client connected", "operator_id", operatorID, "owner_id", ownerID)

		clientGone := c.Request.Context().Done()
		for {
			select {
			case <-clientGone:
				s.log.Info("sse client disconnected", "operator_id", operatorID)
				return
			case event, ok := <-cl.events:
				if !ok {
					return
				}
				data, _ := json.Marshal(event)
				c.SSEvent(string(event.Type), string(data))
				c.Writer.Flush()
			}
		}
	}
}
