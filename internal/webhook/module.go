// Package webhook provides the contact-capture bounded context: the
// public ingestion endpoint that feeds the automation matcher, plus
// API key management for capture sources.
package webhook

import (
	"funnel_backend/internal/events"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/scheduler"
	"funnel_backend/platform/httpkit"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leads LeadCreator, dupes DuplicateFinder, enqueuer scheduler.TriggerEnqueuer, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	svc := NewService(leads, dupes, enqueuer, bus, log)
	h := NewHandler(svc, repo, val)

	return &Module{
		handler: h,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public capture endpoint (API key auth, no JWT)
	capture := ctx.V1.Group("/webhook")
	capture.Use(ctx.WebhookRateLimiter.RateLimit())
	capture.Use(APIKeyAuthMiddleware(m.repo))
	capture.POST("/contacts", m.handler.HandleContactCapture)

	// Key management (JWT auth, admin only)
	keys := ctx.Protected.Group("/webhook/keys")
	keys.Use(httpkit.RequireRole("admin"))
	keys.POST("", m.handler.HandleCreateAPIKey)
	keys.GET("", m.handler.HandleListAPIKeys)
	keys.DELETE("/:keyId", m.handler.HandleRevokeAPIKey)
}
