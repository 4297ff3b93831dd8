// Package contacts provides the contact record store: lead identity,
// attribution data, and engagement counters. Stage placement belongs to
// the funnel module.
package contacts

import (
	"funnel_backend/internal/contacts/handler"
	"funnel_backend/internal/contacts/repository"
	"funnel_backend/internal/contacts/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the contacts bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the contacts module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "contacts"
}

// Service returns the contacts service for other modules (webhook ingestion).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the store for the webhook's duplicate check.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts contact routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads", m.handler.Create)
	ctx.Protected.GET("/leads", m.handler.List)
	ctx.Protected.GET("/leads/:id", m.handler.Get)
	ctx.Protected.POST("/leads/:id/interactions", m.handler.RecordInteraction)
}
