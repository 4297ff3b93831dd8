// Package funnel provides the pipeline engine bounded context: validated
// lead moves, first placements, transfers, and the append-only funnel
// event log.
package funnel

import (
	"funnel_backend/internal/funnel/handler"
	"funnel_backend/internal/funnel/repository"
	"funnel_backend/internal/funnel/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/config"
	"funnel_backend/platform/events"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnel bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repo
}

// NewModule creates and initializes the funnel module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, cfg config.EngineConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, bus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "funnel"
}

// Service returns the engine service for other modules (automation placement).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository, used by main for health checks.
func (m *Module) Repository() *repository.Repo {
	return m.repo
}

// RegisterRoutes mounts funnel routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/leads/:id/move", m.handler.Move)
	ctx.Protected.POST("/leads/:id/place", m.handler.Place)
	ctx.Protected.POST("/leads/:id/transfer", m.handler.Transfer)
	ctx.Protected.GET("/funnel-events", m.handler.ListEvents)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
