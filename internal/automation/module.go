// Package automation provides the automation matcher bounded context:
// rule configuration and the trigger handler that places brand-new
// contacts into their first pipeline stage.
package automation

import (
	"funnel_backend/internal/automation/handler"
	"funnel_backend/internal/automation/repository"
	"funnel_backend/internal/automation/service"
	apphttp "funnel_backend/internal/http"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the automation bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the automation module with all its dependencies.
func NewModule(pool *pgxpool.Pool, placer service.Placer, stages service.StageDirectory, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, placer, stages, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "automation"
}

// Service returns the matcher service for the worker's trigger consumer.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts automation routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/automation/rules", m.handler.List)
	ctx.Protected.PUT("/automation/rules", m.handler.Upsert)
	ctx.Protected.PATCH("/automation/rules/:id/active", m.handler.SetActive)
	ctx.Protected.DELETE("/automation/rules/:id", m.handler.Delete)
}
