// Package pipelines provides the pipeline registry bounded context:
// pipeline and stage CRUD, the ordered stage graph, and per-operator
// board preferences.
package pipelines

import (
	apphttp "funnel_backend/internal/http"
	"funnel_backend/internal/pipelines/handler"
	"funnel_backend/internal/pipelines/repository"
	"funnel_backend/internal/pipelines/service"
	"funnel_backend/platform/events"
	"funnel_backend/platform/logger"
	"funnel_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipelines bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	service    *service.Service
	repository repository.Repository
}

// NewModule creates and initializes the pipelines module with all its dependencies.
func NewModule(pool *pgxpool.Pool, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.NewRepository(pool)
	svc := service.New(repo, bus, log)
	h := handler.New(svc, val)

	return &Module{
		handler:    h,
		service:    svc,
		repository: repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipelines"
}

// Service returns the registry service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the registry repository for stage lookups by
// other modules.
func (m *Module) Repository() repository.Repository {
	return m.repository
}

// RegisterRoutes mounts pipeline registry routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/pipelines", m.handler.ListPipelines)
	ctx.Protected.POST("/pipelines", m.handler.CreatePipeline)
	ctx.Protected.GET("/pipelines/:id", m.handler.GetPipeline)
	ctx.Protected.PATCH("/pipelines/:id", m.handler.UpdatePipeline)
	ctx.Protected.DELETE("/pipelines/:id", m.handler.DeletePipeline)

	ctx.Protected.GET("/pipelines/:id/stages", m.handler.ListStages)
	ctx.Protected.POST("/pipelines/:id/stages", m.handler.AddStage)
	ctx.Protected.PUT("/pipelines/:id/stages/reorder", m.handler.ReorderStages)
	ctx.Protected.PATCH("/stages/:id", m.handler.UpdateStage)
	ctx.Protected.DELETE("/stages/:id", m.handler.RemoveStage)

	ctx.Protected.GET("/me/active-pipeline", m.handler.GetActivePipeline)
	ctx.Protected.PUT("/me/active-pipeline", m.handler.SetActivePipeline)
}
