package scheduler

import (
	"context"
	"fmt"

	"funnel_backend/internal/automation/domain"
	"funnel_backend/platform/config"
	"funnel_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TriggerHandler consumes parsed trigger events. The automation service
// satisfies it.
type TriggerHandler interface {
	HandleTrigger(ctx context.Context, ev domain.TriggerEvent) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	matcher TriggerHandler
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, matcher TriggerHandler, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		matcher: matcher,
		log:     log,
	}

	mux.HandleFunc(TaskAutomationTrigger, w.handleAutomationTrigger)

	return w, nil
}

func (w *Worker) handleAutomationTrigger(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAutomationTriggerPayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}
	ownerID, err := uuid.Parse(payload.OwnerID)
	if err != nil {
		return err
	}

	return w.matcher.HandleTrigger(ctx, domain.TriggerEvent{
		LeadID:         leadID,
		OwnerID:        ownerID,
		HasAttribution: payload.HasAttribution,
		Attributes:     payload.Attributes,
	})
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
