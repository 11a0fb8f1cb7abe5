package scheduler

import (
	"context"
	"fmt"

	"leasing_crm_backend/internal/tasks/engine"
	"leasing_crm_backend/internal/tasks/service"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	dispatcher *service.Dispatcher
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, dispatcher *service.Dispatcher, log *logger.Logger) (*Worker, error) {
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

	// Jobs run concurrently; cycles touching the same party are
	// serialized by the dispatcher's party lock, not by the queue.
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
		server:     server,
		mux:        mux,
		dispatcher: dispatcher,
		log:        log,
	}

	mux.HandleFunc(TaskSweepFollowup, w.handleSweep)
	mux.HandleFunc(TaskSweepRenewalReminder, w.handleSweep)
	mux.HandleFunc(TaskDispatchPartyEvents, w.handleDispatchPartyEvents)

	return w, nil
}

func (w *Worker) handleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSweepPayload(task)
	if err != nil {
		return err
	}

	family := engine.SweepFamily(payload.Family)
	switch family {
	case engine.SweepFollowup, engine.SweepRenewalReminder:
	default:
		w.log.Warn("unknown sweep family, dropping task", "family", payload.Family)
		return nil
	}

	return w.dispatcher.ProcessSweep(ctx, family)
}

func (w *Worker) handleDispatchPartyEvents(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseDispatchPartyEventsPayload(task)
	if err != nil {
		return err
	}

	partyIDs := make([]uuid.UUID, 0, len(payload.PartyIDs))
	for _, raw := range payload.PartyIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return err
		}
		partyIDs = append(partyIDs, id)
	}

	actor := uuid.Nil
	if payload.ActorID != "" {
		actor, err = uuid.Parse(payload.ActorID)
		if err != nil {
			return err
		}
	}

	w.dispatcher.ProcessParties(ctx, partyIDs, actor)
	return nil
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
