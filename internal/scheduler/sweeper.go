package scheduler

import (
	"context"
	"time"

	"leasing_crm_backend/internal/tasks/engine"
	"leasing_crm_backend/platform/config"
	"leasing_crm_backend/platform/logger"
)

const (
	defaultFollowupSweepInterval = time.Hour
	defaultRenewalSweepInterval  = 24 * time.Hour
)

// Sweeper periodically enqueues the time-based sweep tasks so the worker
// pool picks them up like any other job.
type Sweeper struct {
	client        *Client
	log           *logger.Logger
	followupEvery time.Duration
	renewalEvery  time.Duration
}

func NewSweeper(cfg config.SchedulerConfig, client *Client, log *logger.Logger) *Sweeper {
	followupEvery := cfg.GetFollowupSweepInterval()
	if followupEvery <= 0 {
		followupEvery = defaultFollowupSweepInterval
	}

	renewalEvery := cfg.GetRenewalSweepInterval()
	if renewalEvery <= 0 {
		renewalEvery = defaultRenewalSweepInterval
	}

	return &Sweeper{
		client:        client,
		log:           log,
		followupEvery: followupEvery,
		renewalEvery:  renewalEvery,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	if s == nil || s.client == nil {
		return
	}

	s.enqueue(ctx, TaskSweepFollowup, engine.SweepFollowup)
	s.enqueue(ctx, TaskSweepRenewalReminder, engine.SweepRenewalReminder)

	followup := time.NewTicker(s.followupEvery)
	defer followup.Stop()

	renewal := time.NewTicker(s.renewalEvery)
	defer renewal.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-followup.C:
			s.enqueue(ctx, TaskSweepFollowup, engine.SweepFollowup)
		case <-renewal.C:
			s.enqueue(ctx, TaskSweepRenewalReminder, engine.SweepRenewalReminder)
		}
	}
}

func (s *Sweeper) enqueue(ctx context.Context, taskName string, family engine.SweepFamily) {
	if err := s.client.EnqueueSweep(ctx, taskName, string(family)); err != nil {
		s.log.Warn("failed to enqueue sweep task", "task", taskName, "error", err)
	}
}
