package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"realtorbuddy_backend/platform/config"
	"realtorbuddy_backend/platform/logger"
)

// Periodic registers the recurring triggers with asynq's cron scheduler.
type Periodic struct {
	scheduler *asynq.Scheduler
	log       *logger.Logger
}

func NewPeriodic(cfg config.SchedulerConfig, log *logger.Logger) (*Periodic, error) {
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

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})

	if _, err := scheduler.Register(cfg.GetCadenceCronSpec(), NewCadenceRunTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register cadence trigger: %w", err)
	}
	if _, err := scheduler.Register(cfg.GetDigestCronSpec(), NewDigestDailyTask(), asynq.Queue(queue)); err != nil {
		return nil, fmt.Errorf("register digest trigger: %w", err)
	}

	return &Periodic{scheduler: scheduler, log: log}, nil
}

// Run blocks until the context is cancelled.
func (p *Periodic) Run(ctx context.Context) {
	if p == nil || p.scheduler == nil {
		return
	}

	go func() {
		<-ctx.Done()
		p.scheduler.Shutdown()
	}()

	if err := p.scheduler.Run(); err != nil {
		p.log.Error("periodic scheduler stopped", "error", err)
	}
}
