package scheduler

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"realtorbuddy_backend/platform/config"
	"realtorbuddy_backend/platform/logger"
)

// Runner is a batch entry point. Both the cadence and digest services
// satisfy it.
type Runner interface {
	Run(ctx context.Context) error
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	cadence Runner
	digest  Runner
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, cadence, digest Runner, log *logger.Logger) (*Worker, error) {
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
		cadence: cadence,
		digest:  digest,
		log:     log,
	}

	mux.HandleFunc(TaskCadenceRun, w.handleCadenceRun)
	mux.HandleFunc(TaskDigestDaily, w.handleDigestDaily)

	return w, nil
}

// handleCadenceRun executes one cadence batch. The batch handles its own
// per-lead failures, so the task never signals asynq to retry; a partial
// failure is resolved by the next hourly trigger.
func (w *Worker) handleCadenceRun(ctx context.Context, _ *asynq.Task) error {
	w.log.Info("cadence trigger received")
	if err := w.cadence.Run(ctx); err != nil {
		w.log.Error("cadence run incomplete", "error", err.Error())
	}
	return nil
}

func (w *Worker) handleDigestDaily(ctx context.Context, _ *asynq.Task) error {
	w.log.Info("digest trigger received")
	if err := w.digest.Run(ctx); err != nil {
		w.log.Error("digest run incomplete", "error", err.Error())
	}
	return nil
}

// Run blocks until the context is cancelled.
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
