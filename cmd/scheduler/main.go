package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"realtorbuddy_backend/internal/cadence"
	"realtorbuddy_backend/internal/compliance"
	"realtorbuddy_backend/internal/digest"
	"realtorbuddy_backend/internal/email"
	"realtorbuddy_backend/internal/events"
	leadrepo "realtorbuddy_backend/internal/leads/repository"
	"realtorbuddy_backend/internal/leads/scoring"
	"realtorbuddy_backend/internal/outreach"
	"realtorbuddy_backend/internal/scheduler"
	"realtorbuddy_backend/internal/whatsapp"
	"realtorbuddy_backend/platform/config"
	"realtorbuddy_backend/platform/db"
	"realtorbuddy_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	leadRepo := leadrepo.New(pool)
	complianceRepo := compliance.NewRepository(pool)
	outreachRepo := outreach.NewRepository(pool)
	digestRepo := digest.NewRepository(pool)

	// Cadence claims touch lastContactDate, so the scoring trigger has to
	// live in this process too.
	scoringSvc := scoring.NewService(leadRepo, eventBus, log)
	scoringSvc.RegisterEventHandlers(eventBus)

	dispatcher := buildDispatcher(cfg, log)

	cadenceSvc := cadence.NewService(
		leadRepo,
		complianceRepo,
		outreachRepo,
		dispatcher,
		cadence.RandomContent{},
		eventBus,
		log,
		cfg,
	)
	digestSvc := digest.NewService(digestRepo, leadRepo, outreachRepo, dispatcher, log)

	worker, err := scheduler.NewWorker(cfg, cadenceSvc, digestSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodic(cfg, log)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go periodic.Run(ctx)

	worker.Run(ctx)
}

// buildDispatcher registers a sender per configured channel. Leads whose
// preferred channel has no sender get a skip log instead of a silent drop.
func buildDispatcher(cfg *config.Config, log *logger.Logger) outreach.Dispatcher {
	multi := outreach.NewMultiDispatcher(log)
	registered := false

	if wa := whatsapp.NewClient(cfg, log); wa != nil {
		multi.Register(leadrepo.ChannelWhatsApp, wa)
		registered = true
	} else {
		log.Warn("whatsapp gateway not configured; whatsapp outreach disabled")
	}

	if sender := email.NewSender(cfg); sender != nil {
		multi.Register(leadrepo.ChannelEmail, sender)
		registered = true
	} else {
		log.Warn("smtp not configured; email outreach disabled")
	}

	if !registered {
		log.Warn("no outreach channels configured; messages will be logged only")
		return outreach.NewNoopDispatcher(log)
	}

	return multi
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
