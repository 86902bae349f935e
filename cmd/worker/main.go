// Package main is the entrypoint for the internship back-office worker.
//
// The worker owns the background side of the engine:
//   - runs database migrations on startup
//   - hosts the scheduler with the daily lifecycle sweep
//   - fans lifecycle and issuance events out to the audit log
//
// The issuance trigger itself is a library surface (application/command)
// called by the HTTP layer that lives outside this repository.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/internhub/internship-back-office/config"
	"github.com/internhub/internship-back-office/internal/application/command"
	"github.com/internhub/internship-back-office/internal/domain/shared"
	"github.com/internhub/internship-back-office/internal/infrastructure/external/mailer"
	"github.com/internhub/internship-back-office/internal/infrastructure/external/renderer"
	"github.com/internhub/internship-back-office/internal/infrastructure/messaging"
	"github.com/internhub/internship-back-office/internal/infrastructure/persistence/postgres"
	"github.com/internhub/internship-back-office/internal/infrastructure/persistence/redis"
	"github.com/internhub/internship-back-office/internal/infrastructure/scheduler"
	"github.com/internhub/internship-back-office/internal/infrastructure/scheduler/jobs"
	"github.com/internhub/internship-back-office/internal/infrastructure/service"
	"github.com/internhub/internship-back-office/pkg/retry"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logging
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	slog.SetDefault(log)
	log.Info("starting internship back-office worker",
		"env", string(cfg.App.Environment),
		"version", cfg.App.Version,
		"timezone", cfg.App.Timezone,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Database
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	log.Info("database connection established")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Migrations
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 5. Repositories and event bus
	// ─────────────────────────────────────────────────────────────────────────
	internRepo := postgres.NewInternRepository(dbConn)
	feedbackRepo := postgres.NewFeedbackRepository(dbConn)

	eventBus := messaging.NewEventBus(log)
	eventBus.SubscribeAll(func(e shared.Event) {
		log.Info("domain event",
			"type", string(e.EventType()),
			"aggregate_id", e.AggregateID(),
			"payload", e.Payload(),
		)
	})

	// ─────────────────────────────────────────────────────────────────────────
	// 6. Scheduler and jobs
	// ─────────────────────────────────────────────────────────────────────────
	sched := scheduler.New(scheduler.Config{
		Logger:   log,
		Timezone: cfg.App.Location,
	})

	sweepJob := jobs.NewLifecycleSweepJob(internRepo, eventBus, jobs.SweepConfig{
		Timeout: cfg.Scheduler.JobTimeout,
	}, log)

	var sweepSchedule scheduler.Schedule
	if cfg.Scheduler.SweepInterval > 0 {
		sweepSchedule = scheduler.Every(cfg.Scheduler.SweepInterval)
	} else {
		sweepSchedule = scheduler.DailyAt(cfg.Scheduler.SweepHour, cfg.Scheduler.SweepMinute)
	}

	if err := sched.Register(sweepJob, sweepSchedule); err != nil {
		return fmt.Errorf("failed to register sweep job: %w", err)
	}

	// The reconcile job re-runs the issuance pipeline for issued records
	// left without a number or an intern mirror. It needs the outbound
	// renderer and mailer, so it only runs when both are configured.
	if cfg.Scheduler.ReconcileInterval > 0 && cfg.Renderer.BaseURL != "" && cfg.Mailer.BaseURL != "" {
		issuer, closeIssuer, err := buildIssuer(cfg, feedbackRepo, internRepo, eventBus, log)
		if err != nil {
			return err
		}
		defer closeIssuer()

		reconcileJob := jobs.NewIssuanceReconcileJob(feedbackRepo, internRepo, issuer, jobs.ReconcileConfig{
			Timeout: cfg.Scheduler.JobTimeout,
		}, log)

		if err := sched.Register(reconcileJob, scheduler.Every(cfg.Scheduler.ReconcileInterval)); err != nil {
			return fmt.Errorf("failed to register reconcile job: %w", err)
		}
	} else {
		log.Info("issuance reconcile disabled",
			"reconcile_interval", cfg.Scheduler.ReconcileInterval.String(),
			"renderer_configured", cfg.Renderer.BaseURL != "",
			"mailer_configured", cfg.Mailer.BaseURL != "",
		)
	}
	if !cfg.Scheduler.Enabled {
		if err := sched.DisableJob(sweepJob.Name()); err != nil {
			return err
		}
		log.Warn("scheduler disabled by configuration, sweep will not run")
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 7. Signal handling
	// ─────────────────────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigCh
		if sig == syscall.SIGHUP {
			// Operator hook: force a sweep outside the schedule.
			log.Info("received SIGHUP, running lifecycle sweep now")
			if _, err := sched.RunNow(ctx, sweepJob.Name()); err != nil {
				log.Error("manual sweep failed", "error", err)
			}
			continue
		}

		log.Info("received shutdown signal", "signal", sig.String())
		break
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 8. Graceful shutdown
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	if err := sched.Stop(); err != nil {
		log.Error("scheduler stop failed", "error", err)
	}

	log.Info("shutdown completed successfully")
	return nil
}

// buildIssuer assembles the issuance pipeline the reconcile job re-runs:
// allocator, renderer, mailer, and, unless disabled, the Redis issuance
// guard. The returned close function releases the Redis connection.
func buildIssuer(
	cfg *config.Config,
	feedbackRepo *postgres.FeedbackRepository,
	internRepo *postgres.InternRepository,
	eventBus shared.EventPublisher,
	log *slog.Logger,
) (*command.IssueCertificateHandler, func(), error) {
	rendererClient := renderer.NewClient(renderer.ClientConfig{
		BaseURL:    cfg.Renderer.BaseURL,
		APIKey:     cfg.Renderer.APIKey,
		TemplateID: cfg.Renderer.TemplateID,
		Timeout:    cfg.Renderer.RequestTimeout,
		RetryConfig: retry.Config{
			MaxAttempts:  cfg.Renderer.MaxRetries,
			InitialDelay: cfg.Renderer.RetryBaseDelay,
			MaxDelay:     cfg.Renderer.RetryMaxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Logger: log,
	})

	mailerClient := mailer.NewClient(mailer.ClientConfig{
		BaseURL:     cfg.Mailer.BaseURL,
		APIKey:      cfg.Mailer.APIKey,
		FromAddress: cfg.Mailer.FromAddress,
		FromName:    cfg.Mailer.FromName,
		Timeout:     cfg.Mailer.RequestTimeout,
		RetryConfig: retry.Config{
			MaxAttempts:  cfg.Mailer.MaxRetries,
			InitialDelay: cfg.Mailer.RetryBaseDelay,
			MaxDelay:     cfg.Mailer.RetryMaxDelay,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Logger: log,
	})

	allocator := service.NewCertificateAllocator(service.AllocatorConfig{
		Prefix:        cfg.Certificate.Prefix,
		SuffixDigits:  cfg.Certificate.SuffixDigits,
		MaxAttempts:   cfg.Certificate.MaxAttempts,
		AllowFallback: cfg.Certificate.AllowFallback,
	}, feedbackRepo, internRepo, log)

	issuer := command.NewIssueCertificateHandler(
		feedbackRepo, internRepo,
		allocator, rendererClient, service.NewCertificateMailerAdapter(mailerClient),
		eventBus, log,
	)

	closeIssuer := func() {}
	if !cfg.Redis.Disabled {
		guard, err := redis.NewIssuanceGuard(redis.Config{
			Host:         cfg.Redis.Host,
			Port:         cfg.Redis.Port,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		issuer = issuer.WithGuard(guard)
		closeIssuer = func() {
			if err := guard.Close(); err != nil {
				log.Warn("failed to close redis connection", "error", err)
			}
		}
	}

	return issuer, closeIssuer, nil
}

// setupLogger configures structured logging from observability settings.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Observability.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if cfg.App.Debug {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
