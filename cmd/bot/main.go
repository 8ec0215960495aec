package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"lechuga_bot_backend/internal/diagnosis"
	apphttp "lechuga_bot_backend/internal/http"
	"lechuga_bot_backend/internal/labels"
	"lechuga_bot_backend/internal/messaging"
	"lechuga_bot_backend/internal/notification"
	"lechuga_bot_backend/internal/presence"
	"lechuga_bot_backend/internal/report"
	"lechuga_bot_backend/internal/scheduler"
	"lechuga_bot_backend/internal/storage"
	"lechuga_bot_backend/internal/vision"
	"lechuga_bot_backend/migrations"
	"lechuga_bot_backend/platform/config"
	"lechuga_bot_backend/platform/db"
	"lechuga_bot_backend/platform/events"

	"lechuga_bot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting bot", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	eventBus := events.NewInMemoryBus(log)

	taxonomy, err := labels.NewTaxonomyFromFile(cfg.GetLabelSynonymsPath())
	if err != nil {
		log.Error("failed to load label taxonomy", "error", err)
		panic("failed to load label taxonomy: " + err.Error())
	}

	gemini, err := vision.NewGeminiClient(ctx, cfg)
	if err != nil {
		log.Error("failed to initialize gemini client", "error", err)
		panic("failed to initialize gemini client: " + err.Error())
	}
	if gemini == nil {
		log.Warn("GEMINI_API_KEY not configured; subject gate bypassed, caption styling falls back to plain text")
	}

	channel := messaging.NewClient(cfg, log)
	if channel == nil {
		log.Error("TELEGRAM_BOT_TOKEN not configured")
		panic("TELEGRAM_BOT_TOKEN not configured")
	}

	presenceStore, err := presence.NewStore(cfg)
	if err != nil {
		log.Error("failed to initialize presence store", "error", err)
		panic("failed to initialize presence store: " + err.Error())
	}
	defer presenceStore.Close()

	var gotenberg *report.GotenbergClient
	if cfg.IsGotenbergEnabled() {
		gotenberg = report.NewGotenbergClient(cfg.GetGotenbergURL(), cfg.GetGotenbergUsername(), cfg.GetGotenbergPassword())
		log.Info("gotenberg renderer initialized", "url", cfg.GetGotenbergURL())
	} else {
		log.Warn("GOTENBERG_URL not configured; reports will be delivered as HTML")
	}
	renderer := report.NewGenerator(gotenberg, cfg, log)
	formatter := report.NewFormatter(textGenerator(gemini), log)

	archive, err := storage.NewArchive(cfg, log)
	if err != nil {
		log.Error("failed to initialize report archive", "error", err)
		panic("failed to initialize report archive: " + err.Error())
	}
	if archive != nil {
		if err := withRetry(ctx, log, "ensure archive bucket", 5, 2*time.Second, func() error {
			return archive.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure archive bucket", "error", err)
			panic("failed to ensure archive bucket: " + err.Error())
		}
		log.Info("report archive initialized", "bucket", cfg.GetMinioBucketReportArchive())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	diagnosisModule := diagnosis.NewModule(
		pool, taxonomy, gemini, renderer, formatter, channel, presenceStore, eventBus, cfg, log,
	)

	alerts := notification.NewAlertSender(cfg, log)
	alerts.Subscribe(eventBus)

	schedulerClient, schedulerWorker := initScheduler(cfg, channel, archive, presenceStore, eventBus, log)
	if schedulerClient != nil {
		defer schedulerClient.Close()
	}

	sweep := scheduler.NewArtifactSweep(cfg, log)

	webhook := messaging.NewWebhookHandler(diagnosisModule.Orchestrator(), log)
	engine := apphttp.New(cfg, pool, webhook, log, cfg.Env)

	// ========================================================================
	// Run
	// ========================================================================

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		return engine.Run(cfg.HTTPAddr)
	})
	group.Go(func() error {
		sweep.Run(groupCtx)
		return nil
	})
	if schedulerWorker != nil {
		group.Go(func() error {
			return schedulerWorker.Run(groupCtx)
		})
	}
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		return groupCtx.Err()
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// textGenerator adapts a possibly-nil gemini client to the formatter's
// interface without handing it a typed nil.
func textGenerator(gemini *vision.GeminiClient) report.TextGenerator {
	if gemini == nil {
		return nil
	}
	return gemini
}

func initScheduler(
	cfg *config.Config,
	channel *messaging.Client,
	archive *storage.Archive,
	presenceStore *presence.Store,
	bus events.Bus,
	log *logger.Logger,
) (*scheduler.Client, *scheduler.Worker) {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}
	client.Subscribe(bus, cfg.GetRetryReminderDelay(), log)

	var archiver scheduler.ReportArchiver
	if archive != nil {
		archiver = archive
	}

	worker, err := scheduler.NewWorker(cfg, channel, archiver, presenceStore, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		return client, nil
	}
	return client, worker
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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
