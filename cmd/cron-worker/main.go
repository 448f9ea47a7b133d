package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/cron"
	"github.com/snapwall/snapwall-backend/internal/events"
	"github.com/snapwall/snapwall-backend/internal/media"
	"github.com/snapwall/snapwall-backend/internal/quota"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/instance"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
	"github.com/snapwall/snapwall-backend/pkg/migrate"
	"github.com/snapwall/snapwall-backend/pkg/redis"
	"github.com/snapwall/snapwall-backend/pkg/storage/s3"
)

func main() {
	once := flag.Bool("once", false, "run a single cleanup cycle and exit")
	only := flag.String("jobs", "", "comma separated job names to run; empty runs all")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := s3.New(context.Background(), cfg.Storage, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object store", err)
		os.Exit(1)
	}

	ledger, err := quota.NewLedger(dbClient.DB(), cfg.Quota.DefaultLimitBytes)
	if err != nil {
		logg.Error(context.Background(), "failed to create quota ledger", err)
		os.Exit(1)
	}

	// event_deleted reaches API nodes through the relay when it is enabled.
	var relay broadcast.Relay
	if cfg.Broadcast.RelayEnabled {
		relay = broadcast.NewRedisRelay(redisClient)
	}
	hub := broadcast.NewHub(broadcast.HubParams{Logger: logg, Relay: relay, RelayChannel: cfg.Broadcast.RelayChannel})
	defer hub.Close()

	eventRepo := events.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())
	limiter := ratelimit.NewMemoryLimiter(ratelimit.MemoryOptions{})
	defer limiter.Close()

	eventSvc, err := events.NewService(events.ServiceParams{
		Repo:        eventRepo,
		Media:       mediaRepo,
		Store:       store,
		Quota:       ledger,
		Broadcaster: hub,
		Limiter:     limiter,
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create event service", err)
		os.Exit(1)
	}
	mediaSvc, err := media.NewService(media.ServiceParams{
		Repo:        mediaRepo,
		Events:      eventRepo,
		Store:       store,
		Quota:       ledger,
		Queue:       rejectingQueue{},
		Broadcaster: hub,
		Limiter:     limiter,
		JWT:         cfg.JWT,
		Media:       cfg.Media,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create media service", err)
		os.Exit(1)
	}

	// A processing row younger than a few transcode timeouts may still belong to a live task.
	abandonedAfter := cfg.Cron.AbandonedAfter
	if floor := 3 * cfg.Transcode.Timeout; abandonedAfter < floor {
		abandonedAfter = floor
	}
	failedMedia, err := cron.NewFailedMediaCleanupJob(cron.FailedMediaCleanupJobParams{
		Logger:         logg,
		Repo:           mediaRepo,
		Media:          mediaSvc,
		Retention:      cfg.Cron.FailedMediaRetention,
		AbandonedAfter: abandonedAfter,
		BatchSize:      cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create failed media job", err)
		os.Exit(1)
	}
	expiredEvents, err := cron.NewExpiredEventCleanupJob(cron.ExpiredEventCleanupJobParams{
		Logger:    logg,
		Repo:      eventRepo,
		Events:    eventSvc,
		Grace:     cfg.Cron.ExpiredEventGrace,
		BatchSize: cfg.Cron.BatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create expired event job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, cron.LockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry, err := cron.NewRegistry(failedMedia, expiredEvents).Only(*only)
	if err != nil {
		logg.Error(context.Background(), "invalid job filter", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:     logg,
		Registry:   registry,
		Lock:       lock,
		Metrics:    metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval:   cfg.Cron.Interval,
		JobTimeout: cfg.Cron.JobTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"jobs":        registry.Names(),
	})

	if *once {
		if err := service.RunOnce(ctx); err != nil {
			logg.Error(ctx, "cron cycle failed", err)
			os.Exit(1)
		}
		return
	}

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}
