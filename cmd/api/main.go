package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/snapwall/snapwall-backend/api/controllers"
	"github.com/snapwall/snapwall-backend/api/routes"
	"github.com/snapwall/snapwall-backend/internal/broadcast"
	"github.com/snapwall/snapwall-backend/internal/events"
	"github.com/snapwall/snapwall-backend/internal/media"
	"github.com/snapwall/snapwall-backend/internal/quota"
	"github.com/snapwall/snapwall-backend/internal/ratelimit"
	"github.com/snapwall/snapwall-backend/internal/transcode"
	"github.com/snapwall/snapwall-backend/pkg/config"
	"github.com/snapwall/snapwall-backend/pkg/db"
	"github.com/snapwall/snapwall-backend/pkg/instance"
	"github.com/snapwall/snapwall-backend/pkg/logger"
	"github.com/snapwall/snapwall-backend/pkg/metrics"
	"github.com/snapwall/snapwall-backend/pkg/migrate"
	"github.com/snapwall/snapwall-backend/pkg/pubsub"
	"github.com/snapwall/snapwall-backend/pkg/redis"
	"github.com/snapwall/snapwall-backend/pkg/storage/s3"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Instance:    instance.ID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	readiness := []controllers.ReadinessCheck{{Name: "database", Ping: dbClient.Ping}}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Ping: redisClient.Ping})
	}

	store, err := s3.New(ctx, cfg.Storage, logg)
	if err != nil {
		return err
	}
	readiness = append(readiness, controllers.ReadinessCheck{Name: "object_store", Ping: store.Ping})

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pipelineMetrics := metrics.NewPipelineMetrics(registry)
	transcodeMetrics := metrics.NewTranscodeMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	ledger, err := quota.NewLedger(dbClient.DB(), cfg.Quota.DefaultLimitBytes)
	if err != nil {
		return err
	}

	var counter ratelimit.Counter
	if redisClient != nil {
		counter = redisClient
	}
	limiter := ratelimit.New(cfg.RateLimit, counter, logg)
	policies := ratelimit.PoliciesFromConfig(cfg.RateLimit)

	var relay broadcast.Relay
	if cfg.Broadcast.RelayEnabled && redisClient != nil {
		relay = broadcast.NewRedisRelay(redisClient)
	}
	hub := broadcast.NewHub(broadcast.HubParams{
		Logger:       logg,
		Metrics:      pipelineMetrics,
		Relay:        relay,
		RelayChannel: cfg.Broadcast.RelayChannel,
	})

	var sink broadcast.Sink
	if cfg.PubSub.Enabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return err
		}
		defer func() {
			if err := psClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing pubsub", err)
			}
		}()
		sink = psClient
	}
	mirror := broadcast.NewMirror(hub, sink, logg)

	eventRepo := events.NewRepository(dbClient.DB())
	mediaRepo := media.NewRepository(dbClient.DB())

	processor, err := transcode.NewProcessor(transcode.ProcessorParams{
		Media:       mediaRepo,
		Store:       store,
		Quota:       ledger,
		Transcoder:  transcode.NewFFmpegTranscoder(cfg.Transcode.Binary, cfg.Transcode.Timeout),
		Broadcaster: mirror,
		Options:     transcode.OptionsFromConfig(cfg.Transcode),
		Logger:      logg,
	})
	if err != nil {
		return err
	}
	queue, err := transcode.NewQueue(transcode.QueueParams{
		Concurrency: cfg.Transcode.Concurrency,
		Processor:   processor,
		Logger:      logg,
		Metrics:     transcodeMetrics,
	})
	if err != nil {
		return err
	}

	eventSvc, err := events.NewService(events.ServiceParams{
		Repo:        eventRepo,
		Media:       mediaRepo,
		Store:       store,
		Quota:       ledger,
		Broadcaster: mirror,
		Limiter:     limiter,
		Policies:    policies,
		JWT:         cfg.JWT,
		Password:    cfg.Password,
		Logger:      logg,
	})
	if err != nil {
		return err
	}
	mediaSvc, err := media.NewService(media.ServiceParams{
		Repo:        mediaRepo,
		Events:      eventRepo,
		Store:       store,
		Quota:       ledger,
		Queue:       queue,
		Broadcaster: mirror,
		Limiter:     limiter,
		Policies:    policies,
		JWT:         cfg.JWT,
		Media:       cfg.Media,
		Metrics:     pipelineMetrics,
		Logger:      logg,
	})
	if err != nil {
		return err
	}

	routerParams := routes.RouterParams{
		Config:       cfg,
		Logger:       logg,
		Gatherer:     registry,
		HTTPMetrics:  httpMetrics,
		Readiness:    readiness,
		Limiter:      limiter,
		Hub:          hub,
		EventService: eventSvc,
		MediaService: mediaSvc,
		Ledger:       ledger,
	}
	if redisClient != nil {
		routerParams.Idempotency = redisClient
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routerParams),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Tasks and the relay listener outlive individual requests but stop with the process.
	workCtx, cancelWork := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWork()
	queue.Start(workCtx)
	if mem, ok := limiter.(*ratelimit.MemoryLimiter); ok {
		mem.Start(workCtx)
		defer mem.Close()
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return hub.Run(workCtx)
	})
	group.Go(func() error {
		logg.Info(logg.WithFields(groupCtx, map[string]any{"env": cfg.App.Env, "addr": addr}), "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var shutdownErr error
		if err := server.Shutdown(shutdownCtx); err != nil {
			shutdownErr = err
		}
		if err := queue.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "transcode queue did not drain", err)
		}
		mirror.Wait()
		cancelWork()
		return shutdownErr
	})

	return group.Wait()
}
