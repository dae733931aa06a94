package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/sentrymon/monitor-core/config"
	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/checks/handlers"
	"github.com/sentrymon/monitor-core/internal/clusterstate"
	"github.com/sentrymon/monitor-core/internal/health"
	"github.com/sentrymon/monitor-core/internal/heartbeat"
	"github.com/sentrymon/monitor-core/internal/infrastructure/postgres"
	ctxlog "github.com/sentrymon/monitor-core/internal/log"
	"github.com/sentrymon/monitor-core/internal/maintenance"
	"github.com/sentrymon/monitor-core/internal/metrics"
	"github.com/sentrymon/monitor-core/internal/notify"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/uptime"
	"github.com/sentrymon/monitor-core/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()
	logger.Info("db connected")

	transport := newTransport(cfg.BrokerURL, logger)
	defer transport.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis url: %v", err)
		}
		redisClient = redis.NewClient(opts)
	}
	liveness := clusterstate.NewCache(redisClient, cfg.HeartbeatInterval())

	monitorRepo := postgres.NewMonitorRepository(pool)
	scheduleRepo := postgres.NewScheduleRepository(pool, logger)
	heartbeatRepo := postgres.NewHeartbeatRepository(pool)

	registry := checks.NewRegistry()
	handlers.RegisterAll(registry)
	maintenanceStore := maintenance.NewStore()
	executor := checks.NewExecutor(registry, maintenanceStore)

	notifier := notify.New(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, cfg.NotifyTo, logger)
	calc := uptime.NewCalculator()
	processor := heartbeat.NewProcessor(heartbeatRepo, calc, transport, notifier, logger)

	loop := worker.New(worker.Config{
		WorkerID:             cfg.WorkerID,
		BatchSize:            cfg.WorkerBatchSize,
		PollInterval:         cfg.PollInterval(),
		HeartbeatInterval:    cfg.HeartbeatInterval(),
		StaleClaimAge:        cfg.StaleClaimAge(),
		ShutdownDrainTimeout: cfg.ShutdownDrainTimeout(),
	}, scheduleRepo, monitorRepo, heartbeatRepo, executor, processor, transport, liveness, logger)

	metrics.Register(prometheus.DefaultRegisterer)
	metrics.WorkerStartTime.Set(float64(time.Now().Unix()))

	checker := health.NewChecker(func() any { return loop.Snapshot() })
	healthSrv := &http.Server{Addr: ":" + cfg.WorkerHealthPort, Handler: checker.Mux()}
	go func() {
		logger.Info("health server started", "port", cfg.WorkerHealthPort)
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server", "error", err)
		}
	}()

	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	if err := loop.Run(ctx); err != nil {
		logger.Error("worker loop exited with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)

	logger.Info("worker process shut down")
}

func newTransport(brokerURL string, logger *slog.Logger) pubsub.Transport {
	if brokerURL == "" {
		logger.Info("no broker url configured, using no-op transport")
		return pubsub.NewNoopTransport(logger)
	}
	t, err := pubsub.NewNATSTransport(brokerURL, logger)
	if err != nil {
		logger.Warn("nats connect failed, falling back to no-op transport", "error", err)
		return pubsub.NewNoopTransport(logger)
	}
	return t
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
