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

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentrymon/monitor-core/config"
	adminhttp "github.com/sentrymon/monitor-core/internal/admin/http"
	"github.com/sentrymon/monitor-core/internal/admin/http/handler"
	ctxlog "github.com/sentrymon/monitor-core/internal/log"
	"github.com/sentrymon/monitor-core/internal/metrics"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/relay"
	"github.com/sentrymon/monitor-core/internal/uptime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transport := newTransport(cfg.BrokerURL, logger)
	defer transport.Close()

	calc := uptime.NewCalculator()
	hub := relay.NewHub(logger)
	service := relay.NewService(transport, hub, calc, nil, logger)
	if err := service.Start(ctx); err != nil {
		log.Fatalf("relay subscribe: %v", err)
	}

	commandHandler := handler.NewCommandHandler(transport, logger)
	router := adminhttp.NewRouter(logger, commandHandler, cfg.JWKSURL, []byte(cfg.JWTSecret))
	router.GET("/ws/:tenantId/:userId", func(c *gin.Context) {
		room := relay.Room(c.Param("tenantId"), c.Param("userId"))
		if err := hub.ServeWS(c.Writer, c.Request, room); err != nil {
			logger.Warn("websocket upgrade failed", "room", room, "error", err)
		}
	})

	metrics.Register(prometheus.DefaultRegisterer)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	metricsSrv := metrics.NewServer(":" + cfg.MetricsPort)

	go func() {
		logger.Info("relay server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("relay server", "error", err)
		}
	}()
	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("relay server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
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
