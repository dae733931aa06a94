package pubsub

import (
	"context"
	"log/slog"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// NoopTransport discards every publish and accepts every subscribe without
// ever invoking the handler. Used when no broker URL is configured (spec
// §4.a: "the core keeps scheduling and executing checks even with no
// transport configured — only the relay fan-out degrades").
type NoopTransport struct {
	logger *slog.Logger
}

func NewNoopTransport(logger *slog.Logger) *NoopTransport {
	return &NoopTransport{logger: logger}
}

func (t *NoopTransport) Publish(_ context.Context, channel string, _ domain.Event) error {
	t.logger.Debug("pubsub disabled, dropping publish", "channel", channel)
	return nil
}

func (t *NoopTransport) Subscribe(_ context.Context, channel string, _ Handler) error {
	t.logger.Debug("pubsub disabled, subscribe is a no-op", "channel", channel)
	return nil
}

func (t *NoopTransport) Healthy() bool { return true }

func (t *NoopTransport) Close() error { return nil }
