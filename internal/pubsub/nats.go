package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// NATSTransport publishes heartbeat and worker-liveness events over NATS
// core subjects. Delivery is at-most-once by design: a missed event is
// recoverable from the next heartbeat, so durability overhead isn't worth
// paying for.
type NATSTransport struct {
	conn    *nats.Conn
	logger  *slog.Logger
	healthy atomic.Bool
}

const (
	reconnectBaseDelay = 100 * time.Millisecond
	reconnectCapDelay  = 3 * time.Second
	maxReconnectTries  = 10
)

// reconnectDelay computes a capped exponential backoff: 100ms, 200ms,
// 400ms, ... capped at 3s.
func reconnectDelay(attempts int) time.Duration {
	d := reconnectBaseDelay << attempts
	if d <= 0 || d > reconnectCapDelay {
		return reconnectCapDelay
	}
	return d
}

// NewNATSTransport dials url and registers reconnect/disconnect handlers
// that flip the health flag the readiness endpoint reports. Reconnection
// backs off exponentially and gives up (reporting unhealthy) after
// maxReconnectTries consecutive failures.
func NewNATSTransport(url string, logger *slog.Logger) (*NATSTransport, error) {
	t := &NATSTransport{logger: logger}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(maxReconnectTries),
		nats.CustomReconnectDelay(reconnectDelay),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			t.healthy.Store(false)
			logger.Warn("pubsub transport disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			t.healthy.Store(true)
			logger.Info("pubsub transport reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			t.healthy.Store(false)
			logger.Warn("pubsub transport gave up reconnecting, marking unhealthy")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to pubsub broker: %w", err)
	}
	t.conn = conn
	t.healthy.Store(true)
	return t, nil
}

func (t *NATSTransport) Publish(_ context.Context, channel string, ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}
	if err := t.conn.Publish(channel, data); err != nil {
		return fmt.Errorf("publish to %s: %w", channel, err)
	}
	return nil
}

func (t *NATSTransport) Subscribe(_ context.Context, channel string, h Handler) error {
	_, err := t.conn.Subscribe(channel, func(msg *nats.Msg) {
		var ev domain.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			t.logger.Warn("dropping malformed event", "channel", channel, "error", err)
			return
		}
		if !ev.Valid() {
			t.logger.Warn("dropping invalid event", "channel", channel)
			return
		}
		h(context.Background(), ev)
	})
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", channel, err)
	}
	return nil
}

func (t *NATSTransport) Healthy() bool {
	return t.healthy.Load() && t.conn.IsConnected()
}

func (t *NATSTransport) Close() error {
	t.conn.Drain()
	return nil
}
