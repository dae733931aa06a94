// Package pubsub is a thin publish/subscribe abstraction over whatever
// broker is configured, with a no-op fallback so the scheduling and
// check-execution path never depends on a broker being reachable.
package pubsub

import (
	"context"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// Handler processes one delivered event. It has no error return: NATS core
// delivery here is at-most-once, best-effort rather than a durable queue,
// so there is nothing to nack.
type Handler func(ctx context.Context, ev domain.Event)

// Transport publishes and subscribes to named channels. Subscriptions are
// not durable: an event published while no subscriber is connected is not
// redelivered. Publish never blocks on subscriber processing.
type Transport interface {
	Publish(ctx context.Context, channel string, ev domain.Event) error
	Subscribe(ctx context.Context, channel string, h Handler) error
	Healthy() bool
	Close() error
}
