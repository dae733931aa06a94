package pubsub_test

import (
	"context"
	"log/slog"
	"io"
	"testing"

	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/pubsub"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNoopTransportPublishNeverFails(t *testing.T) {
	tr := pubsub.NewNoopTransport(discardLogger())
	ev := domain.Event{TenantID: "t1", MonitorID: "m1", Payload: "x"}
	if err := tr.Publish(context.Background(), domain.ChannelHeartbeat, ev); err != nil {
		t.Fatalf("publish should never fail on a disabled transport: %v", err)
	}
}

func TestNoopTransportSubscribeNeverInvokesHandler(t *testing.T) {
	tr := pubsub.NewNoopTransport(discardLogger())
	called := false
	err := tr.Subscribe(context.Background(), domain.ChannelHeartbeat, func(context.Context, domain.Event) {
		called = true
	})
	if err != nil {
		t.Fatalf("subscribe should never fail: %v", err)
	}
	if called {
		t.Fatal("handler must never fire on a disabled transport")
	}
}

func TestNoopTransportAlwaysHealthy(t *testing.T) {
	tr := pubsub.NewNoopTransport(discardLogger())
	if !tr.Healthy() {
		t.Fatal("disabled transport must report healthy so readiness doesn't depend on a broker")
	}
}
