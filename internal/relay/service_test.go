package relay_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/relay"
	"github.com/sentrymon/monitor-core/internal/uptime"
)

type fakeTransport struct {
	handlers map[string]pubsub.Handler
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{handlers: make(map[string]pubsub.Handler)}
}

func (t *fakeTransport) Publish(context.Context, string, domain.Event) error { return nil }
func (t *fakeTransport) Subscribe(_ context.Context, channel string, h pubsub.Handler) error {
	t.handlers[channel] = h
	return nil
}
func (t *fakeTransport) Healthy() bool { return true }
func (t *fakeTransport) Close() error  { return nil }

type fakeCache struct {
	invalidated []string
}

func (c *fakeCache) Invalidate(tenantID, monitorID string) {
	c.invalidated = append(c.invalidated, tenantID+":"+monitorID)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceInvalidatesUptimeWindowOnHeartbeat(t *testing.T) {
	transport := newFakeTransport()
	calc := uptime.NewCalculator()
	cache := &fakeCache{}
	hub := relay.NewHub(discardLogger())
	svc := relay.NewService(transport, hub, calc, cache, discardLogger())

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}

	calc.Update("m1", time.Now(), true, nil)
	if calc.Uptime24h("m1") != 1.0 {
		t.Fatal("expected a populated window before the event arrives")
	}

	transport.handlers[domain.ChannelHeartbeat](context.Background(), domain.Event{
		TenantID: "t1", UserID: "u1", MonitorID: "m1", Payload: "x",
	})

	if calc.Uptime24h("m1") != 0 {
		t.Fatal("expected the uptime window to be evicted after a heartbeat event")
	}
	if transport.handlers[domain.ChannelHeartbeat] == nil {
		t.Fatal("expected heartbeat handler to be registered")
	}
}

func TestServiceInvalidatesResponseCacheOnImportantBeat(t *testing.T) {
	transport := newFakeTransport()
	calc := uptime.NewCalculator()
	cache := &fakeCache{}
	hub := relay.NewHub(discardLogger())
	svc := relay.NewService(transport, hub, calc, cache, discardLogger())
	_ = svc.Start(context.Background())

	transport.handlers[domain.ChannelImportantHeartbeat](context.Background(), domain.Event{
		TenantID: "t1", UserID: "u1", MonitorID: "m1", Payload: "x",
	})

	if len(cache.invalidated) != 1 || cache.invalidated[0] != "t1:m1" {
		t.Fatalf("expected cache invalidation for t1:m1, got %v", cache.invalidated)
	}
	if svc.Counters.ImportantHeartbeats.Load() != 1 {
		t.Fatalf("expected important heartbeat counter to be 1, got %d", svc.Counters.ImportantHeartbeats.Load())
	}
}

func TestServiceDropsMalformedEvent(t *testing.T) {
	transport := newFakeTransport()
	calc := uptime.NewCalculator()
	hub := relay.NewHub(discardLogger())
	svc := relay.NewService(transport, hub, calc, nil, discardLogger())
	_ = svc.Start(context.Background())

	transport.handlers[domain.ChannelHeartbeat](context.Background(), domain.Event{})

	if svc.Counters.Errors.Load() != 1 {
		t.Fatalf("expected 1 error counted for malformed event, got %d", svc.Counters.Errors.Load())
	}
	if svc.Counters.Heartbeats.Load() != 0 {
		t.Fatal("malformed event must not increment the success counter")
	}
}
