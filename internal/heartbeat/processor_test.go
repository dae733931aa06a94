package heartbeat_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/heartbeat"
	"github.com/sentrymon/monitor-core/internal/notify"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/uptime"
)

type fakeHeartbeatStore struct {
	appended []*domain.Heartbeat
	nextID   int64
	resets   []int64
}

func (f *fakeHeartbeatStore) Append(_ context.Context, h *domain.Heartbeat) (*domain.Heartbeat, error) {
	f.nextID++
	h.ID = f.nextID
	f.appended = append(f.appended, h)
	return h, nil
}

func (f *fakeHeartbeatStore) Latest(context.Context, string) (*domain.Heartbeat, error) { return nil, nil }
func (f *fakeHeartbeatStore) Recent(context.Context, string, int, bool) ([]*domain.Heartbeat, error) {
	return nil, nil
}
func (f *fakeHeartbeatStore) ResetDownCount(_ context.Context, id int64) error {
	f.resets = append(f.resets, id)
	return nil
}
func (f *fakeHeartbeatStore) DeleteOlderThan(context.Context, int) (int64, error) { return 0, nil }

type recordingTransport struct {
	published []string
}

func (t *recordingTransport) Publish(_ context.Context, channel string, _ domain.Event) error {
	t.published = append(t.published, channel)
	return nil
}
func (t *recordingTransport) Subscribe(context.Context, string, pubsub.Handler) error { return nil }
func (t *recordingTransport) Healthy() bool                                           { return true }
func (t *recordingTransport) Close() error                                            { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessAppendsAndPublishesOnImportantBeat(t *testing.T) {
	store := &fakeHeartbeatStore{}
	calc := uptime.NewCalculator()
	transport := &recordingTransport{}
	notifier := notify.NewLogNotifier(discardLogger())
	p := heartbeat.NewProcessor(store, calc, transport, notifier, discardLogger())

	monitor := &domain.Monitor{ID: "42", TenantID: "t1", UserID: "u1", IntervalSeconds: 60}
	ping := 10.0
	result := checks.Result{
		Heartbeat: &domain.Heartbeat{
			MonitorID: "42", TenantID: "t1", Time: time.Now(),
			Status: domain.StatusUp, Important: true, Ping: &ping,
		},
		Important:    true,
		ShouldNotify: true,
	}

	stored, err := p.Process(context.Background(), monitor, result)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if stored.ID == 0 {
		t.Fatal("expected append to assign an id")
	}
	if len(store.appended) != 1 {
		t.Fatalf("expected 1 appended heartbeat, got %d", len(store.appended))
	}

	wantChannels := map[string]bool{domain.ChannelHeartbeat: false, domain.ChannelImportantHeartbeat: false, domain.ChannelMonitorStats: false}
	for _, ch := range transport.published {
		wantChannels[ch] = true
	}
	for ch, seen := range wantChannels {
		if !seen {
			t.Errorf("expected publish on channel %q", ch)
		}
	}
}

func TestProcessResetsDownCountOnResend(t *testing.T) {
	store := &fakeHeartbeatStore{}
	calc := uptime.NewCalculator()
	transport := &recordingTransport{}
	notifier := notify.NewLogNotifier(discardLogger())
	p := heartbeat.NewProcessor(store, calc, transport, notifier, discardLogger())

	monitor := &domain.Monitor{ID: "42", TenantID: "t1", ResendInterval: 5}
	result := checks.Result{
		Heartbeat: &domain.Heartbeat{
			MonitorID: "42", TenantID: "t1", Time: time.Now(),
			Status: domain.StatusDown, Important: false, DownCount: 5,
		},
		ShouldResendNotification: true,
	}

	if _, err := p.Process(context.Background(), monitor, result); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.resets) != 1 {
		t.Fatalf("expected down count reset to be called once, got %d", len(store.resets))
	}
}

// Ordering invariant: append must happen before publish.
type orderTrackingStore struct {
	fakeHeartbeatStore
	order *[]string
}

func (s *orderTrackingStore) Append(ctx context.Context, h *domain.Heartbeat) (*domain.Heartbeat, error) {
	*s.order = append(*s.order, "append")
	return s.fakeHeartbeatStore.Append(ctx, h)
}

type orderTrackingTransport struct {
	recordingTransport
	order *[]string
}

func (t *orderTrackingTransport) Publish(ctx context.Context, channel string, ev domain.Event) error {
	*t.order = append(*t.order, "publish:"+channel)
	return t.recordingTransport.Publish(ctx, channel, ev)
}

func TestProcessAppendsBeforePublishing(t *testing.T) {
	var order []string
	store := &orderTrackingStore{order: &order}
	transport := &orderTrackingTransport{order: &order}
	calc := uptime.NewCalculator()
	notifier := notify.NewLogNotifier(discardLogger())
	p := heartbeat.NewProcessor(store, calc, transport, notifier, discardLogger())

	monitor := &domain.Monitor{ID: "42", TenantID: "t1"}
	result := checks.Result{
		Heartbeat: &domain.Heartbeat{MonitorID: "42", TenantID: "t1", Time: time.Now(), Status: domain.StatusUp},
	}

	if _, err := p.Process(context.Background(), monitor, result); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(order) == 0 || order[0] != "append" {
		t.Fatalf("expected append first, got order %v", order)
	}
}
