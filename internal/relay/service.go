package relay

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/uptime"
)

// ResponseCache is the external API response cache the relay invalidates
// on every important heartbeat; implemented outside the core.
type ResponseCache interface {
	Invalidate(tenantID, monitorID string)
}

// Counters tracks relay throughput and drop counts; no endpoint in this
// repository exposes them.
type Counters struct {
	Heartbeats         atomic.Int64
	ImportantHeartbeats atomic.Int64
	StatsUpdates       atomic.Int64
	CertInfoUpdates    atomic.Int64
	Errors             atomic.Int64
}

// Service subscribes to the worker-published channels and fans each event
// out to the websocket room scoped to its tenant/user.
type Service struct {
	transport pubsub.Transport
	hub       *Hub
	calc      *uptime.Calculator
	cache     ResponseCache
	logger    *slog.Logger
	Counters  Counters
}

func NewService(transport pubsub.Transport, hub *Hub, calc *uptime.Calculator, cache ResponseCache, logger *slog.Logger) *Service {
	return &Service{
		transport: transport,
		hub:       hub,
		calc:      calc,
		cache:     cache,
		logger:    logger.With("component", "relay_service"),
	}
}

// Start subscribes to every channel the relay fans out.
func (s *Service) Start(ctx context.Context) error {
	subscriptions := []struct {
		channel string
		counter *atomic.Int64
	}{
		{domain.ChannelHeartbeat, &s.Counters.Heartbeats},
		{domain.ChannelImportantHeartbeat, &s.Counters.ImportantHeartbeats},
		{domain.ChannelMonitorStats, &s.Counters.StatsUpdates},
		{domain.ChannelCertInfo, &s.Counters.CertInfoUpdates},
	}

	for _, sub := range subscriptions {
		channel, counter := sub.channel, sub.counter
		err := s.transport.Subscribe(ctx, channel, func(ctx context.Context, ev domain.Event) {
			s.handle(channel, ev, counter)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handle(channel string, ev domain.Event, counter *atomic.Int64) {
	if !ev.Valid() {
		s.Counters.Errors.Add(1)
		s.logger.Warn("dropping malformed event", "channel", channel)
		return
	}
	counter.Add(1)

	// Every heartbeat invalidates the process-local uptime window so the
	// next stats query re-reads fresh data.
	if channel == domain.ChannelHeartbeat || channel == domain.ChannelImportantHeartbeat {
		s.calc.Remove(ev.MonitorID)
	}

	if channel == domain.ChannelImportantHeartbeat && s.cache != nil {
		s.cache.Invalidate(ev.TenantID, ev.MonitorID)
	}

	room := Room(ev.TenantID, ev.UserID)
	s.hub.Broadcast(room, map[string]any{
		"channel": channel,
		"event":   ev,
	})
}
