// Package heartbeat implements the post-check pipeline: persist the
// executed check, fold it into the uptime window, publish it, and fire a
// notification when the result warrants one.
package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/notify"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/repository"
	"github.com/sentrymon/monitor-core/internal/uptime"
)

// Processor runs the post-check pipeline given one executor result per call.
type Processor struct {
	store     repository.HeartbeatStore
	calc      *uptime.Calculator
	transport pubsub.Transport
	notifier  notify.Notifier
	logger    *slog.Logger
}

func NewProcessor(store repository.HeartbeatStore, calc *uptime.Calculator, transport pubsub.Transport, notifier notify.Notifier, logger *slog.Logger) *Processor {
	return &Processor{
		store:     store,
		calc:      calc,
		transport: transport,
		notifier:  notifier,
		logger:    logger.With("component", "heartbeat_processor"),
	}
}

// Process stores result.Heartbeat, updates the uptime window, publishes
// the applicable events, and dispatches a notification if the result
// warrants one. Notification and publish failures are logged, never
// returned — a broken downstream must not stall the worker loop.
func (p *Processor) Process(ctx context.Context, monitor *domain.Monitor, result checks.Result) (*domain.Heartbeat, error) {
	hb := result.Heartbeat

	if result.ShouldNotify || result.ShouldResendNotification {
		notify.Dispatch(ctx, p.notifier, p.logger, monitor.TenantID, monitor.ID, hb)
	}

	up := hb.Status == domain.StatusUp
	countedStatus := hb.Status == domain.StatusUp || hb.Status == domain.StatusDown
	if countedStatus {
		hb.EndTime = p.calc.Update(monitor.ID, hb.Time, up, hb.Ping)
	}

	stored, err := p.store.Append(ctx, hb)
	if err != nil {
		return nil, err
	}

	p.publish(ctx, monitor, stored, result)

	if result.ShouldResendNotification {
		if err := p.store.ResetDownCount(ctx, stored.ID); err != nil {
			p.logger.Warn("reset down count failed", "heartbeat_id", stored.ID, "error", err)
		}
	}

	return stored, nil
}

func (p *Processor) publish(ctx context.Context, monitor *domain.Monitor, hb *domain.Heartbeat, result checks.Result) {
	if p.transport == nil {
		return
	}

	beatPayload := domain.HeartbeatPayload{
		Status:    hb.Status,
		Msg:       hb.Msg,
		Ping:      hb.Ping,
		Important: hb.Important,
		Time:      hb.Time,
		DownCount: hb.DownCount,
	}
	p.publishEvent(ctx, domain.ChannelHeartbeat, monitor, beatPayload)

	if hb.Important {
		p.publishEvent(ctx, domain.ChannelImportantHeartbeat, monitor, beatPayload)
	}

	stats := domain.MonitorStatsPayload{
		Uptime24h:       p.calc.Uptime24h(monitor.ID),
		Uptime30d:       p.calc.Uptime30d(monitor.ID),
		AvgPingLastHour: p.calc.AvgPingLastHour(monitor.ID),
	}
	p.publishEvent(ctx, domain.ChannelMonitorStats, monitor, stats)

	if result.TLSInfo != nil {
		cert := domain.CertInfoPayload{
			Issuer:        result.TLSInfo.Issuer,
			ValidTo:       result.TLSInfo.ValidTo,
			DaysRemaining: result.TLSInfo.DaysRemaining,
		}
		p.publishEvent(ctx, domain.ChannelCertInfo, monitor, cert)
	}
}

func (p *Processor) publishEvent(ctx context.Context, channel string, monitor *domain.Monitor, payload any) {
	ev := domain.Event{
		TenantID:  monitor.TenantID,
		MonitorID: monitor.ID,
		UserID:    monitor.UserID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
	if err := p.transport.Publish(ctx, channel, ev); err != nil {
		p.logger.Warn("publish failed", "channel", channel, "monitor_id", monitor.ID, "error", err)
	}
}
