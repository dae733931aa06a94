package worker

import (
	"context"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// commandLoop subscribes to worker.command and dispatches each payload.
// Every worker process in the fleet receives every command; handlers are
// idempotent so fan-out delivery is safe.
func (l *Loop) commandLoop(ctx context.Context) {
	defer l.wg.Done()

	if l.transport == nil {
		return
	}

	err := l.transport.Subscribe(ctx, domain.ChannelWorkerCommand, func(ctx context.Context, ev domain.Event) {
		payload, ok := ev.Payload.(map[string]any)
		if !ok {
			l.logger.Warn("dropping malformed command payload")
			return
		}
		cmd, _ := payload["command"].(string)
		monitorID, _ := payload["monitorId"].(string)
		l.handleCommand(ctx, domain.CommandType(cmd), monitorID)
	})
	if err != nil {
		l.logger.Error("subscribe to worker.command failed", "error", err)
		return
	}
	<-ctx.Done()
}

func (l *Loop) handleCommand(ctx context.Context, cmd domain.CommandType, monitorID string) {
	l.logger.Info("received command", "command", cmd, "monitor_id", monitorID)

	switch cmd {
	case domain.CommandShutdown:
		l.shuttingDown.Store(true)
	case domain.CommandCheckNow:
		if err := l.scheduleStore.Activate(ctx, monitorID, 0); err != nil {
			l.logger.Error("check-now command failed", "monitor_id", monitorID, "error", err)
		}
	case domain.CommandStartMonitor, domain.CommandRestartMonitor:
		monitor, err := l.monitorRepo.GetByID(ctx, monitorID)
		if err != nil {
			l.logger.Error("start/restart command: load monitor failed", "monitor_id", monitorID, "error", err)
			return
		}
		if err := l.scheduleStore.Activate(ctx, monitorID, monitor.IntervalSeconds); err != nil {
			l.logger.Error("start/restart command failed", "monitor_id", monitorID, "error", err)
		}
	case domain.CommandStopMonitor:
		if err := l.scheduleStore.Deactivate(ctx, monitorID); err != nil {
			l.logger.Error("stop command failed", "monitor_id", monitorID, "error", err)
		}
	default:
		l.logger.Warn("unknown command", "command", cmd)
	}
}
