// Package worker runs the main claim/execute/release loop: one process,
// pulling due schedule rows, executing checks concurrently, and reporting
// its own liveness and accepting remote commands over pub/sub.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/clusterstate"
	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/heartbeat"
	"github.com/sentrymon/monitor-core/internal/pubsub"
	"github.com/sentrymon/monitor-core/internal/repository"
)

// Config holds the worker's tunables, sourced from WORKER_* env vars.
type Config struct {
	WorkerID              string
	BatchSize             int
	PollInterval          time.Duration
	HeartbeatInterval     time.Duration
	StaleClaimAge         time.Duration
	ShutdownDrainTimeout  time.Duration
}

// Loop is the top-level worker process state: worker id, running,
// shutting down, in-flight count, checks processed, and last check time.
type Loop struct {
	cfg Config

	scheduleStore repository.ScheduleStore
	monitorRepo   repository.MonitorRepository
	heartbeatStore repository.HeartbeatStore
	executor      *checks.Executor
	processor     *heartbeat.Processor
	transport     pubsub.Transport
	liveness      *clusterstate.Cache
	logger        *slog.Logger

	running       atomic.Bool
	shuttingDown  atomic.Bool
	inFlight      atomic.Int64
	checksProcessed atomic.Int64
	mu            sync.RWMutex
	lastCheckAt   time.Time

	wg sync.WaitGroup
}

func New(cfg Config, scheduleStore repository.ScheduleStore, monitorRepo repository.MonitorRepository, heartbeatStore repository.HeartbeatStore, executor *checks.Executor, processor *heartbeat.Processor, transport pubsub.Transport, liveness *clusterstate.Cache, logger *slog.Logger) *Loop {
	if cfg.WorkerID == "" {
		cfg.WorkerID = fmt.Sprintf("worker-%s", uuid.NewString()[:8])
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.StaleClaimAge <= 0 {
		cfg.StaleClaimAge = 2 * time.Minute
	}
	if cfg.ShutdownDrainTimeout <= 0 {
		cfg.ShutdownDrainTimeout = 30 * time.Second
	}

	return &Loop{
		cfg:            cfg,
		scheduleStore:  scheduleStore,
		monitorRepo:    monitorRepo,
		heartbeatStore: heartbeatStore,
		executor:       executor,
		processor:      processor,
		transport:      transport,
		liveness:       liveness,
		logger:         logger.With("component", "worker_loop", "worker_id", cfg.WorkerID),
	}
}

func (l *Loop) ID() string { return l.cfg.WorkerID }

// Run starts every background loop and blocks until ctx is cancelled, then
// drains in-flight work before returning.
func (l *Loop) Run(ctx context.Context) error {
	monitors, err := l.monitorRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active monitors: %w", err)
	}
	if err := l.scheduleStore.SyncAllMonitors(ctx, monitors); err != nil {
		return fmt.Errorf("sync schedule rows: %w", err)
	}

	l.running.Store(true)
	l.logger.Info("worker starting", "batch_size", l.cfg.BatchSize, "poll_interval", l.cfg.PollInterval)

	loopCtx, cancel := context.WithCancel(ctx)

	l.wg.Add(4)
	go l.pollLoop(loopCtx)
	go l.heartbeatLoop(loopCtx)
	go l.staleCleanupLoop(loopCtx)
	go l.commandLoop(loopCtx)

	<-ctx.Done()
	l.shuttingDown.Store(true)
	cancel()

	l.drain()
	l.publishLiveness(context.Background(), domain.WorkerStopped)
	if l.liveness != nil {
		_ = l.liveness.Remove(context.Background(), l.cfg.WorkerID)
	}
	if l.transport != nil {
		_ = l.transport.Close()
	}
	l.running.Store(false)
	l.logger.Info("worker stopped")
	return nil
}

func (l *Loop) drain() {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(l.cfg.ShutdownDrainTimeout):
		l.logger.Warn("shutdown drain timed out, abandoning in-flight checks",
			"in_flight", l.inFlight.Load())
	}
}

func (l *Loop) pollLoop(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if l.shuttingDown.Load() {
				continue
			}
			l.pollOnce(ctx)
		}
	}
}

func (l *Loop) pollOnce(ctx context.Context) {
	rows, err := l.scheduleStore.Claim(ctx, l.cfg.WorkerID, l.cfg.BatchSize)
	if err != nil {
		l.logger.Error("claim failed", "error", err)
		return
	}
	if len(rows) == 0 {
		return
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.MonitorID
	}
	monitors, err := l.monitorRepo.GetByIDs(ctx, ids)
	if err != nil {
		l.logger.Error("hydrate monitors failed", "error", err)
		for _, row := range rows {
			l.releaseWithDefaults(ctx, row)
		}
		return
	}

	var wg sync.WaitGroup
	for _, row := range rows {
		monitor, ok := monitors[row.MonitorID]
		if !ok {
			l.logger.Warn("claimed row has no matching monitor, releasing", "monitor_id", row.MonitorID)
			l.releaseWithDefaults(ctx, row)
			continue
		}
		wg.Add(1)
		go func(row *domain.ScheduleRow, monitor *domain.Monitor) {
			defer wg.Done()
			l.processMonitor(ctx, row, monitor)
		}(row, monitor)
	}
	wg.Wait()
}

// processMonitor runs one claimed row through execute/release end to end.
func (l *Loop) processMonitor(ctx context.Context, row *domain.ScheduleRow, monitor *domain.Monitor) {
	l.inFlight.Add(1)
	defer l.inFlight.Add(-1)

	previous, err := l.heartbeatStore.Latest(ctx, monitor.ID)
	if err != nil {
		l.logger.Error("fetch previous heartbeat failed", "monitor_id", monitor.ID, "error", err)
		l.releaseWithDefaults(ctx, row)
		return
	}
	retries := 0
	if previous != nil {
		retries = previous.Retries
	}

	result := l.executor.Execute(ctx, monitor, previous, retries)

	if _, err := l.processor.Process(ctx, monitor, result); err != nil {
		l.logger.Error("process heartbeat failed", "monitor_id", monitor.ID, "error", err)
		l.releaseWithDefaults(ctx, row)
		return
	}

	err = l.scheduleStore.Release(ctx, row.ID, l.cfg.WorkerID, result.NextIntervalSeconds,
		result.Heartbeat.Status, result.Heartbeat.Ping, result.Heartbeat.Status != domain.StatusUp)
	if err != nil {
		l.logger.Error("release failed", "schedule_id", row.ID, "error", err)
	}

	l.checksProcessed.Add(1)
	l.mu.Lock()
	l.lastCheckAt = time.Now()
	l.mu.Unlock()
}

// releaseWithDefaults is the step-7 fallback: on any failure before release,
// release the row anyway so it doesn't stay claimed forever.
func (l *Loop) releaseWithDefaults(ctx context.Context, row *domain.ScheduleRow) {
	interval := row.NextCheckAt.Sub(time.Now())
	if interval <= 0 {
		interval = time.Minute
	}
	if err := l.scheduleStore.Release(ctx, row.ID, l.cfg.WorkerID, int(interval.Seconds()), domain.StatusDown, nil, true); err != nil {
		l.logger.Error("fallback release failed", "schedule_id", row.ID, "error", err)
	}
}

func (l *Loop) heartbeatLoop(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(l.cfg.HeartbeatInterval)
	defer ticker.Stop()

	l.publishLiveness(ctx, domain.WorkerRunning)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			state := domain.WorkerRunning
			if l.shuttingDown.Load() {
				state = domain.WorkerStopping
			}
			l.publishLiveness(ctx, state)
		}
	}
}

func (l *Loop) publishLiveness(ctx context.Context, state domain.WorkerState) {
	l.mu.RLock()
	lastCheck := l.lastCheckAt
	l.mu.RUnlock()

	liveness := domain.WorkerLiveness{
		WorkerID:        l.cfg.WorkerID,
		State:           state,
		ChecksProcessed: l.checksProcessed.Load(),
		LastCheckAt:     lastCheck,
	}

	if l.liveness != nil {
		if err := l.liveness.Record(ctx, liveness); err != nil {
			l.logger.Warn("record liveness failed", "error", err)
		}
	}
	if l.transport != nil {
		ev := domain.Event{TenantID: "*", MonitorID: "*", Payload: liveness, Timestamp: time.Now()}
		if err := l.transport.Publish(ctx, domain.ChannelWorkerHeartbeat, ev); err != nil {
			l.logger.Warn("publish worker heartbeat failed", "error", err)
		}
	}
}

func (l *Loop) staleCleanupLoop(ctx context.Context) {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.scheduleStore.ReleaseStale(ctx, l.cfg.StaleClaimAge)
			if err != nil {
				l.logger.Error("stale cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				l.logger.Info("released stale claims", "count", n)
			}
		}
	}
}

// Status is a point-in-time snapshot for the health/status endpoint.
type Status struct {
	WorkerID        string    `json:"workerId"`
	Running         bool      `json:"running"`
	ShuttingDown    bool      `json:"shuttingDown"`
	InFlight        int64     `json:"inFlight"`
	ChecksProcessed int64     `json:"checksProcessed"`
	LastCheckAt     time.Time `json:"lastCheckAt,omitempty"`
	PubsubAvailable bool      `json:"pubsubAvailable"`
}

func (l *Loop) Snapshot() Status {
	l.mu.RLock()
	lastCheck := l.lastCheckAt
	l.mu.RUnlock()

	healthy := l.transport == nil
	if l.transport != nil {
		healthy = l.transport.Healthy()
	}

	return Status{
		WorkerID:        l.cfg.WorkerID,
		Running:         l.running.Load(),
		ShuttingDown:    l.shuttingDown.Load(),
		InFlight:        l.inFlight.Load(),
		ChecksProcessed: l.checksProcessed.Load(),
		LastCheckAt:     lastCheck,
		PubsubAvailable: healthy,
	}
}
