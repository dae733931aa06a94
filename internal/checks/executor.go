package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// MaintenanceChecker answers whether monitorID currently falls inside an
// active maintenance window. Delegated so the executor stays stateless and
// agnostic to how windows are stored or computed.
type MaintenanceChecker interface {
	IsActive(ctx context.Context, monitorID string, now time.Time) bool
}

// Result is everything the heartbeat processor needs to act on one
// executed check.
type Result struct {
	Heartbeat                *domain.Heartbeat
	TLSInfo                  *domain.TLSInfo
	FirstBeat                bool
	Important                bool
	ShouldNotify             bool
	ShouldResendNotification bool
	NextIntervalSeconds      int
	Retries                  int
}

// Executor runs one check attempt per call. It holds no per-monitor state:
// every input it needs (the previous beat, the retry counter) is passed in,
// so any worker can call it for any monitor at any time.
type Executor struct {
	registry    *Registry
	maintenance MaintenanceChecker
}

func NewExecutor(registry *Registry, maintenance MaintenanceChecker) *Executor {
	return &Executor{registry: registry, maintenance: maintenance}
}

// Execute implements the check algorithm: skeleton, effective timeout,
// maintenance short-circuit, dispatch, upside-down flip, retry
// classification, important/resend bookkeeping, next-interval selection.
func (e *Executor) Execute(ctx context.Context, monitor *domain.Monitor, previous *domain.Heartbeat, retries int) Result {
	now := time.Now()
	start := now

	firstBeat := previous == nil
	prevDownCount := 0
	var prevStatus *domain.Status
	if previous != nil {
		prevDownCount = previous.DownCount
		s := previous.Status
		prevStatus = &s
	}

	hb := &domain.Heartbeat{
		MonitorID: monitor.ID,
		TenantID:  monitor.TenantID,
		Time:      now,
		Status:    domain.StatusDown,
		DownCount: prevDownCount,
		Retries:   retries,
	}

	timeout := time.Duration(monitor.EffectiveTimeoutSeconds() * float64(time.Second))

	if e.maintenance != nil && e.maintenance.IsActive(ctx, monitor.ID, now) {
		hb.Status = domain.StatusMaintenance
		hb.Msg = "in maintenance window"
	} else {
		view := domain.NewView(monitor)
		contract, ok := e.registry.Lookup(monitor.Type)
		if !ok {
			hb.Status = domain.StatusDown
			hb.Msg = domain.ErrUnknownCheckType.Error()
		} else {
			checkCtx, cancel := context.WithTimeout(ctx, timeout)
			err := contract.Check(checkCtx, view, hb, timeout)
			cancel()

			if err != nil {
				hb.Status = domain.StatusDown
				if errors.Is(err, context.DeadlineExceeded) || errors.Is(checkCtx.Err(), context.DeadlineExceeded) {
					hb.Msg = fmt.Sprintf("timeout (%gs)", timeout.Seconds())
				} else {
					hb.Msg = err.Error()
				}
			} else if !contract.AllowCustomStatus && hb.Status != domain.StatusUp {
				// Contract violation: a handler without AllowCustomStatus must
				// either set UP or return an error — never anything else.
				hb.Status = domain.StatusUp
			}
		}
	}

	// Upside-down flip: invert the computed reachability outcome, not the
	// skeleton — a reachable upside-down target alerts DOWN, an unreachable
	// one reports UP. Maintenance is never inverted.
	if monitor.UpsideDown && hb.Status != domain.StatusMaintenance {
		switch hb.Status {
		case domain.StatusUp:
			hb.Status = domain.StatusDown
		case domain.StatusDown:
			hb.Status = domain.StatusUp
		}
	}

	// Retry decision: any UP beat (including an upside-down monitor's
	// flipped UP) resets retries; otherwise retries accumulate toward
	// MaxRetries before the status is allowed to go final.
	switch {
	case hb.Status == domain.StatusUp:
		hb.Retries = 0
	case hb.Status != domain.StatusUp && hb.Status != domain.StatusMaintenance && retries < monitor.MaxRetries:
		hb.Retries = retries + 1
		hb.Status = domain.StatusPending
	case hb.Status != domain.StatusUp && hb.Status != domain.StatusMaintenance:
		hb.Retries = retries + 1
	}

	important := firstBeat || prevStatus == nil || *prevStatus != hb.Status
	hb.Important = important

	// Down-count bookkeeping: only increments on repeated, non-important
	// down beats, and resets whenever the status changes.
	if !important && hb.Status == domain.StatusDown && monitor.ResendInterval > 0 {
		hb.DownCount++
	} else if important {
		hb.DownCount = 0
	}

	nextInterval := monitor.IntervalSeconds
	if hb.Status == domain.StatusPending && monitor.RetryIntervalSeconds > 0 {
		nextInterval = monitor.RetryIntervalSeconds
	}

	if hb.Ping == nil {
		elapsed := float64(time.Since(start).Milliseconds())
		hb.Ping = &elapsed
	}

	shouldNotify := important && notificationPolicy(firstBeat, prevStatus, hb.Status)
	shouldResend := !important && hb.Status == domain.StatusDown &&
		monitor.ResendInterval > 0 && hb.DownCount >= monitor.ResendInterval

	return Result{
		Heartbeat:                hb,
		TLSInfo:                  hb.TLSInfo,
		FirstBeat:                firstBeat,
		Important:                important,
		ShouldNotify:             shouldNotify,
		ShouldResendNotification: shouldResend,
		NextIntervalSeconds:      nextInterval,
		Retries:                  hb.Retries,
	}
}

// notificationPolicy suppresses alerts around maintenance-window edges: a
// transition into or out of MAINTENANCE is not itself a notifiable event.
func notificationPolicy(_ bool, prevStatus *domain.Status, newStatus domain.Status) bool {
	if newStatus == domain.StatusMaintenance {
		return false
	}
	if prevStatus != nil && *prevStatus == domain.StatusMaintenance {
		return false
	}
	return true
}
