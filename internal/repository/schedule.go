// Package repository defines the storage-layer interfaces the worker loop,
// heartbeat processor, and admin API depend on. Concrete implementations
// live under internal/infrastructure.
package repository

import (
	"context"
	"time"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// ScheduleStore is the single mutator of domain.ScheduleRow.
type ScheduleStore interface {
	// Initialize is an idempotent upsert: creates a row with
	// NextCheckAt = now if none exists, else updates tenant/active.
	Initialize(ctx context.Context, monitorID, tenantID string, intervalSeconds int, active bool) error

	// Claim atomically returns up to batchSize due rows ordered by
	// NextCheckAt ascending (ties by id), marking them claimed by workerID.
	// The monitor itself is owned by the external management layer; callers
	// hydrate it separately via MonitorRepository.
	Claim(ctx context.Context, workerID string, batchSize int) ([]*domain.ScheduleRow, error)

	// Release clears the claim, advances NextCheckAt by nextIntervalSeconds,
	// records the outcome, and increments or resets ConsecutiveFailures.
	Release(ctx context.Context, rowID, workerID string, nextIntervalSeconds int, status domain.Status, ping *float64, wasFailure bool) error

	// ScheduleRetry keeps the claim (for PENDING retries) and advances
	// NextCheckAt by retryIntervalSeconds, incrementing RetryCount.
	ScheduleRetry(ctx context.Context, rowID, workerID string, retryIntervalSeconds int) error

	// ReleaseStale unconditionally clears claimed_by/claimed_at for rows
	// whose claim is older than olderThan; returns the count released.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int, error)

	Activate(ctx context.Context, monitorID string, intervalSeconds int) error
	Deactivate(ctx context.Context, monitorID string) error
	Delete(ctx context.Context, monitorID string) error

	Stats(ctx context.Context, tenantID string) (domain.ScheduleStats, error)

	// SyncAllMonitors ensures every active monitor known to the management
	// layer has a schedule row; called once on startup.
	SyncAllMonitors(ctx context.Context, monitors []*domain.Monitor) error
}
