package repository

import (
	"context"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// HeartbeatStore is the sole writer of domain.Heartbeat: append-only writes
// plus the read queries the processor and API need. Reads never block
// writes.
type HeartbeatStore interface {
	Append(ctx context.Context, h *domain.Heartbeat) (*domain.Heartbeat, error)

	// Latest returns the most recent heartbeat for monitorID, or nil if
	// none exists yet (a valid state — e.g. after retention deletion).
	Latest(ctx context.Context, monitorID string) (*domain.Heartbeat, error)

	// Recent returns the most recent n heartbeats for monitorID, most
	// recent first, optionally filtered to important=true.
	Recent(ctx context.Context, monitorID string, n int, importantOnly bool) ([]*domain.Heartbeat, error)

	// ResetDownCount zeros DownCount after a resend notification fires.
	// DownCount is the one field a heartbeat is ever mutated after write.
	ResetDownCount(ctx context.Context, heartbeatID int64) error

	// DeleteOlderThan is the external retention task's entrypoint; the core
	// only needs to tolerate its effects, but owning the query here keeps
	// the SQL in one place.
	DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error)
}
