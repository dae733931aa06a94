package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// HeartbeatRepository implements repository.HeartbeatStore. Append-only;
// reads never block writes — pgx pool connections are independent, so a
// long-running Recent query never holds up Append.
type HeartbeatRepository struct {
	pool *pgxpool.Pool
}

func NewHeartbeatRepository(pool *pgxpool.Pool) *HeartbeatRepository {
	return &HeartbeatRepository{pool: pool}
}

func (r *HeartbeatRepository) Append(ctx context.Context, h *domain.Heartbeat) (*domain.Heartbeat, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO heartbeats (monitor_id, tenant_id, time, status, msg, ping, important, duration_ms, down_count, retries, end_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, monitor_id, tenant_id, time, status, msg, ping, important, duration_ms, down_count, retries, end_time`,
		h.MonitorID, h.TenantID, h.Time, int(h.Status), h.Msg, h.Ping, h.Important,
		h.Duration.Milliseconds(), h.DownCount, h.Retries, h.EndTime,
	)
	return scanHeartbeat(row)
}

func (r *HeartbeatRepository) Latest(ctx context.Context, monitorID string) (*domain.Heartbeat, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, monitor_id, tenant_id, time, status, msg, ping, important, duration_ms, down_count, retries, end_time
		FROM heartbeats WHERE monitor_id = $1 ORDER BY time DESC LIMIT 1`, monitorID)
	h, err := scanHeartbeat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil // no prior heartbeat is a valid state for a new monitor
	}
	return h, err
}

func (r *HeartbeatRepository) Recent(ctx context.Context, monitorID string, n int, importantOnly bool) ([]*domain.Heartbeat, error) {
	query := `
		SELECT id, monitor_id, tenant_id, time, status, msg, ping, important, duration_ms, down_count, retries, end_time
		FROM heartbeats WHERE monitor_id = $1`
	args := []any{monitorID, n}
	if importantOnly {
		query += ` AND important`
	}
	query += ` ORDER BY time DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent heartbeats: %w", err)
	}
	defer rows.Close()

	var out []*domain.Heartbeat
	for rows.Next() {
		h, err := scanHeartbeat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HeartbeatRepository) ResetDownCount(ctx context.Context, heartbeatID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE heartbeats SET down_count = 0 WHERE id = $1`, heartbeatID)
	if err != nil {
		return fmt.Errorf("reset down count: %w", err)
	}
	return nil
}

func (r *HeartbeatRepository) DeleteOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM heartbeats WHERE time < NOW() - ($1 * INTERVAL '1 day')`, retentionDays)
	if err != nil {
		return 0, fmt.Errorf("delete old heartbeats: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanHeartbeat(row pgx.Row) (*domain.Heartbeat, error) {
	var h domain.Heartbeat
	var status int
	var durationMS int64
	err := row.Scan(
		&h.ID, &h.MonitorID, &h.TenantID, &h.Time, &status, &h.Msg, &h.Ping,
		&h.Important, &durationMS, &h.DownCount, &h.Retries, &h.EndTime,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan heartbeat: %w", err)
	}
	h.Status = domain.Status(status)
	h.Duration = time.Duration(durationMS) * time.Millisecond
	return &h, nil
}
