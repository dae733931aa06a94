package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// ScheduleRepository implements repository.ScheduleStore against the
// monitor_schedule table. Claim uses SKIP LOCKED so concurrent workers
// never pick up the same due row twice.
type ScheduleRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewScheduleRepository(pool *pgxpool.Pool, logger *slog.Logger) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, logger: logger.With("component", "schedule_repo")}
}

func (r *ScheduleRepository) Initialize(ctx context.Context, monitorID, tenantID string, intervalSeconds int, active bool) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO monitor_schedule (monitor_id, tenant_id, active, next_check_at, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW(), NOW())
		ON CONFLICT (monitor_id) DO UPDATE
		SET tenant_id = $2, active = $3, updated_at = NOW()`,
		monitorID, tenantID, active)
	if err != nil {
		return fmt.Errorf("initialize schedule row: %w", err)
	}
	return nil
}

// Claim selects due rows ordered by next_check_at, FOR UPDATE SKIP LOCKED
// so concurrent claims never double-own a row, then marks them claimed in
// the same transaction.
func (r *ScheduleRepository) Claim(ctx context.Context, workerID string, batchSize int) ([]*domain.ScheduleRow, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT id, monitor_id, tenant_id, active, next_check_at,
		       claimed_by, claimed_at, last_check_at, last_status, last_ping,
		       retry_count, consecutive_failures, created_at, updated_at
		FROM monitor_schedule
		WHERE active
		  AND next_check_at <= NOW()
		  AND (claimed_by IS NULL OR claimed_at < NOW() - INTERVAL '60 seconds')
		ORDER BY next_check_at ASC, id ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED`, batchSize)
	if err != nil {
		return nil, fmt.Errorf("select due rows: %w", err)
	}

	var candidates []*domain.ScheduleRow
	for rows.Next() {
		row, scanErr := scanScheduleRow(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		candidates = append(candidates, row)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate due rows: %w", err)
	}
	if len(candidates) == 0 {
		return nil, tx.Commit(ctx)
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}

	claimedRows, err := tx.Query(ctx, `
		UPDATE monitor_schedule
		SET claimed_by = $1, claimed_at = NOW(), updated_at = NOW()
		WHERE id = ANY($2)
		RETURNING id, monitor_id, tenant_id, active, next_check_at,
		          claimed_by, claimed_at, last_check_at, last_status, last_ping,
		          retry_count, consecutive_failures, created_at, updated_at`,
		workerID, ids)
	if err != nil {
		return nil, fmt.Errorf("claim rows: %w", err)
	}

	var claimed []*domain.ScheduleRow
	for claimedRows.Next() {
		row, scanErr := scanScheduleRow(claimedRows)
		if scanErr != nil {
			claimedRows.Close()
			return nil, scanErr
		}
		claimed = append(claimed, row)
	}
	claimedRows.Close()
	if err = claimedRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claimed rows: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit claim tx: %w", err)
	}
	return claimed, nil
}

// Release clears the claim and advances next_check_at. The claimed_by
// predicate matches a row still owned by this worker or left unowned by
// the stale sweeper, so it never clobbers a row another worker has since
// claimed.
func (r *ScheduleRepository) Release(ctx context.Context, rowID, workerID string, nextIntervalSeconds int, status domain.Status, ping *float64, wasFailure bool) error {
	failureExpr := "consecutive_failures + 1"
	if !wasFailure {
		failureExpr = "0"
	}
	query := fmt.Sprintf(`
		UPDATE monitor_schedule
		SET claimed_by = NULL,
		    claimed_at = NULL,
		    next_check_at = NOW() + ($3 * INTERVAL '1 second'),
		    last_check_at = NOW(),
		    last_status = $4,
		    last_ping = $5,
		    consecutive_failures = %s,
		    updated_at = NOW()
		WHERE id = $1 AND (claimed_by = $2 OR claimed_by IS NULL)`, failureExpr)

	tag, err := r.pool.Exec(ctx, query, rowID, workerID, nextIntervalSeconds, int(status), ping)
	if err != nil {
		return fmt.Errorf("release schedule row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Not fatal: another worker has claimed this row since, or it was
		// deleted.
		r.logger.Warn("release found no owned row, ignoring", "row_id", rowID, "worker_id", workerID)
	}
	return nil
}

// ScheduleRetry keeps the claim for a PENDING retry and advances
// next_check_at by the shorter retry interval.
func (r *ScheduleRepository) ScheduleRetry(ctx context.Context, rowID, workerID string, retryIntervalSeconds int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE monitor_schedule
		SET next_check_at = NOW() + ($3 * INTERVAL '1 second'),
		    retry_count = retry_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND claimed_by = $2`,
		rowID, workerID, retryIntervalSeconds)
	if err != nil {
		return fmt.Errorf("schedule retry: %w", err)
	}
	return nil
}

// ReleaseStale recovers rows abandoned by a crashed worker. Unconditional:
// no claimed_by predicate, by design.
func (r *ScheduleRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := time.Now().Add(-olderThan)
	tag, err := r.pool.Exec(ctx, `
		UPDATE monitor_schedule
		SET claimed_by = NULL, claimed_at = NULL, updated_at = NOW()
		WHERE claimed_by IS NOT NULL AND claimed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("release stale: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *ScheduleRepository) Activate(ctx context.Context, monitorID string, intervalSeconds int) error {
	var nextCheck string
	var args []any
	if intervalSeconds <= 0 {
		nextCheck = "NOW()"
		args = []any{monitorID}
	} else {
		nextCheck = "NOW() + ($2 * INTERVAL '1 second')"
		args = []any{monitorID, intervalSeconds}
	}
	query := fmt.Sprintf(`UPDATE monitor_schedule SET active = true, next_check_at = %s, updated_at = NOW() WHERE monitor_id = $1`, nextCheck)
	_, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("activate monitor: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Deactivate(ctx context.Context, monitorID string) error {
	_, err := r.pool.Exec(ctx, `UPDATE monitor_schedule SET active = false, updated_at = NOW() WHERE monitor_id = $1`, monitorID)
	if err != nil {
		return fmt.Errorf("deactivate monitor: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) Delete(ctx context.Context, monitorID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM monitor_schedule WHERE monitor_id = $1`, monitorID)
	if err != nil {
		return fmt.Errorf("delete schedule row: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrScheduleRowNotFound
	}
	return nil
}

func (r *ScheduleRepository) Stats(ctx context.Context, tenantID string) (domain.ScheduleStats, error) {
	var s domain.ScheduleStats
	args := []any{}
	where := ""
	if tenantID != "" {
		where = "WHERE tenant_id = $1"
		args = append(args, tenantID)
	}
	query := fmt.Sprintf(`
		SELECT count(*),
		       count(*) FILTER (WHERE active),
		       count(*) FILTER (WHERE claimed_by IS NOT NULL),
		       count(*) FILTER (WHERE active AND next_check_at <= NOW())
		FROM monitor_schedule %s`, where)
	err := r.pool.QueryRow(ctx, query, args...).Scan(&s.Total, &s.Active, &s.Claimed, &s.Due)
	if err != nil {
		return domain.ScheduleStats{}, fmt.Errorf("schedule stats: %w", err)
	}
	return s, nil
}

// SyncAllMonitors ensures every active monitor has a schedule row; called
// once on worker startup.
func (r *ScheduleRepository) SyncAllMonitors(ctx context.Context, monitors []*domain.Monitor) error {
	for _, m := range monitors {
		if err := r.Initialize(ctx, m.ID, m.TenantID, m.IntervalSeconds, true); err != nil {
			return fmt.Errorf("sync monitor %s: %w", m.ID, err)
		}
	}
	return nil
}

func scanScheduleRow(row pgx.Rows) (*domain.ScheduleRow, error) {
	var r domain.ScheduleRow
	var status *int
	err := row.Scan(
		&r.ID, &r.MonitorID, &r.TenantID, &r.Active, &r.NextCheckAt,
		&r.ClaimedBy, &r.ClaimedAt, &r.LastCheckAt, &status, &r.LastPing,
		&r.RetryCount, &r.ConsecutiveFailures, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrScheduleRowNotFound
		}
		return nil, fmt.Errorf("scan schedule row: %w", err)
	}
	if status != nil {
		s := domain.Status(*status)
		r.LastStatus = &s
	}
	return &r, nil
}
