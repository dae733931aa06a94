package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// MonitorRepository is a read-only view over the monitors table. The table
// itself belongs to an external management layer that owns monitor CRUD;
// this process only ever selects from it.
type MonitorRepository struct {
	pool *pgxpool.Pool
}

func NewMonitorRepository(pool *pgxpool.Pool) *MonitorRepository {
	return &MonitorRepository{pool: pool}
}

const monitorColumns = `id, tenant_id, user_id, type, interval_seconds, retry_interval_seconds,
	max_retries, timeout_seconds, resend_interval, upside_down, config`

func (r *MonitorRepository) GetByID(ctx context.Context, id string) (*domain.Monitor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = $1`, id)
	m, err := scanMonitor(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrMonitorNotFound
	}
	return m, err
}

func (r *MonitorRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Monitor, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+monitorColumns+` FROM monitors WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get monitors by ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*domain.Monitor, len(ids))
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	return out, rows.Err()
}

func (r *MonitorRepository) ListActive(ctx context.Context) ([]*domain.Monitor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+monitorColumns+` FROM monitors m
		JOIN monitor_schedule s ON s.monitor_id = m.id
		WHERE s.active`)
	if err != nil {
		return nil, fmt.Errorf("list active monitors: %w", err)
	}
	defer rows.Close()

	var out []*domain.Monitor
	for rows.Next() {
		m, err := scanMonitor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanMonitor(row pgx.Row) (*domain.Monitor, error) {
	var m domain.Monitor
	var configJSON []byte
	err := row.Scan(
		&m.ID, &m.TenantID, &m.UserID, &m.Type, &m.IntervalSeconds, &m.RetryIntervalSeconds,
		&m.MaxRetries, &m.TimeoutSeconds, &m.ResendInterval, &m.UpsideDown, &configJSON,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scan monitor: %w", err)
	}
	if len(configJSON) > 0 {
		if err := json.Unmarshal(configJSON, &m.Config); err != nil {
			return nil, fmt.Errorf("unmarshal monitor config: %w", err)
		}
	}
	return &m, nil
}
