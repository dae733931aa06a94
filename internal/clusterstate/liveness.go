// Package clusterstate mirrors worker-heartbeat events into Redis with a
// TTL so any process can answer "which workers are alive right now"
// without depending on the pub/sub transport's own liveness semantics. It
// degrades gracefully: with no client configured, reads return empty and
// writes are no-ops.
package clusterstate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sentrymon/monitor-core/internal/domain"
)

const keyPrefix = "worker:"

// Cache mirrors domain.WorkerLiveness events with a TTL of 3x the worker
// heartbeat interval, so a crashed worker silently ages out.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache returns a Cache; client may be nil, in which case every method
// is a no-op — workers still run with no Redis URL configured.
func NewCache(client *redis.Client, heartbeatInterval time.Duration) *Cache {
	return &Cache{client: client, ttl: heartbeatInterval * 3}
}

func (c *Cache) Record(ctx context.Context, liveness domain.WorkerLiveness) error {
	if c.client == nil {
		return nil
	}
	data, err := json.Marshal(liveness)
	if err != nil {
		return fmt.Errorf("marshal worker liveness: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+liveness.WorkerID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("record worker liveness: %w", err)
	}
	return nil
}

// Remove deletes a worker's entry immediately, used on graceful shutdown
// so it doesn't linger for the full TTL after a clean stop.
func (c *Cache) Remove(ctx context.Context, workerID string) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, keyPrefix+workerID).Err(); err != nil {
		return fmt.Errorf("remove worker liveness: %w", err)
	}
	return nil
}

// ListLive returns every worker currently within its TTL window.
func (c *Cache) ListLive(ctx context.Context) ([]domain.WorkerLiveness, error) {
	if c.client == nil {
		return nil, nil
	}
	keys, err := c.client.Keys(ctx, keyPrefix+"*").Result()
	if err != nil {
		return nil, fmt.Errorf("list worker keys: %w", err)
	}
	out := make([]domain.WorkerLiveness, 0, len(keys))
	for _, key := range keys {
		raw, err := c.client.Get(ctx, key).Bytes()
		if err != nil {
			continue // expired between Keys and Get; not live anymore
		}
		var l domain.WorkerLiveness
		if err := json.Unmarshal(raw, &l); err != nil {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}
