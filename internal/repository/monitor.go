package repository

import (
	"context"

	"github.com/sentrymon/monitor-core/internal/domain"
)

// MonitorRepository is a read-only view over monitor configuration, owned by
// the external management layer. The scheduler core never writes a Monitor.
type MonitorRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Monitor, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.Monitor, error)
	ListActive(ctx context.Context) ([]*domain.Monitor, error)
}
