package handlers

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// NewTCPContract returns the tcp monitor type's handler: a bare connect
// probe against host:port, no payload exchanged.
func NewTCPContract() checks.HandlerContract {
	return checks.HandlerContract{
		AllowCustomStatus: false,
		Check: func(ctx context.Context, view domain.View, hb *domain.Heartbeat, _ time.Duration) error {
			host := view.GetString("hostname")
			port := view.GetInt("port", 0)
			if host == "" || port <= 0 {
				return fmt.Errorf("monitor has no hostname/port configured")
			}

			start := time.Now()
			var d net.Dialer
			conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
			if err != nil {
				return fmt.Errorf("dial %s:%d: %w", host, port, err)
			}
			_ = conn.Close()

			elapsed := float64(time.Since(start).Milliseconds())
			hb.Status = domain.StatusUp
			hb.Ping = &elapsed
			hb.Msg = "connected"
			return nil
		},
	}
}
