package handlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// NewGRPCContract returns the grpc monitor type's handler: dials `grpcUrl`
// and calls the standard gRPC health-checking protocol, treating anything
// but SERVING as a failure.
func NewGRPCContract() checks.HandlerContract {
	return checks.HandlerContract{
		Check: func(ctx context.Context, view domain.View, hb *domain.Heartbeat, _ time.Duration) error {
			target := view.GetString("grpcUrl")
			if target == "" {
				return fmt.Errorf("monitor has no grpcUrl configured")
			}

			creds := credentials.TransportCredentials(insecure.NewCredentials())
			if view.GetBool("grpcEnableTls") {
				creds = credentials.NewTLS(&tls.Config{InsecureSkipVerify: view.GetIgnoreTLS()}) //nolint:gosec // explicit per-monitor opt-in
			}

			conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(creds))
			if err != nil {
				return fmt.Errorf("dial %s: %w", target, err)
			}
			defer func() { _ = conn.Close() }()

			start := time.Now()
			client := grpc_health_v1.NewHealthClient(conn)
			resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: view.GetString("grpcServiceName")})
			if err != nil {
				return fmt.Errorf("health check %s: %w", target, err)
			}
			elapsed := float64(time.Since(start).Milliseconds())

			if resp.GetStatus() != grpc_health_v1.HealthCheckResponse_SERVING {
				return fmt.Errorf("service reported status %s", resp.GetStatus())
			}

			hb.Status = domain.StatusUp
			hb.Ping = &elapsed
			hb.Msg = "SERVING"
			return nil
		},
	}
}
