package handlers

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// NewDNSContract returns the dns monitor type's handler: resolves
// `hostname` against `resolverServer` (or the system resolver) and,
// when `expectedValue` is configured, asserts it is among the results.
func NewDNSContract() checks.HandlerContract {
	return checks.HandlerContract{
		Check: func(ctx context.Context, view domain.View, hb *domain.Heartbeat, _ time.Duration) error {
			host := view.GetString("hostname")
			if host == "" {
				return fmt.Errorf("monitor has no hostname configured")
			}

			resolver := net.DefaultResolver
			if server := view.GetString("resolverServer"); server != "" {
				resolver = &net.Resolver{
					PreferGo: true,
					Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
						var d net.Dialer
						return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
					},
				}
			}

			start := time.Now()
			addrs, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return fmt.Errorf("resolve %s: %w", host, err)
			}
			elapsed := float64(time.Since(start).Milliseconds())

			if want := view.GetString("expectedValue"); want != "" {
				if !slicesContainsFold(addrs, want) {
					return fmt.Errorf("resolved %v, expected %s among results", addrs, want)
				}
			}

			hb.Status = domain.StatusUp
			hb.Ping = &elapsed
			hb.Msg = strings.Join(addrs, ", ")
			return nil
		},
	}
}

func slicesContainsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
