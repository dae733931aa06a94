package handlers

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// NewTLSCertContract returns the tls-cert monitor type's handler: connects,
// inspects the leaf certificate, and fails the check once the remaining
// validity drops below `expiryThresholdDays` (default 14).
func NewTLSCertContract() checks.HandlerContract {
	return checks.HandlerContract{
		Check: func(ctx context.Context, view domain.View, hb *domain.Heartbeat, _ time.Duration) error {
			host := view.GetString("hostname")
			port := view.GetInt("port", 443)
			if host == "" {
				return fmt.Errorf("monitor has no hostname configured")
			}

			dialer := &tls.Dialer{
				Config: &tls.Config{ServerName: host, InsecureSkipVerify: view.GetIgnoreTLS()}, //nolint:gosec // explicit per-monitor opt-in
			}
			conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)))
			if err != nil {
				return fmt.Errorf("tls dial %s:%d: %w", host, port, err)
			}
			defer func() { _ = conn.Close() }()

			state := conn.(*tls.Conn).ConnectionState()
			if len(state.PeerCertificates) == 0 {
				return fmt.Errorf("no peer certificate presented")
			}
			cert := state.PeerCertificates[0]
			daysRemaining := int(time.Until(cert.NotAfter).Hours() / 24)

			hb.TLSInfo = &domain.TLSInfo{
				Issuer:        cert.Issuer.CommonName,
				ValidFrom:     cert.NotBefore,
				ValidTo:       cert.NotAfter,
				DaysRemaining: daysRemaining,
			}

			threshold := view.GetInt("expiryThresholdDays", 14)
			if daysRemaining < threshold {
				return fmt.Errorf("certificate expires in %d days (threshold %d)", daysRemaining, threshold)
			}

			hb.Status = domain.StatusUp
			hb.Msg = fmt.Sprintf("certificate valid, %d days remaining", daysRemaining)
			return nil
		},
	}
}
