package handlers

import (
	"github.com/sentrymon/monitor-core/internal/checks"
	"github.com/sentrymon/monitor-core/internal/domain"
)

// RegisterAll wires every known monitor type into registry. Called once
// at worker startup.
func RegisterAll(registry *checks.Registry) {
	registry.Register(domain.TypeHTTP, NewHTTPContract())
	registry.Register(domain.TypeTCP, NewTCPContract())
	registry.Register(domain.TypeDNS, NewDNSContract())
	registry.Register(domain.TypePush, NewPushContract())
	registry.Register(domain.TypeTLSCert, NewTLSCertContract())
	registry.Register(domain.TypeGRPC, NewGRPCContract())
	registry.Register(domain.TypeDatabase, NewDatabaseContract())
}
