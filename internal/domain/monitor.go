// Package domain holds the core types shared across the scheduler: monitors,
// schedule rows, heartbeats, and the sentinel errors layers wrap.
package domain

import "errors"

var (
	ErrMonitorNotFound = errors.New("monitor not found")
	ErrUnknownCheckType = errors.New("unknown monitor check type")
)

// Type identifies which check handler a monitor dispatches to.
type Type string

const (
	TypeHTTP     Type = "http"
	TypeTCP      Type = "tcp"
	TypeDNS      Type = "dns"
	TypePush     Type = "push"
	TypeTLSCert  Type = "tls-cert"
	TypeGRPC     Type = "grpc"
	TypeDatabase Type = "database"
)

// Monitor is owned by the external management layer; the core only reads it.
type Monitor struct {
	ID                 string
	TenantID           string
	UserID             string
	Type               Type
	IntervalSeconds    int
	RetryIntervalSeconds int
	MaxRetries         int
	TimeoutSeconds     int
	ResendInterval     int
	UpsideDown         bool
	Config             map[string]any
}

// EffectiveTimeoutSeconds returns the monitor's own timeout if set, else
// 80% of its interval.
func (m *Monitor) EffectiveTimeoutSeconds() float64 {
	if m.TimeoutSeconds > 0 {
		return float64(m.TimeoutSeconds)
	}
	return 0.8 * float64(m.IntervalSeconds)
}

// View exposes typed accessors over a Monitor's config map, instead of
// scattering type assertions at every call site.
type View interface {
	GetString(key string) string
	GetInt(key string, fallback int) int
	GetBool(key string) bool
	GetIgnoreTLS() bool
	GetAcceptedStatusCodes() []int
	IsUpsideDown() bool
	GetTags() []string
}

type monitorView struct {
	m *Monitor
}

// NewView adapts a Monitor's config map into a typed View, once.
func NewView(m *Monitor) View {
	return &monitorView{m: m}
}

func (v *monitorView) GetString(key string) string {
	if s, ok := v.m.Config[key].(string); ok {
		return s
	}
	return ""
}

func (v *monitorView) GetInt(key string, fallback int) int {
	switch n := v.m.Config[key].(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return fallback
	}
}

func (v *monitorView) GetBool(key string) bool {
	b, _ := v.m.Config[key].(bool)
	return b
}

func (v *monitorView) GetIgnoreTLS() bool {
	return v.GetBool("ignoreTls")
}

func (v *monitorView) GetAcceptedStatusCodes() []int {
	raw, ok := v.m.Config["acceptedStatusCodes"].([]any)
	if !ok {
		return []int{200}
	}
	codes := make([]int, 0, len(raw))
	for _, c := range raw {
		switch n := c.(type) {
		case float64:
			codes = append(codes, int(n))
		case int:
			codes = append(codes, n)
		}
	}
	if len(codes) == 0 {
		return []int{200}
	}
	return codes
}

func (v *monitorView) IsUpsideDown() bool {
	return v.m.UpsideDown
}

func (v *monitorView) GetTags() []string {
	raw, ok := v.m.Config["tags"].([]any)
	if !ok {
		return nil
	}
	tags := make([]string, 0, len(raw))
	for _, t := range raw {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}
