package domain

import "time"

// Channel names are stable wire constants shared by every publisher and
// subscriber in the fleet.
const (
	ChannelHeartbeat          = "heartbeat"
	ChannelImportantHeartbeat = "heartbeat.important"
	ChannelMonitorStatus      = "monitor.status"
	ChannelMonitorStats       = "monitor.stats"
	ChannelCertInfo           = "cert.info"
	ChannelWorkerHeartbeat    = "worker.heartbeat"
	ChannelWorkerCommand      = "worker.command"
	ChannelMaintenance        = "maintenance"
)

// Event is the envelope every pub/sub payload carries: tenant and user
// scoping so the relay can route it to the right room, plus whatever
// type-specific payload the channel carries.
type Event struct {
	TenantID  string `json:"tenantId"`
	MonitorID string `json:"monitorId"`
	UserID    string `json:"userId"`
	Payload   any    `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reports whether the event carries the minimum fields the relay
// requires before routing it; malformed events are dropped rather than
// forwarded.
func (e Event) Valid() bool {
	return e.TenantID != "" && e.MonitorID != "" && e.Payload != nil
}

// MonitorStatsPayload is published on ChannelMonitorStats.
type MonitorStatsPayload struct {
	Uptime24h        float64 `json:"uptime24h"`
	Uptime30d        float64 `json:"uptime30d"`
	AvgPingLastHour  float64 `json:"avgPingLastHour"`
}

// HeartbeatPayload is published on ChannelHeartbeat / ChannelImportantHeartbeat.
type HeartbeatPayload struct {
	Status    Status    `json:"status"`
	Msg       string    `json:"msg"`
	Ping      *float64  `json:"ping,omitempty"`
	Important bool      `json:"important"`
	Time      time.Time `json:"time"`
	DownCount int       `json:"downCount"`
}

// CertInfoPayload is published on ChannelCertInfo when a handler observed a
// TLS certificate.
type CertInfoPayload struct {
	Issuer        string    `json:"issuer"`
	ValidTo       time.Time `json:"validTo"`
	DaysRemaining int       `json:"daysRemaining"`
}

// CommandType enumerates the worker-command payloads the admin API dispatches.
type CommandType string

const (
	CommandShutdown       CommandType = "SHUTDOWN"
	CommandCheckNow       CommandType = "CHECK_NOW"
	CommandStartMonitor   CommandType = "START_MONITOR"
	CommandStopMonitor    CommandType = "STOP_MONITOR"
	CommandRestartMonitor CommandType = "RESTART_MONITOR"
)

// CommandPayload is published on ChannelWorkerCommand.
type CommandPayload struct {
	Command   CommandType `json:"command"`
	MonitorID string      `json:"monitorId,omitempty"`
}

// WorkerState enumerates WorkerLiveness.State values.
type WorkerState string

const (
	WorkerRunning  WorkerState = "running"
	WorkerStopping WorkerState = "stopping"
	WorkerStopped  WorkerState = "stopped"
)

// WorkerLiveness is ephemeral pub/sub state republished every heartbeat
// interval; never persisted durably.
type WorkerLiveness struct {
	WorkerID       string      `json:"workerId"`
	State          WorkerState `json:"state"`
	ChecksProcessed int64      `json:"checksProcessed"`
	LastCheckAt    time.Time   `json:"lastCheckAt"`
}
