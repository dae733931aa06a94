package handler

const (
	errInternalServer  = "Internal server error"
	errMonitorRequired = "monitorId is required for this command"
	errUnknownCommand  = "unknown command"
)
