package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sentrymon/monitor-core/internal/domain"
	"github.com/sentrymon/monitor-core/internal/pubsub"
)

// CommandHandler accepts remote commands for the worker fleet and fans them
// out over the worker.command channel; every worker subscribed to it picks
// the command up and acts on it.
type CommandHandler struct {
	transport pubsub.Transport
	logger    *slog.Logger
}

func NewCommandHandler(transport pubsub.Transport, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{transport: transport, logger: logger.With("component", "command_handler")}
}

type postCommandRequest struct {
	Command   domain.CommandType `json:"command" binding:"required"`
	MonitorID string             `json:"monitorId"`
}

var commandsRequiringMonitor = map[domain.CommandType]bool{
	domain.CommandCheckNow:       true,
	domain.CommandStartMonitor:   true,
	domain.CommandStopMonitor:    true,
	domain.CommandRestartMonitor: true,
}

// Post validates and publishes a worker command on behalf of an authenticated
// tenant user.
func (h *CommandHandler) Post(c *gin.Context) {
	var req postCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	switch req.Command {
	case domain.CommandShutdown, domain.CommandCheckNow, domain.CommandStartMonitor,
		domain.CommandStopMonitor, domain.CommandRestartMonitor:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": errUnknownCommand})
		return
	}

	if commandsRequiringMonitor[req.Command] && req.MonitorID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": errMonitorRequired})
		return
	}

	tenantID, _ := c.Get("tenantID")
	userID, _ := c.Get("userID")

	ev := domain.Event{
		TenantID:  stringOr(tenantID, "system"),
		MonitorID: stringOr(req.MonitorID, "*"),
		UserID:    stringOr(userID, ""),
		Payload: domain.CommandPayload{
			Command:   req.Command,
			MonitorID: req.MonitorID,
		},
		Timestamp: time.Now(),
	}

	if err := h.transport.Publish(c.Request.Context(), domain.ChannelWorkerCommand, ev); err != nil {
		h.logger.Error("publish command failed", "command", req.Command, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errInternalServer})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "dispatched"})
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	return fallback
}
