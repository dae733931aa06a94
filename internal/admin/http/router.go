package httptransport

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/sentrymon/monitor-core/internal/admin/http/handler"
	"github.com/sentrymon/monitor-core/internal/admin/http/middleware"
)

// NewRouter builds the admin command API: a single authenticated endpoint
// that publishes a worker command onto the fleet's pub/sub channel.
func NewRouter(logger *slog.Logger, commandHandler *handler.CommandHandler, jwksURL string, hmacKey []byte) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	admin := r.Group("/admin", middleware.Auth(jwksURL, hmacKey))
	admin.POST("/commands", commandHandler.Post)

	return r
}
