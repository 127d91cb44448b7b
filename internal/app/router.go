package app

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/openscout/scout-backend/internal/handlers"
	"github.com/openscout/scout-backend/internal/middleware"
	"github.com/openscout/scout-backend/internal/observability"
	"github.com/openscout/scout-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, h Handlers, metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS())
	r.Use(otelgin.Middleware("scout"))
	r.Use(middleware.AttachTraceContext())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(metrics))

	r.GET("/healthz", handlers.HealthCheck)

	api := r.Group("/api")
	{
		api.POST("/research/respond", h.Research.Respond)
		api.GET("/sources", h.Research.ListSources)

		api.GET("/chats", h.Research.ListChats)
		api.GET("/chats/:id/messages", h.Research.ListMessages)
		api.PATCH("/chats/:id", h.Research.RenameChat)
		api.DELETE("/chats/:id", h.Research.DeleteChat)
		api.GET("/chats/:id/events", h.SSE.StreamChat)
	}

	return r
}
