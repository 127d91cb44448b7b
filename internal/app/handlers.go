package app

import (
	"github.com/openscout/scout-backend/internal/handlers"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/realtime"
)

type Handlers struct {
	Research *handlers.ResearchHandler
	SSE      *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, cfg Config, svcs Services, hub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Research: handlers.NewResearchHandler(log, svcs.Research, cfg.Sources),
		SSE:      handlers.NewSSEHandler(log, hub),
	}
}
