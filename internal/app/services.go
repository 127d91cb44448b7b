package app

import (
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/modules/research"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/realtime"
	"github.com/openscout/scout-backend/internal/services"
)

type Services struct {
	Notify   services.ResearchNotifier
	Research research.Usecases
}

// wireServices picks the SSE fanout path: with a redis bus every event is
// published and forwarded to the local hub, so multiple replicas see the
// same stream; without one events go straight to the hub.
func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, clients Clients, hub *realtime.SSEHub) Services {
	log.Info("Wiring services...")

	var emitter services.SSEEmitter
	if clients.SSEBus != nil {
		emitter = &services.RedisEmitter{Bus: clients.SSEBus}
	} else {
		emitter = &services.HubEmitter{Hub: hub}
	}
	notify := services.NewResearchNotifier(emitter)

	uc := research.New(research.UsecasesDeps{
		DB:       db,
		Log:      log,
		AI:       clients.AI,
		Vec:      clients.Vec,
		Search:   clients.Search,
		Chats:    r.Chats,
		Messages: r.Messages,
		Notify:   notify,
	})

	return Services{
		Notify:   notify,
		Research: uc,
	}
}
