package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/platform/openai"
	"github.com/openscout/scout-backend/internal/platform/qdrant"
	"github.com/openscout/scout-backend/internal/platform/searxng"
	"github.com/openscout/scout-backend/internal/platform/vectorstore"
	"github.com/openscout/scout-backend/internal/realtime/bus"
)

type Clients struct {
	AI     openai.Client
	Vec    vectorstore.Store
	Search searxng.Client
	SSEBus bus.Bus
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	ai, err := openai.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init openai client: %w", err)
	}

	search, err := searxng.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init searxng client: %w", err)
	}

	// Qdrant is only needed for upload search; without a URL the tool is
	// simply never offered.
	var vec vectorstore.Store
	if strings.TrimSpace(os.Getenv("QDRANT_URL")) != "" {
		cfg, err := qdrant.ResolveConfigFromEnv()
		if err != nil {
			return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
		}
		store, err := qdrant.NewStore(log, cfg)
		if err != nil {
			return Clients{}, fmt.Errorf("init qdrant store: %w", err)
		}
		vec = store
	}

	var sseBus bus.Bus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		b, err := bus.NewRedisBus(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis SSE bus: %w", err)
		}
		sseBus = b
	}

	return Clients{
		AI:     ai,
		Vec:    vec,
		Search: search,
		SSEBus: sseBus,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.SSEBus != nil {
		_ = c.SSEBus.Close()
	}
}
