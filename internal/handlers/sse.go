package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/realtime"
)

type SSEHandler struct {
	log *logger.Logger
	hub *realtime.SSEHub
}

func NewSSEHandler(log *logger.Logger, hub *realtime.SSEHub) *SSEHandler {
	return &SSEHandler{
		log: log.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// GET /api/chats/:id/events
// Subscribes the caller to the chat's block stream. The connection stays
// open until the client goes away; the hub handles heartbeats and
// per-client backpressure.
func (h *SSEHandler) StreamChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", fmt.Errorf("invalid chat id %q", c.Param("id")))
		return
	}

	client := h.hub.NewSSEClient()
	h.hub.AddChannel(client, chatID.String())
	defer h.hub.CloseClient(client)

	h.log.Info("sse client connected", "chat_id", chatID, "client_id", client.ID)
	h.hub.ServeHTTP(c.Writer, c.Request, client)
	h.log.Info("sse client disconnected", "chat_id", chatID, "client_id", client.ID)
}
