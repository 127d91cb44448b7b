package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/openscout/scout-backend/internal/modules/research"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/services"
)

// runTimeout bounds one full agent turn, detached from the request
// context because the turn outlives the HTTP response.
const runTimeout = 10 * time.Minute

type ResearchHandler struct {
	log     *logger.Logger
	uc      research.Usecases
	catalog services.SourceCatalog
}

func NewResearchHandler(log *logger.Logger, uc research.Usecases, catalog services.SourceCatalog) *ResearchHandler {
	return &ResearchHandler{
		log:     log.With("handler", "ResearchHandler"),
		uc:      uc,
		catalog: catalog,
	}
}

type respondRequest struct {
	ChatID    string   `json:"chat_id"`
	MessageID string   `json:"message_id" binding:"required"`
	Query     string   `json:"query" binding:"required"`
	Mode      string   `json:"mode"`
	Sources   []string `json:"sources"`
	FileIDs   []string `json:"file_ids"`
}

// POST /api/research/respond
// Accepts the turn and runs the agent in the background. The caller gets
// the chat and message ids immediately and follows the run over SSE.
func (h *ResearchHandler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	target, err := h.uc.EnsureChat(c.Request.Context(), req.ChatID, req.Query)
	if err != nil {
		RespondError(c, http.StatusNotFound, "chat_not_found", err)
		return
	}

	in := research.RespondInput{
		ChatID:    target.ID.String(),
		MessageID: req.MessageID,
		Query:     req.Query,
		Mode:      req.Mode,
		Sources:   req.Sources,
		FileIDs:   req.FileIDs,
	}
	if len(in.Sources) == 0 {
		in.Sources = h.catalog.EnabledNames()
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if _, err := h.uc.Respond(ctx, in); err != nil {
			h.log.Error("research run failed", "chat_id", in.ChatID, "message_id", in.MessageID, "error", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"chat_id":    target.ID,
		"message_id": req.MessageID,
	})
}

// GET /api/chats
func (h *ResearchHandler) ListChats(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	chats, err := h.uc.ListChats(c.Request.Context(), limit, offset)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_chats_failed", err)
		return
	}
	RespondOK(c, gin.H{"chats": chats})
}

// GET /api/chats/:id/messages
func (h *ResearchHandler) ListMessages(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", fmt.Errorf("invalid chat id %q", c.Param("id")))
		return
	}
	msgs, err := h.uc.ListMessages(c.Request.Context(), chatID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "list_messages_failed", err)
		return
	}
	RespondOK(c, gin.H{"messages": msgs})
}

type renameRequest struct {
	Title string `json:"title" binding:"required"`
}

// PATCH /api/chats/:id
func (h *ResearchHandler) RenameChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", fmt.Errorf("invalid chat id %q", c.Param("id")))
		return
	}
	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err := h.uc.RenameChat(c.Request.Context(), chatID, req.Title); err != nil {
		RespondError(c, http.StatusInternalServerError, "rename_chat_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DELETE /api/chats/:id
func (h *ResearchHandler) DeleteChat(c *gin.Context) {
	chatID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_chat_id", fmt.Errorf("invalid chat id %q", c.Param("id")))
		return
	}
	if err := h.uc.DeleteChat(c.Request.Context(), chatID); err != nil {
		RespondError(c, http.StatusInternalServerError, "delete_chat_failed", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/sources
func (h *ResearchHandler) ListSources(c *gin.Context) {
	RespondOK(c, h.catalog)
}

func queryInt(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	var v int
	if _, err := fmt.Sscanf(raw, "%d", &v); err != nil || v < 0 {
		return def
	}
	return v
}
