package research

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/data/repos"
	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/modules/research/steps"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/platform/openai"
	"github.com/openscout/scout-backend/internal/platform/searxng"
	"github.com/openscout/scout-backend/internal/platform/vectorstore"
	"github.com/openscout/scout-backend/internal/services"
)

type UsecasesDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	AI     openai.Client
	Vec    vectorstore.Store
	Search searxng.Client

	Chats    repos.ChatRepo
	Messages repos.MessageRepo

	Notify services.ResearchNotifier
}

type Usecases struct {
	deps UsecasesDeps
}

func New(deps UsecasesDeps) Usecases { return Usecases{deps: deps} }

func (u Usecases) WithLog(log *logger.Logger) Usecases {
	u.deps.Log = log
	return u
}

type RespondInput = steps.RespondInput

// EnsureChat resolves or creates the chat a turn targets. Handlers call
// it before launching the agent so the client knows which SSE channel to
// subscribe to.
func (u Usecases) EnsureChat(ctx context.Context, chatID string, query string) (*chat.Chat, error) {
	if chatID != "" {
		id, err := uuid.Parse(chatID)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
		}
		return u.deps.Chats.GetByID(ctx, nil, id)
	}
	created, err := u.deps.Chats.Create(ctx, nil, &chat.Chat{Title: steps.TitleFromQuery(query)})
	if err != nil {
		return nil, err
	}
	if u.deps.Notify != nil {
		u.deps.Notify.ChatCreated(created)
	}
	return created, nil
}

func (u Usecases) ListChats(ctx context.Context, limit, offset int) ([]*chat.Chat, error) {
	return u.deps.Chats.List(ctx, nil, limit, offset)
}

func (u Usecases) ListMessages(ctx context.Context, chatID uuid.UUID) ([]*chat.Message, error) {
	return u.deps.Messages.ListByChat(ctx, nil, chatID)
}

func (u Usecases) RenameChat(ctx context.Context, chatID uuid.UUID, title string) error {
	return u.deps.Chats.UpdateTitle(ctx, nil, chatID, title)
}

func (u Usecases) DeleteChat(ctx context.Context, chatID uuid.UUID) error {
	return u.deps.Chats.Delete(ctx, nil, chatID)
}

func (u Usecases) Respond(ctx context.Context, in RespondInput) (*chat.Message, error) {
	return steps.Respond(ctx, steps.RespondDeps{
		DB:       u.deps.DB,
		Log:      u.deps.Log,
		AI:       u.deps.AI,
		Vec:      u.deps.Vec,
		Search:   u.deps.Search,
		Chats:    u.deps.Chats,
		Messages: u.deps.Messages,
		Notify:   u.deps.Notify,
	}, in)
}
