package steps

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openscout/scout-backend/internal/data/repos"
	"github.com/openscout/scout-backend/internal/domain/chat"
	"github.com/openscout/scout-backend/internal/domain/research"
	"github.com/openscout/scout-backend/internal/observability"
	"github.com/openscout/scout-backend/internal/platform/logger"
	"github.com/openscout/scout-backend/internal/platform/openai"
	"github.com/openscout/scout-backend/internal/platform/searxng"
	"github.com/openscout/scout-backend/internal/platform/vectorstore"
	"github.com/openscout/scout-backend/internal/services"
)

type RespondDeps struct {
	DB  *gorm.DB
	Log *logger.Logger

	AI     openai.Client
	Vec    vectorstore.Store
	Search searxng.Client

	Chats    repos.ChatRepo
	Messages repos.MessageRepo

	Notify services.ResearchNotifier

	// Widgets defaults to the built-in set when nil; tests inject their
	// own.
	Widgets []widget
}

type RespondInput struct {
	ChatID    string   `json:"chat_id"`
	MessageID string   `json:"message_id"`
	Query     string   `json:"query"`
	Mode      string   `json:"mode"`
	Sources   []string `json:"sources"`
	FileIDs   []string `json:"file_ids"`
}

// Respond runs one full agent turn: classify, research and widgets in
// parallel, write, verify claims, persist. Every visible effect streams
// out through the notifier as it happens; the persisted message is the
// final snapshot of the same blocks.
func Respond(ctx context.Context, deps RespondDeps, in RespondInput) (*chat.Message, error) {
	start := time.Now()
	mode := ParseMode(in.Mode)

	target, err := prepareMessage(ctx, deps, in)
	if err != nil {
		return nil, err
	}
	log := deps.Log.With("chat_id", target.ChatID, "message_id", target.MessageID, "mode", string(mode))

	session := newBlockSession(target.ChatID, target.MessageID, deps.Notify)
	msg, runErr := respondInner(ctx, deps, in, mode, target, session, log)

	status := chat.MessageStatusCompleted
	if runErr != nil {
		status = chat.MessageStatusError
	}
	iterations := 0
	if msg != nil {
		iterations = msg.iterations
	}
	if m := observability.Current(); m != nil {
		m.ObserveResearchRun(string(mode), status, iterations, time.Since(start))
	}

	if runErr != nil {
		log.Error("research run failed", "error", runErr)
		failMessage(ctx, deps, target, session, runErr)
		return nil, runErr
	}
	return msg.message, nil
}

type respondResult struct {
	message    *chat.Message
	iterations int
}

func respondInner(ctx context.Context, deps RespondDeps, in RespondInput, mode Mode, target *chat.Message, session *blockSession, log *logger.Logger) (*respondResult, error) {
	history, err := historyText(ctx, deps, target)
	if err != nil {
		return nil, err
	}

	// Classification is the one step whose failure kills the run: with
	// no source plan there is nothing meaningful to research or write.
	cls, err := classifyQuery(ctx, deps.AI, history, enabledSources(in), in.Query)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}
	log.Info("query classified",
		"standalone", cls.StandaloneFollowUp,
		"skip_search", cls.SkipSearch,
		"sources", cls.Sources,
	)

	widgets := deps.Widgets
	if widgets == nil {
		widgets = defaultWidgets(nil)
	}

	var (
		widgetContexts []string
		run            researchRun
		researchErr    error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		widgetContexts = runWidgets(ctx, session, widgets, in.Query)
	}()
	if !cls.SkipSearch {
		run, researchErr = runResearcher(ctx, deps, session, cls, mode, in.FileIDs)
	}
	<-done
	if researchErr != nil {
		return nil, researchErr
	}

	_, answer, err := runWriter(ctx, deps, session, cls.StandaloneFollowUp, run.Chunks, widgetContexts)
	if err != nil {
		return nil, err
	}

	// Claim verification is advisory: a failure here degrades the
	// response, it does not invalidate it.
	if _, err := runClaimsVerifier(ctx, deps, session, answer, run.Chunks); err != nil {
		log.Warn("claims verification skipped", "error", err)
	}

	msg, err := completeMessage(ctx, deps, target, session)
	if err != nil {
		return nil, err
	}
	return &respondResult{message: msg, iterations: run.Iterations}, nil
}

// prepareMessage loads or creates the chat and the turn's message row. A
// resubmitted message id means regeneration: every later turn is deleted
// and the row's blocks reset before the agent reruns.
func prepareMessage(ctx context.Context, deps RespondDeps, in RespondInput) (*chat.Message, error) {
	chatID, err := resolveChat(ctx, deps, in)
	if err != nil {
		return nil, err
	}

	existing, err := deps.Messages.GetByChatAndMessageID(ctx, nil, chatID, in.MessageID)
	if err != nil && !repos.IsNotFound(err) {
		return nil, fmt.Errorf("look up message: %w", err)
	}
	if err == nil && existing != nil {
		if _, err := deps.Messages.DeleteAfterSeq(ctx, nil, chatID, existing.Seq); err != nil {
			return nil, fmt.Errorf("truncate chat for regeneration: %w", err)
		}
		fields := map[string]any{
			"query":           in.Query,
			"status":          chat.MessageStatusAnswering,
			"response_blocks": "[]",
		}
		if err := deps.Messages.UpdateFields(ctx, nil, existing.ID, fields); err != nil {
			return nil, fmt.Errorf("reset message for regeneration: %w", err)
		}
		existing.Query = in.Query
		existing.Status = chat.MessageStatusAnswering
		existing.ResponseBlocks = []byte("[]")
		return existing, nil
	}

	msg := &chat.Message{
		ChatID:         chatID,
		MessageID:      in.MessageID,
		Query:          in.Query,
		Status:         chat.MessageStatusAnswering,
		ResponseBlocks: []byte("[]"),
	}
	created, err := deps.Messages.Create(ctx, nil, msg)
	if err != nil {
		// Lost the race against a concurrent submit of the same
		// message id; the winner's row is the turn.
		if repos.IsUniqueViolation(err) {
			return deps.Messages.GetByChatAndMessageID(ctx, nil, chatID, in.MessageID)
		}
		return nil, err
	}
	return created, nil
}

func resolveChat(ctx context.Context, deps RespondDeps, in RespondInput) (uuid.UUID, error) {
	if in.ChatID != "" {
		id, err := uuid.Parse(in.ChatID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid chat id %q: %w", in.ChatID, err)
		}
		if _, err := deps.Chats.GetByID(ctx, nil, id); err != nil {
			return uuid.Nil, fmt.Errorf("load chat: %w", err)
		}
		return id, nil
	}

	created, err := deps.Chats.Create(ctx, nil, &chat.Chat{Title: TitleFromQuery(in.Query)})
	if err != nil {
		return uuid.Nil, fmt.Errorf("create chat: %w", err)
	}
	if deps.Notify != nil {
		deps.Notify.ChatCreated(created)
	}
	return created.ID, nil
}

// historyText renders prior completed turns for the classifier. Only the
// user queries and answer text blocks matter for follow-up resolution.
func historyText(ctx context.Context, deps RespondDeps, target *chat.Message) (string, error) {
	msgs, err := deps.Messages.ListByChat(ctx, nil, target.ChatID)
	if err != nil {
		return "", fmt.Errorf("load chat history: %w", err)
	}
	var b strings.Builder
	for _, m := range msgs {
		if m.ID == target.ID || m.Seq >= target.Seq {
			continue
		}
		fmt.Fprintf(&b, "User: %s\n", m.Query)
		if answer := answerTextFromBlocks(m.ResponseBlocks); answer != "" {
			fmt.Fprintf(&b, "Assistant: %s\n", answer)
		}
	}
	return b.String(), nil
}

func answerTextFromBlocks(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var blocks []research.Block
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, blk := range blocks {
		if blk.Type != research.BlockTypeText {
			continue
		}
		if s, ok := blk.Data.(string); ok && s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

func completeMessage(ctx context.Context, deps RespondDeps, target *chat.Message, session *blockSession) (*chat.Message, error) {
	blocks := session.snapshot()
	raw, err := json.Marshal(blocks)
	if err != nil {
		return nil, fmt.Errorf("encode response blocks: %w", err)
	}
	fields := map[string]any{
		"status":          chat.MessageStatusCompleted,
		"response_blocks": string(raw),
	}
	if err := deps.Messages.UpdateFields(ctx, nil, target.ID, fields); err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	target.Status = chat.MessageStatusCompleted
	target.ResponseBlocks = raw

	if deps.Notify != nil {
		deps.Notify.MessageDone(target.ChatID, target)
	}
	return target, nil
}

// failMessage records a failed run. Whatever blocks already streamed are
// persisted so a reconnecting client sees the same partial state, with the
// status marking the turn unusable.
func failMessage(ctx context.Context, deps RespondDeps, target *chat.Message, session *blockSession, runErr error) {
	raw, err := json.Marshal(session.snapshot())
	if err != nil {
		raw = []byte("[]")
	}
	fields := map[string]any{
		"status":          chat.MessageStatusError,
		"response_blocks": string(raw),
	}
	if err := deps.Messages.UpdateFields(ctx, nil, target.ID, fields); err != nil && deps.Log != nil {
		deps.Log.Error("persist failed message", "error", err, "message_id", target.MessageID)
	}
	if deps.Notify != nil {
		deps.Notify.MessageError(target.ChatID, target.MessageID, runErr.Error())
	}
}

func enabledSources(in RespondInput) []string {
	if len(in.Sources) > 0 {
		return in.Sources
	}
	sources := []string{SourceWeb}
	if len(in.FileIDs) > 0 {
		sources = append(sources, SourceUpload)
	}
	return sources
}
