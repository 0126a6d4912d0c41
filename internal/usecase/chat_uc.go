// File: internal/usecase/chat_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/domain/ports/repository"
	"chatanon/internal/infra/logging"
	"chatanon/internal/infra/metrics"
)

// Compile-time check
var _ ChatUseCase = (*chatUC)(nil)

// ChatUseCase covers the non-streaming chat surface: the blocking
// send path, session lifecycle, history access, and catalog reads.
type ChatUseCase interface {
	SendMessageOnce(ctx context.Context, sessionID int64, userMessage string) (string, error)

	CreateSession(ctx context.Context, userID, roleID, modelID int64) (*model.Session, error)
	ListSessions(ctx context.Context, userID int64) ([]*model.Session, error)
	EditSession(ctx context.Context, sessionID int64, name, modelName string) (*model.Session, error)
	DeleteSession(ctx context.Context, sessionID int64) error

	ListMessages(ctx context.Context, sessionID int64) ([]model.Message, error)
	ClearMessages(ctx context.Context, sessionID int64) error
	DeleteMessage(ctx context.Context, messageID int64) error

	ListModels(ctx context.Context) ([]*model.ModelConfig, error)
	GetExpression(ctx context.Context, emotion string) (*model.Expression, error)
}

type chatUC struct {
	store      repository.ConversationStore
	catalog    repository.CatalogRepository
	builder    *ContextBuilder
	completion adapter.CompletionClient
	tokens     adapter.TokenCounter
	log        *zerolog.Logger

	completeTimeout time.Duration
}

func NewChatUseCase(
	store repository.ConversationStore,
	catalog repository.CatalogRepository,
	builder *ContextBuilder,
	completion adapter.CompletionClient,
	tokens adapter.TokenCounter,
	logger *zerolog.Logger,
	completeTimeout time.Duration,
) *chatUC {
	if completeTimeout <= 0 {
		completeTimeout = 10 * time.Minute
	}
	return &chatUC{
		store:           store,
		catalog:         catalog,
		builder:         builder,
		completion:      completion,
		tokens:          tokens,
		log:             logger,
		completeTimeout: completeTimeout,
	}
}

// SendMessageOnce runs one blocking turn: persist the user message, call
// the model once, persist the full reply. No emotion classification and
// no intermediate events on this path. On upstream failure the user
// message stays; no assistant message is written.
func (c *chatUC) SendMessageOnce(ctx context.Context, sessionID int64, userMessage string) (string, error) {
	userMessage = strings.TrimSpace(userMessage)
	if userMessage == "" {
		return "", fmt.Errorf("send once: empty message: %w", domain.ErrInvalidArgument)
	}
	ctx = logging.WithSessID(ctx, sessionID)
	log := logging.With(ctx, c.log)
	defer logging.TraceDuration(log, "ChatUC.SendMessageOnce")()

	refs, err := c.builder.Resolve(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("resolve turn: %w", err)
	}

	userMsg := model.NewUserMessage(sessionID, userMessage, c.tokens.Count(refs.Model.Version, userMessage))
	if err := c.store.AppendMessage(ctx, userMsg); err != nil {
		return "", fmt.Errorf("persist user message: %w", err)
	}
	metrics.AddTokens(refs.Model.Version, userMsg.Tokens, 0)

	msgs, err := c.builder.Build(ctx, refs)
	if err != nil {
		return "", fmt.Errorf("build context: %w", err)
	}

	cctx, cancel := context.WithTimeout(ctx, c.completeTimeout)
	defer cancel()
	reply, err := c.completion.Complete(cctx, refs.Model, msgs)
	if err != nil {
		return "", fmt.Errorf("complete: %w", err)
	}

	assistantMsg := model.NewAssistantMessage(sessionID, reply, "", c.tokens.Count(refs.Model.Version, reply))
	if err := c.store.AppendMessage(ctx, assistantMsg); err != nil {
		log.Error().Err(err).Int("reply_bytes", len(reply)).Msg("assistant reply generated but not persisted")
		return "", fmt.Errorf("persist assistant message: %w", err)
	}
	metrics.AddTokens(refs.Model.Version, 0, assistantMsg.Tokens)
	return reply, nil
}

// CreateSession verifies both catalog references before writing anything
// and derives the initial name from the role.
func (c *chatUC) CreateSession(ctx context.Context, userID, roleID, modelID int64) (*model.Session, error) {
	log := logging.With(logging.WithUserID(ctx, userID), c.log)

	role, err := c.catalog.GetRoleProfile(ctx, roleID)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	if _, err := c.catalog.GetModelConfig(ctx, modelID); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	session := model.NewSession(userID, roleID, modelID, "Chat with "+role.Name)
	if err := c.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	log.Info().Int64("session_id", session.ID).Int64("role_id", roleID).Msg("session created")
	return session, nil
}

func (c *chatUC) ListSessions(ctx context.Context, userID int64) ([]*model.Session, error) {
	sessions, err := c.store.ListSessionsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// EditSession renames the session and/or points it at another model by
// name. Empty arguments leave the corresponding field unchanged.
func (c *chatUC) EditSession(ctx context.Context, sessionID int64, name, modelName string) (*model.Session, error) {
	session, err := c.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("edit session: %w", err)
	}
	if name != "" {
		session.Name = name
	}
	if modelName != "" {
		cfg, err := c.catalog.GetModelConfigByName(ctx, modelName)
		if err != nil {
			return nil, fmt.Errorf("edit session: %w", err)
		}
		session.ModelID = cfg.ID
	}
	session.UpdatedAt = time.Now()
	if err := c.store.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("edit session: %w", err)
	}
	return session, nil
}

func (c *chatUC) DeleteSession(ctx context.Context, sessionID int64) error {
	if err := c.store.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	logging.With(ctx, c.log).Info().Int64("session_id", sessionID).Msg("session deleted")
	return nil
}

func (c *chatUC) ListMessages(ctx context.Context, sessionID int64) ([]model.Message, error) {
	// Session existence is checked explicitly so a missing session is a
	// not-found, not an empty history.
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	msgs, err := c.store.ListMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

func (c *chatUC) ClearMessages(ctx context.Context, sessionID int64) error {
	if _, err := c.store.GetSession(ctx, sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	if err := c.store.ClearMessages(ctx, sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func (c *chatUC) DeleteMessage(ctx context.Context, messageID int64) error {
	if err := c.store.DeleteMessage(ctx, messageID); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

func (c *chatUC) ListModels(ctx context.Context) ([]*model.ModelConfig, error) {
	models, err := c.catalog.ListModelConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	return models, nil
}

// GetExpression maps an emotion label onto avatar expression assets.
func (c *chatUC) GetExpression(ctx context.Context, emotion string) (*model.Expression, error) {
	if emotion == "" {
		emotion = fallbackEmotion
	}
	expr, err := c.catalog.GetExpression(ctx, emotion)
	if err != nil {
		return nil, fmt.Errorf("expression for %q: %w", emotion, err)
	}
	return expr, nil
}
