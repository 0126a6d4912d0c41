// File: internal/usecase/context_builder.go
package usecase

import (
	"context"
	"fmt"

	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
	"chatanon/internal/domain/ports/repository"
)

// TurnRefs is everything a turn resolves before touching the network or
// writing a message: the session plus its role and model configuration.
// Fixed for the duration of the turn.
type TurnRefs struct {
	Session        *model.Session
	Model          *model.ModelConfig
	Role           *model.RoleProfile
	Background     []string
	EmotionProfile *model.EmotionProfile // nil when the role has no avatar
}

// ContextBuilder assembles the ordered prompt context for a turn.
type ContextBuilder struct {
	store   repository.ConversationStore
	catalog repository.CatalogRepository
}

func NewContextBuilder(store repository.ConversationStore, catalog repository.CatalogRepository) *ContextBuilder {
	return &ContextBuilder{store: store, catalog: catalog}
}

// Resolve loads the session and its role/model references. Any missing
// reference fails the turn before any network call or persistence.
// A missing emotion profile is not fatal; classification falls back.
func (b *ContextBuilder) Resolve(ctx context.Context, sessionID int64) (*TurnRefs, error) {
	session, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session %d: %w", sessionID, err)
	}
	cfg, err := b.catalog.GetModelConfig(ctx, session.ModelID)
	if err != nil {
		return nil, fmt.Errorf("resolve model %d: %w", session.ModelID, err)
	}
	role, err := b.catalog.GetRoleProfile(ctx, session.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve role %d: %w", session.RoleID, err)
	}
	background, err := b.catalog.GetBackgroundPrompts(ctx, session.RoleID)
	if err != nil {
		return nil, fmt.Errorf("resolve background prompts: %w", err)
	}
	profile, err := b.catalog.GetEmotionProfile(ctx, session.RoleID)
	if err != nil {
		profile = nil
	}
	return &TurnRefs{
		Session:        session,
		Model:          cfg,
		Role:           role,
		Background:     background,
		EmotionProfile: profile,
	}, nil
}

// Build composes the model-ready context: one system entry per background
// prompt in catalog order, one system entry for the role's own prompt if
// non-empty, then the persisted history oldest first with role and content
// copied verbatim. No truncation happens here; max tokens only bounds
// generation output.
func (b *ContextBuilder) Build(ctx context.Context, refs *TurnRefs) ([]adapter.Message, error) {
	history, err := b.store.ListMessages(ctx, refs.Session.ID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	out := make([]adapter.Message, 0, len(refs.Background)+1+len(history))
	for _, p := range refs.Background {
		out = append(out, adapter.Message{Role: string(model.RoleSystem), Content: p})
	}
	if refs.Role.Prompt != "" {
		out = append(out, adapter.Message{Role: string(model.RoleSystem), Content: refs.Role.Prompt})
	}
	for _, m := range history {
		out = append(out, adapter.Message{Role: string(m.Role), Content: m.Content})
	}
	return out, nil
}
