package repository

import (
	"context"

	"chatanon/internal/domain/model"
)

// -----------------------------
// Conversation store
// -----------------------------

// ConversationStore is durable storage for sessions and messages.
// Messages are append-only: the core creates them during a turn and never
// rewrites a persisted message's content.
type ConversationStore interface {
	CreateSession(ctx context.Context, session *model.Session) error
	GetSession(ctx context.Context, id int64) (*model.Session, error)
	ListSessionsByUser(ctx context.Context, userID int64) ([]*model.Session, error)
	UpdateSession(ctx context.Context, session *model.Session) error
	// DeleteSession cascades to the session's messages.
	DeleteSession(ctx context.Context, id int64) error

	// AppendMessage fills ID and CreatedAt on success.
	AppendMessage(ctx context.Context, message *model.Message) error
	// ListMessages returns one session's history ordered by created_at ASC.
	ListMessages(ctx context.Context, sessionID int64) ([]model.Message, error)
	DeleteMessage(ctx context.Context, messageID int64) error
	ClearMessages(ctx context.Context, sessionID int64) error
}
