package model

import (
	"time"
)

type RoleKind string

const (
	RoleSystem    RoleKind = "system"
	RoleUser      RoleKind = "user"
	RoleAssistant RoleKind = "assistant"
)

// Message is one turn within a session. Content is written once and never
// mutated afterwards; only the emotion label is attached after creation.
type Message struct {
	ID        int64
	SessionID int64
	Role      RoleKind
	Content   string
	Tokens    int
	Emotion   string // set only on assistant messages from the streaming path
	CreatedAt time.Time
}

// Session is the aggregate root for a conversation between one user and one
// role persona. It always references exactly one role and one model config.
type Session struct {
	ID        int64
	UserID    int64
	RoleID    int64
	ModelID   int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewSession(userID, roleID, modelID int64, name string) *Session {
	now := time.Now()
	return &Session{
		UserID:    userID,
		RoleID:    roleID,
		ModelID:   modelID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewUserMessage(sessionID int64, content string, tokens int) *Message {
	return &Message{
		SessionID: sessionID,
		Role:      RoleUser,
		Content:   content,
		Tokens:    tokens,
		CreatedAt: time.Now(),
	}
}

func NewAssistantMessage(sessionID int64, content, emotion string, tokens int) *Message {
	return &Message{
		SessionID: sessionID,
		Role:      RoleAssistant,
		Content:   content,
		Tokens:    tokens,
		Emotion:   emotion,
		CreatedAt: time.Now(),
	}
}
