package model

// RoleProfile is the persona a session talks to: the role's own system
// prompt plus the background prompts of its category tags. Immutable for
// the duration of a single turn.
type RoleProfile struct {
	ID     int64
	Name   string
	Prompt string
}

// EmotionProfile carries the classification instruction for a role's
// avatar. Resolved by role id before a streaming turn.
type EmotionProfile struct {
	ID     int64
	RoleID int64
	Name   string
	Prompt string
}

// Expression maps a classified emotion label to avatar assets.
type Expression struct {
	AvatarID       int64
	AvatarName     string
	Emotion        string
	ExpressionPath string
	MotionPath     string
}
