package repository

import (
	"context"

	"chatanon/internal/domain/model"
)

// CatalogRepository resolves the role/model configuration a turn needs.
// The rows themselves are created and edited outside the chat core.
type CatalogRepository interface {
	GetModelConfig(ctx context.Context, id int64) (*model.ModelConfig, error)
	GetModelConfigByName(ctx context.Context, name string) (*model.ModelConfig, error)
	ListModelConfigs(ctx context.Context) ([]*model.ModelConfig, error)

	GetRoleProfile(ctx context.Context, roleID int64) (*model.RoleProfile, error)
	// GetBackgroundPrompts returns the role's category background prompts
	// in catalog order.
	GetBackgroundPrompts(ctx context.Context, roleID int64) ([]string, error)

	GetEmotionProfile(ctx context.Context, roleID int64) (*model.EmotionProfile, error)
	GetExpression(ctx context.Context, emotion string) (*model.Expression, error)
}
