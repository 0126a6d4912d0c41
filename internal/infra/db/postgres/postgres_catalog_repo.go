// File: internal/infra/db/postgres/postgres_catalog_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/repository"
	"chatanon/internal/infra/metrics"
)

var _ repository.CatalogRepository = (*CatalogRepo)(nil)

// CatalogRepo reads role/model configuration. The catalog is edited
// outside the chat core, so this repo is read-only.
type CatalogRepo struct {
	pool *pgxpool.Pool
}

func NewCatalogRepo(pool *pgxpool.Pool) *CatalogRepo {
	return &CatalogRepo{pool: pool}
}

func (r *CatalogRepo) GetModelConfig(ctx context.Context, id int64) (cfg *model.ModelConfig, err error) {
	defer metrics.ObserveQuery("get_model", time.Now(), &err)()
	const q = `
SELECT model_id, model_name, model_version, api_url, api_key, max_tokens
  FROM models WHERE model_id=$1;`
	return r.scanModel(r.pool.QueryRow(ctx, q, id))
}

func (r *CatalogRepo) GetModelConfigByName(ctx context.Context, name string) (cfg *model.ModelConfig, err error) {
	defer metrics.ObserveQuery("get_model_by_name", time.Now(), &err)()
	const q = `
SELECT model_id, model_name, model_version, api_url, api_key, max_tokens
  FROM models WHERE model_name=$1;`
	return r.scanModel(r.pool.QueryRow(ctx, q, name))
}

func (r *CatalogRepo) ListModelConfigs(ctx context.Context) (out []*model.ModelConfig, err error) {
	defer metrics.ObserveQuery("list_models", time.Now(), &err)()
	const q = `
SELECT model_id, model_name, model_version, api_url, api_key, max_tokens
  FROM models ORDER BY model_id;`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m model.ModelConfig
		if err = rows.Scan(&m.ID, &m.Name, &m.Version, &m.APIURL, &m.APIKey, &m.MaxTokens); err != nil {
			return nil, fmt.Errorf("scan model: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetRoleProfile(ctx context.Context, roleID int64) (p *model.RoleProfile, err error) {
	defer metrics.ObserveQuery("get_role", time.Now(), &err)()
	const q = `SELECT role_id, role_name, COALESCE(prompt,'') FROM roles WHERE role_id=$1;`
	p = &model.RoleProfile{}
	if err = r.pool.QueryRow(ctx, q, roleID).Scan(&p.ID, &p.Name, &p.Prompt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}
	return p, nil
}

// GetBackgroundPrompts returns the background prompts of the role's
// category tags, in catalog (tag id) order.
func (r *CatalogRepo) GetBackgroundPrompts(ctx context.Context, roleID int64) (out []string, err error) {
	defer metrics.ObserveQuery("get_background_prompts", time.Now(), &err)()
	const q = `
SELECT rc.background_prompt
  FROM role_category_links rcl
  JOIN role_categories rc ON rc.role_tag_id = rcl.role_tag_id
 WHERE rcl.role_id = $1
 ORDER BY rc.role_tag_id;`
	rows, err := r.pool.Query(ctx, q, roleID)
	if err != nil {
		return nil, fmt.Errorf("query background prompts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p string
		if err = rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan background prompt: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *CatalogRepo) GetEmotionProfile(ctx context.Context, roleID int64) (p *model.EmotionProfile, err error) {
	defer metrics.ObserveQuery("get_emotion_profile", time.Now(), &err)()
	const q = `
SELECT avatar_id, role_id, avatar_name, prompt
  FROM avatars WHERE role_id=$1;`
	p = &model.EmotionProfile{}
	if err = r.pool.QueryRow(ctx, q, roleID).Scan(&p.ID, &p.RoleID, &p.Name, &p.Prompt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan emotion profile: %w", err)
	}
	return p, nil
}

func (r *CatalogRepo) GetExpression(ctx context.Context, emotion string) (e *model.Expression, err error) {
	defer metrics.ObserveQuery("get_expression", time.Now(), &err)()
	const q = `
SELECT a.avatar_id, a.avatar_name, aa.emotion, aa.expression_path, aa.motion_path
  FROM avatar_actions aa
  JOIN avatars a ON a.avatar_id = aa.avatar_id
 WHERE aa.emotion = $1;`
	e = &model.Expression{}
	if err = r.pool.QueryRow(ctx, q, emotion).Scan(&e.AvatarID, &e.AvatarName, &e.Emotion, &e.ExpressionPath, &e.MotionPath); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan expression: %w", err)
	}
	return e, nil
}

func (r *CatalogRepo) scanModel(row pgx.Row) (*model.ModelConfig, error) {
	var m model.ModelConfig
	if err := row.Scan(&m.ID, &m.Name, &m.Version, &m.APIURL, &m.APIKey, &m.MaxTokens); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("scan model: %w", err)
	}
	return &m, nil
}
