// File: internal/infra/db/postgres/postgres_conversation_repo.go
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/repository"
	"chatanon/internal/infra/metrics"
	"chatanon/internal/infra/redis"
)

var _ repository.ConversationStore = (*ConversationRepo)(nil)

// ConversationRepo persists sessions and messages. Messages are append-only;
// the history cache is invalidated on every write to keep ordered reads
// consistent with what the relay persisted.
type ConversationRepo struct {
	pool  *pgxpool.Pool
	cache *redis.HistoryCache
}

func NewConversationRepo(pool *pgxpool.Pool, cache *redis.HistoryCache) *ConversationRepo {
	return &ConversationRepo{pool: pool, cache: cache}
}

func (r *ConversationRepo) CreateSession(ctx context.Context, s *model.Session) (err error) {
	defer metrics.ObserveQuery("create_session", time.Now(), &err)()
	const q = `
INSERT INTO sessions (user_id, role_id, model_id, session_name, created_at, last_updated_at)
VALUES ($1,$2,$3,$4,COALESCE($5,NOW()),COALESCE($6,NOW()))
RETURNING session_id;`
	err = r.pool.QueryRow(ctx, q, s.UserID, s.RoleID, s.ModelID, s.Name, s.CreatedAt, s.UpdatedAt).Scan(&s.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return domain.ErrNotFound
		}
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetSession(ctx context.Context, id int64) (s *model.Session, err error) {
	defer metrics.ObserveQuery("get_session", time.Now(), &err)()
	const q = `
SELECT session_id, user_id, role_id, model_id, session_name, created_at, last_updated_at
  FROM sessions WHERE session_id=$1;`
	s = &model.Session{}
	err = r.pool.QueryRow(ctx, q, id).Scan(&s.ID, &s.UserID, &s.RoleID, &s.ModelID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}
	return s, nil
}

func (r *ConversationRepo) ListSessionsByUser(ctx context.Context, userID int64) (out []*model.Session, err error) {
	defer metrics.ObserveQuery("list_sessions", time.Now(), &err)()
	const q = `
SELECT session_id, user_id, role_id, model_id, session_name, created_at, last_updated_at
  FROM sessions WHERE user_id=$1 ORDER BY last_updated_at DESC;`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Session
		if err = rows.Scan(&s.ID, &s.UserID, &s.RoleID, &s.ModelID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *ConversationRepo) UpdateSession(ctx context.Context, s *model.Session) (err error) {
	defer metrics.ObserveQuery("update_session", time.Now(), &err)()
	const q = `
UPDATE sessions SET session_name=$2, model_id=$3, last_updated_at=NOW()
 WHERE session_id=$1;`
	tag, err := r.pool.Exec(ctx, q, s.ID, s.Name, s.ModelID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *ConversationRepo) DeleteSession(ctx context.Context, id int64) (err error) {
	defer metrics.ObserveQuery("delete_session", time.Now(), &err)()
	// messages fall with the session via ON DELETE CASCADE
	const q = `DELETE FROM sessions WHERE session_id=$1;`
	if _, err = r.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *ConversationRepo) AppendMessage(ctx context.Context, m *model.Message) (err error) {
	defer metrics.ObserveQuery("append_message", time.Now(), &err)()
	const q = `
INSERT INTO messages (session_id, role, content, tokens, emotion, created_at)
VALUES ($1,$2,$3,$4,NULLIF($5,''),COALESCE($6,NOW()))
RETURNING message_id, created_at;`
	err = r.pool.QueryRow(ctx, q, m.SessionID, string(m.Role), m.Content, m.Tokens, m.Emotion, m.CreatedAt).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("append message: %w", err)
	}
	r.invalidate(ctx, m.SessionID)
	return nil
}

func (r *ConversationRepo) ListMessages(ctx context.Context, sessionID int64) (out []model.Message, err error) {
	if r.cache != nil {
		if cached, cerr := r.cache.GetMessages(ctx, sessionID); cerr == nil && cached != nil {
			metrics.CacheResult("hit")
			return cached, nil
		} else if cerr != nil {
			metrics.CacheResult("error")
		} else {
			metrics.CacheResult("miss")
		}
	}

	defer metrics.ObserveQuery("list_messages", time.Now(), &err)()
	const q = `
SELECT message_id, session_id, role, content, tokens, COALESCE(emotion,''), created_at
  FROM messages WHERE session_id=$1 ORDER BY created_at ASC;`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()
	out = make([]model.Message, 0, 16)
	for rows.Next() {
		var m model.Message
		var role string
		if err = rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.Tokens, &m.Emotion, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = model.RoleKind(role)
		out = append(out, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	if r.cache != nil {
		_ = r.cache.StoreMessages(ctx, sessionID, out)
	}
	return out, nil
}

func (r *ConversationRepo) DeleteMessage(ctx context.Context, messageID int64) (err error) {
	defer metrics.ObserveQuery("delete_message", time.Now(), &err)()
	const q = `DELETE FROM messages WHERE message_id=$1 RETURNING session_id;`
	var sessionID sql.NullInt64
	if err = r.pool.QueryRow(ctx, q, messageID).Scan(&sessionID); err != nil {
		if err == pgx.ErrNoRows {
			return domain.ErrNotFound
		}
		return fmt.Errorf("delete message: %w", err)
	}
	if sessionID.Valid {
		r.invalidate(ctx, sessionID.Int64)
	}
	return nil
}

func (r *ConversationRepo) ClearMessages(ctx context.Context, sessionID int64) (err error) {
	defer metrics.ObserveQuery("clear_messages", time.Now(), &err)()
	const q = `DELETE FROM messages WHERE session_id=$1;`
	if _, err = r.pool.Exec(ctx, q, sessionID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	r.invalidate(ctx, sessionID)
	return nil
}

func (r *ConversationRepo) invalidate(ctx context.Context, sessionID int64) {
	if r.cache != nil {
		_ = r.cache.Invalidate(ctx, sessionID)
	}
}
