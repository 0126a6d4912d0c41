package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"chatanon/internal/domain/model"
)

// HistoryCache sits in front of ordered history reads. Turns on different
// sessions never contend; every write to a session invalidates its entry.
type HistoryCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewHistoryCache(client RedisClient, ttl time.Duration) *HistoryCache {
	return &HistoryCache{client: client, ttl: ttl}
}

func historyKey(sessionID int64) string {
	return "chat_history:" + strconv.FormatInt(sessionID, 10)
}

func (c *HistoryCache) StoreMessages(ctx context.Context, sessionID int64, messages []model.Message) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, historyKey(sessionID), data, c.ttl)
}

// GetMessages returns (nil, nil) on a cache miss.
func (c *HistoryCache) GetMessages(ctx context.Context, sessionID int64) ([]model.Message, error) {
	data, err := c.client.Get(ctx, historyKey(sessionID))
	if err != nil {
		if Nil(err) {
			return nil, nil
		}
		return nil, err
	}
	var messages []model.Message
	if err := json.Unmarshal([]byte(data), &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *HistoryCache) Invalidate(ctx context.Context, sessionID int64) error {
	return c.client.Del(ctx, historyKey(sessionID))
}
