// File: internal/infra/web/mock_test.go
package web

import (
	"context"
	"time"

	"chatanon/internal/domain/model"
	"chatanon/internal/infra/redis"
	"chatanon/internal/usecase"
)

// Hand-written fakes with overridable behavior per test.

type fakeChatUC struct {
	sendOnceFn      func(ctx context.Context, sessionID int64, msg string) (string, error)
	createSessionFn func(ctx context.Context, userID, roleID, modelID int64) (*model.Session, error)
	listSessionsFn  func(ctx context.Context, userID int64) ([]*model.Session, error)
	editSessionFn   func(ctx context.Context, sessionID int64, name, modelName string) (*model.Session, error)
	deleteSessionFn func(ctx context.Context, sessionID int64) error
	listMessagesFn  func(ctx context.Context, sessionID int64) ([]model.Message, error)
	clearMessagesFn func(ctx context.Context, sessionID int64) error
	deleteMessageFn func(ctx context.Context, messageID int64) error
	listModelsFn    func(ctx context.Context) ([]*model.ModelConfig, error)
	getExpressionFn func(ctx context.Context, emotion string) (*model.Expression, error)
}

var _ usecase.ChatUseCase = (*fakeChatUC)(nil)

func (f *fakeChatUC) SendMessageOnce(ctx context.Context, sessionID int64, msg string) (string, error) {
	return f.sendOnceFn(ctx, sessionID, msg)
}

func (f *fakeChatUC) CreateSession(ctx context.Context, userID, roleID, modelID int64) (*model.Session, error) {
	return f.createSessionFn(ctx, userID, roleID, modelID)
}

func (f *fakeChatUC) ListSessions(ctx context.Context, userID int64) ([]*model.Session, error) {
	return f.listSessionsFn(ctx, userID)
}

func (f *fakeChatUC) EditSession(ctx context.Context, sessionID int64, name, modelName string) (*model.Session, error) {
	return f.editSessionFn(ctx, sessionID, name, modelName)
}

func (f *fakeChatUC) DeleteSession(ctx context.Context, sessionID int64) error {
	return f.deleteSessionFn(ctx, sessionID)
}

func (f *fakeChatUC) ListMessages(ctx context.Context, sessionID int64) ([]model.Message, error) {
	return f.listMessagesFn(ctx, sessionID)
}

func (f *fakeChatUC) ClearMessages(ctx context.Context, sessionID int64) error {
	return f.clearMessagesFn(ctx, sessionID)
}

func (f *fakeChatUC) DeleteMessage(ctx context.Context, messageID int64) error {
	return f.deleteMessageFn(ctx, messageID)
}

func (f *fakeChatUC) ListModels(ctx context.Context) ([]*model.ModelConfig, error) {
	return f.listModelsFn(ctx)
}

func (f *fakeChatUC) GetExpression(ctx context.Context, emotion string) (*model.Expression, error) {
	return f.getExpressionFn(ctx, emotion)
}

type fakeRelayUC struct {
	streamFn func(ctx context.Context, sessionID int64, msg string, out usecase.Emitter) error
}

var _ usecase.RelayUseCase = (*fakeRelayUC)(nil)

func (f *fakeRelayUC) StreamMessage(ctx context.Context, sessionID int64, msg string, out usecase.Emitter) error {
	return f.streamFn(ctx, sessionID, msg, out)
}

// fakeRedisClient backs the rate limiter in middleware tests.
type fakeRedisClient struct {
	counts  map[string]int64
	incrErr error
}

var _ redis.RedisClient = (*fakeRedisClient)(nil)

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{counts: make(map[string]int64)}
}

func (f *fakeRedisClient) Ping(context.Context) error { return nil }

func (f *fakeRedisClient) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}

func (f *fakeRedisClient) Get(_ context.Context, _ string) (string, error) { return "", nil }

func (f *fakeRedisClient) Incr(_ context.Context, key string) (int64, error) {
	if f.incrErr != nil {
		return 0, f.incrErr
	}
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeRedisClient) Expire(_ context.Context, _ string, _ time.Duration) error { return nil }

func (f *fakeRedisClient) Del(_ context.Context, _ ...string) error { return nil }

func (f *fakeRedisClient) Close() error { return nil }
