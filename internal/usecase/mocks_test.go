// File: internal/usecase/mocks_test.go
package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/domain/ports/adapter"
)

// ---- conversation store ----

type memConversationStore struct {
	mu       sync.Mutex
	sessions map[int64]*model.Session
	messages map[int64]model.Message
	nextSess int64
	nextMsg  int64

	appendErr    error
	appendErrFor model.RoleKind // only fail appends of this role when set
	getErr       error
	listErr      error
}

func newMemConversationStore() *memConversationStore {
	return &memConversationStore{
		sessions: make(map[int64]*model.Session),
		messages: make(map[int64]model.Message),
		nextSess: 1,
		nextMsg:  1,
	}
}

func (s *memConversationStore) CreateSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session.ID = s.nextSess
	s.nextSess++
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *memConversationStore) GetSession(_ context.Context, id int64) (*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	cp := *sess
	return &cp, nil
}

func (s *memConversationStore) ListSessionsByUser(_ context.Context, userID int64) ([]*model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Session
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			cp := *sess
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memConversationStore) UpdateSession(_ context.Context, session *model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	cp := *session
	s.sessions[session.ID] = &cp
	return nil
}

func (s *memConversationStore) DeleteSession(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	for mid, m := range s.messages {
		if m.SessionID == id {
			delete(s.messages, mid)
		}
	}
	return nil
}

func (s *memConversationStore) AppendMessage(_ context.Context, message *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil && (s.appendErrFor == "" || s.appendErrFor == message.Role) {
		return s.appendErr
	}
	if _, ok := s.sessions[message.SessionID]; !ok {
		return domain.ErrSessionNotFound
	}
	message.ID = s.nextMsg
	s.nextMsg++
	message.CreatedAt = time.Now()
	s.messages[message.ID] = *message
	return nil
}

func (s *memConversationStore) ListMessages(_ context.Context, sessionID int64) ([]model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []model.Message
	for _, m := range s.messages {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memConversationStore) DeleteMessage(_ context.Context, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.messages, messageID)
	return nil
}

func (s *memConversationStore) ClearMessages(_ context.Context, sessionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for mid, m := range s.messages {
		if m.SessionID == sessionID {
			delete(s.messages, mid)
		}
	}
	return nil
}

// messagesByRole returns the persisted messages of one role, ordered.
func (s *memConversationStore) messagesByRole(sessionID int64, role model.RoleKind) []model.Message {
	msgs, _ := s.ListMessages(context.Background(), sessionID)
	var out []model.Message
	for _, m := range msgs {
		if m.Role == role {
			out = append(out, m)
		}
	}
	return out
}

// ---- catalog ----

type memCatalog struct {
	models      map[int64]*model.ModelConfig
	roles       map[int64]*model.RoleProfile
	backgrounds map[int64][]string
	profiles    map[int64]*model.EmotionProfile
	expressions map[string]*model.Expression
}

func newMemCatalog() *memCatalog {
	return &memCatalog{
		models:      make(map[int64]*model.ModelConfig),
		roles:       make(map[int64]*model.RoleProfile),
		backgrounds: make(map[int64][]string),
		profiles:    make(map[int64]*model.EmotionProfile),
		expressions: make(map[string]*model.Expression),
	}
}

func (c *memCatalog) GetModelConfig(_ context.Context, id int64) (*model.ModelConfig, error) {
	m, ok := c.models[id]
	if !ok {
		return nil, domain.ErrModelNotFound
	}
	return m, nil
}

func (c *memCatalog) GetModelConfigByName(_ context.Context, name string) (*model.ModelConfig, error) {
	for _, m := range c.models {
		if m.Name == name {
			return m, nil
		}
	}
	return nil, domain.ErrModelNotFound
}

func (c *memCatalog) ListModelConfigs(_ context.Context) ([]*model.ModelConfig, error) {
	var out []*model.ModelConfig
	for _, m := range c.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *memCatalog) GetRoleProfile(_ context.Context, roleID int64) (*model.RoleProfile, error) {
	r, ok := c.roles[roleID]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return r, nil
}

func (c *memCatalog) GetBackgroundPrompts(_ context.Context, roleID int64) ([]string, error) {
	return c.backgrounds[roleID], nil
}

func (c *memCatalog) GetEmotionProfile(_ context.Context, roleID int64) (*model.EmotionProfile, error) {
	p, ok := c.profiles[roleID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (c *memCatalog) GetExpression(_ context.Context, emotion string) (*model.Expression, error) {
	e, ok := c.expressions[emotion]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return e, nil
}

// ---- AI adapters ----

type fakeStreamClient struct {
	chunks  []adapter.StreamChunk
	openErr error

	gotMessages []adapter.Message
	gotCfg      *model.ModelConfig
}

func (f *fakeStreamClient) StreamGenerate(ctx context.Context, cfg *model.ModelConfig, messages []adapter.Message) (<-chan adapter.StreamChunk, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	f.gotCfg = cfg
	f.gotMessages = messages
	ch := make(chan adapter.StreamChunk)
	go func() {
		defer close(ch)
		for _, c := range f.chunks {
			select {
			case ch <- c:
			case <-ctx.Done():
				return
			}
			if c.Done {
				return
			}
		}
	}()
	return ch, nil
}

type fakeClassifier struct {
	label string
	err   error

	gotInstruction string
	gotMessages    []adapter.Message
	calls          int
}

func (f *fakeClassifier) Classify(_ context.Context, _ *model.ModelConfig, instruction string, messages []adapter.Message) (string, error) {
	f.calls++
	f.gotInstruction = instruction
	f.gotMessages = messages
	return f.label, f.err
}

type fakeCompletion struct {
	reply string
	err   error

	gotMessages []adapter.Message
}

func (f *fakeCompletion) Complete(_ context.Context, _ *model.ModelConfig, messages []adapter.Message) (string, error) {
	f.gotMessages = messages
	return f.reply, f.err
}

type fakeTokenCounter struct{}

func (fakeTokenCounter) Count(_, text string) int { return len(text) }

// ---- emitter ----

type emitted struct {
	event   string // "" for bare data
	payload string
}

type captureEmitter struct {
	mu   sync.Mutex
	sent []emitted

	dataErrAfter int // fail the Nth Data call (1-based); 0 disables
	dataCalls    int
}

func (e *captureEmitter) Event(name, payload string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sent = append(e.sent, emitted{event: name, payload: payload})
	return nil
}

func (e *captureEmitter) Data(payload string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dataCalls++
	if e.dataErrAfter > 0 && e.dataCalls >= e.dataErrAfter {
		return errClientGone
	}
	e.sent = append(e.sent, emitted{payload: payload})
	return nil
}

func (e *captureEmitter) all() []emitted {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]emitted, len(e.sent))
	copy(out, e.sent)
	return out
}
