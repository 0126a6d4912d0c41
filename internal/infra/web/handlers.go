// File: internal/infra/web/handlers.go
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"chatanon/internal/domain"
	"chatanon/internal/domain/model"
	"chatanon/internal/infra/logging"
	"chatanon/internal/infra/metrics"
)

// envelope is the uniform response wrapper for the JSON endpoints.
// Streaming responses bypass it entirely.
type envelope struct {
	Status int    `json:"status"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
}

func writeOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(envelope{Status: http.StatusOK, Msg: "ok", Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Status: status, Msg: msg})
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrModelNotFound),
		errors.Is(err, domain.ErrRoleNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeUCError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logging.With(r.Context(), s.log).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

// ---- views ----

type sessionView struct {
	ID        int64     `json:"session_id"`
	RoleID    int64     `json:"role_id"`
	ModelID   int64     `json:"model_id"`
	Name      string    `json:"session_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"last_updated_at"`
}

func toSessionView(s *model.Session) sessionView {
	return sessionView{
		ID:        s.ID,
		RoleID:    s.RoleID,
		ModelID:   s.ModelID,
		Name:      s.Name,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

type messageView struct {
	ID        int64     `json:"message_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Emotion   string    `json:"emotion,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// modelView deliberately omits the endpoint URL and API key.
type modelView struct {
	ID        int64  `json:"model_id"`
	Name      string `json:"model_name"`
	Version   string `json:"model_version"`
	MaxTokens int    `json:"max_tokens"`
}

type expressionView struct {
	AvatarID       int64  `json:"avatar_id"`
	AvatarName     string `json:"avatar_name"`
	Emotion        string `json:"emotion"`
	ExpressionPath string `json:"expression_path"`
	MotionPath     string `json:"motion_path,omitempty"`
}

// ---- send paths ----

type sendRequest struct {
	SessionID int64  `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleSendStream(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Reject before the stream is committed; once the SSE status goes out
	// a plain 400 is no longer possible.
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "empty message")
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	// Status is committed; from here all outcomes travel as events.
	if err := s.relayUC.StreamMessage(r.Context(), req.SessionID, req.Message, sse); err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Int64("session_id", req.SessionID).Msg("streaming turn ended with error")
	}
}

func (s *Server) handleSendOnce(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	reply, err := s.chatUC.SendMessageOnce(r.Context(), req.SessionID, req.Message)
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, struct {
		Reply string `json:"reply"`
	}{reply})
}

// ---- sessions ----

type sessionCreateRequest struct {
	RoleID  int64 `json:"role_id"`
	ModelID int64 `json:"model_id"`
}

func (s *Server) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req sessionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := s.chatUC.CreateSession(r.Context(), userID, req.RoleID, req.ModelID)
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, toSessionView(session))
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request) {
	userID, ok := logging.UserIDFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	sessions, err := s.chatUC.ListSessions(r.Context(), userID)
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	views := make([]sessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, toSessionView(sess))
	}
	writeOK(w, views)
}

type sessionEditRequest struct {
	SessionID int64  `json:"session_id"`
	Name      string `json:"session_name"`
	ModelName string `json:"model_name"`
}

func (s *Server) handleSessionEdit(w http.ResponseWriter, r *http.Request) {
	var req sessionEditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	session, err := s.chatUC.EditSession(r.Context(), req.SessionID, req.Name, req.ModelName)
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, toSessionView(session))
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.chatUC.DeleteSession(r.Context(), id); err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, nil)
}

// ---- messages ----

func (s *Server) handleMessageList(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	msgs, err := s.chatUC.ListMessages(r.Context(), id)
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	views := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, messageView{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			Emotion:   m.Emotion,
			CreatedAt: m.CreatedAt,
		})
	}
	writeOK(w, views)
}

func (s *Server) handleMessagesClear(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.chatUC.ClearMessages(r.Context(), id); err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleMessageDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid message id")
		return
	}
	if err := s.chatUC.DeleteMessage(r.Context(), id); err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, nil)
}

// ---- catalog ----

func (s *Server) handleModelList(w http.ResponseWriter, r *http.Request) {
	models, err := s.chatUC.ListModels(r.Context())
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	views := make([]modelView, 0, len(models))
	for _, m := range models {
		views = append(views, modelView{ID: m.ID, Name: m.Name, Version: m.Version, MaxTokens: m.MaxTokens})
	}
	writeOK(w, views)
}

func (s *Server) handleExpression(w http.ResponseWriter, r *http.Request) {
	expr, err := s.chatUC.GetExpression(r.Context(), r.URL.Query().Get("emotion"))
	if err != nil {
		s.writeUCError(w, r, err)
		return
	}
	writeOK(w, expressionView{
		AvatarID:       expr.AvatarID,
		AvatarName:     expr.AvatarName,
		Emotion:        expr.Emotion,
		ExpressionPath: expr.ExpressionPath,
		MotionPath:     expr.MotionPath,
	})
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// statusRecorder captures the response status for the request metric.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.HTTPRequest(route, rec.status)
	})
}
