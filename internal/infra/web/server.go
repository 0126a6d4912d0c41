// File: internal/infra/web/server.go
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"chatanon/internal/domain"
	"chatanon/internal/infra/logging"
	"chatanon/internal/infra/redis"
	"chatanon/internal/usecase"
)

// Server wires the chat API: authenticated JSON endpoints plus the SSE
// streaming path, with per-user rate limiting on the send routes.
type Server struct {
	chatUC  usecase.ChatUseCase
	relayUC usecase.RelayUseCase
	auth    *AuthManager
	limiter *redis.RateLimiter
	log     *zerolog.Logger

	sendPerMinute int
}

func NewServer(
	chatUC usecase.ChatUseCase,
	relayUC usecase.RelayUseCase,
	auth *AuthManager,
	limiter *redis.RateLimiter,
	sendPerMinute int,
	logger *zerolog.Logger,
) *Server {
	if sendPerMinute <= 0 {
		sendPerMinute = 20
	}
	return &Server{
		chatUC:        chatUC,
		relayUC:       relayUC,
		auth:          auth,
		limiter:       limiter,
		sendPerMinute: sendPerMinute,
		log:           logger,
	}
}

// Router builds the public API router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.traceMiddleware)
	r.Use(s.observe)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeOK(w, nil)
	})

	r.Route("/api/chat", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Group(func(r chi.Router) {
			r.Use(s.sendLimitMiddleware)
			r.Post("/sendMessage/stream", s.handleSendStream)
			r.Post("/sendMessage/once", s.handleSendOnce)
		})

		r.Get("/model/list", s.handleModelList)
		r.Get("/expression", s.handleExpression)

		r.Post("/session/create", s.handleSessionCreate)
		r.Get("/session/list", s.handleSessionList)
		r.Post("/session/edit", s.handleSessionEdit)
		r.Delete("/session/{id}", s.handleSessionDelete)
		r.Get("/session/{id}/messages", s.handleMessageList)
		r.Delete("/session/{id}/messages", s.handleMessagesClear)
		r.Delete("/message/{id}", s.handleMessageDelete)
	})

	return r
}

// AdminRouter serves metrics and health on the internal port.
func AdminRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sendLimitMiddleware caps send operations per user per minute. A limiter
// backend failure lets the request through; limiting is protective, not
// load-bearing.
func (s *Server) sendLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		userID, ok := logging.UserIDFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		allowed, err := s.limiter.Allow(r.Context(), redis.UserSendKey(userID), s.sendPerMinute, time.Minute)
		if err != nil {
			logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			writeError(w, statusFor(domain.ErrRateLimited), domain.ErrRateLimited.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}
