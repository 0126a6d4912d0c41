// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatanon/internal/config"
	aiAdapters "chatanon/internal/infra/adapters/ai"
	pg "chatanon/internal/infra/db/postgres"
	"chatanon/internal/infra/logging"
	"chatanon/internal/infra/metrics"
	red "chatanon/internal/infra/redis"
	"chatanon/internal/infra/tokenizer"
	"chatanon/internal/infra/web"
	"chatanon/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, verbose)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 10)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	historyCache := red.NewHistoryCache(redisClient, cfg.Redis.TTL)
	rateLimiter := red.NewRateLimiter(redisClient)

	// ---- Repositories ----
	convRepo := pg.NewConversationRepo(pool, historyCache)
	catalogRepo := pg.NewCatalogRepo(pool)

	// ---- AI adapters (one shared client; per-request endpoints come
	// from the model catalog) ----
	httpClient := &http.Client{Timeout: 0} // per-turn deadlines live in contexts
	streamClient := aiAdapters.NewHTTPStreamClient(httpClient, logger)
	classifier := aiAdapters.NewHTTPEmotionClassifier(httpClient, cfg.AI.ClassifyMaxTokens)
	completion := aiAdapters.NewHTTPCompletionClient(httpClient)
	tokens := tokenizer.NewCounter()

	// ---- Use cases ----
	builder := usecase.NewContextBuilder(convRepo, catalogRepo)
	relayUC := usecase.NewRelayUseCase(convRepo, builder, classifier, streamClient, tokens, logger, cfg.AI.ClassifyTimeout, cfg.AI.StreamTimeout)
	chatUC := usecase.NewChatUseCase(convRepo, catalogRepo, builder, completion, tokens, logger, cfg.AI.StreamTimeout)

	// ---- HTTP ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, 24*time.Hour)
	srv := web.NewServer(chatUC, relayUC, auth, rateLimiter, cfg.RateLimit.SendPerMinute, logger)

	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router(),
		// No WriteTimeout: streaming responses stay open for the whole turn.
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("chat api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("api server stopped")
		}
	}()

	adminServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           web.AdminRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info().Str("addr", adminServer.Addr).Msg("admin listening")
		if err := adminServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("admin server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("api shutdown")
	}
	if err := adminServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("admin shutdown")
	}
	cancel()
}
