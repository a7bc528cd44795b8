// Command server runs the chat API: accounts, chats, and LLM-backed replies.
//
// @title                      Go AI Chat API
// @version                    1.0
// @description                Accounts, chats, and LLM-backed replies.
// @BasePath                   /api/v1
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
// @description                Type "Bearer" followed by a space and the token.
package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-ai-chat/internal/auth"
	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/config"
	httpapi "github.com/tbourn/go-ai-chat/internal/http"
	"github.com/tbourn/go-ai-chat/internal/observability"
	"github.com/tbourn/go-ai-chat/internal/repo"
	"github.com/tbourn/go-ai-chat/internal/sysutil"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		sysutil.SetupLogger("info", false, nil)
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	sysutil.SetupLogger(cfg.LogLevel, cfg.LogPretty, nil)
	release := sysutil.FirstNonEmpty(cfg.Version, version)

	if err := run(cfg, release); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, release string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	flushSentry, err := observability.SetupSentry(observability.SentryOptions{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.AppEnv,
		Release:          release,
		TracesSampleRate: 0.2,
	})
	if err != nil {
		log.Error().Err(err).Msg("sentry init failed; continuing without error reporting")
	}
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, release, cfg.AppEnv)
	if err != nil {
		log.Error().Err(err).Msg("otel init failed; continuing without tracing")
	}

	// Storage
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return err
	}
	if err := repo.AutoMigrate(db); err != nil {
		return err
	}

	// Identity and completion
	tokens, err := auth.NewTokenService(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	gw, err := completion.New(cfg.AI)
	if err != nil {
		return err
	}
	log.Info().
		Str("provider", gw.Provider()).
		Str("db", cfg.DB.Driver).
		Str("release", release).
		Msg("starting")

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, tokens, gw, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	// In-flight completions may take up to AI_TIMEOUT.
	sctx, cancel := context.WithTimeout(context.Background(), cfg.AI.Timeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if c, ok := gw.(io.Closer); ok {
		_ = c.Close()
	}
	if err := shutdownOTel(sctx); err != nil {
		log.Error().Err(err).Msg("otel shutdown")
	}
	_ = flushSentry(sctx)
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
	return nil
}
