// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, compression, security headers, authentication, idempotency, and rate
// limiting.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/docs"
	"github.com/tbourn/go-ai-chat/internal/auth"
	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/config"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/http/handlers"
	"github.com/tbourn/go-ai-chat/internal/http/middleware"
	"github.com/tbourn/go-ai-chat/internal/repo"
	"github.com/tbourn/go-ai-chat/internal/services"
)

// chatRepoShim adapts the repository free functions to the services.ChatRepo
// interface expected by the ChatService.
type chatRepoShim struct{}

func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}

func (chatRepoShim) ListChatsWithMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChatsWithMessages(ctx, db, userID)
}

func (chatRepoShim) GetChatWithMessages(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChatWithMessages(ctx, db, id, userID)
}

func (chatRepoShim) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}

// dbStats feeds the chat list ETag from repo.ChatsStats.
type dbStats struct{ db *gorm.DB }

func (s dbStats) ChatsStats(ctx context.Context, userID string) (int64, *time.Time, error) {
	return repo.ChatsStats(ctx, s.db, userID)
}

// dbIdempotency stores Idempotency-Key outcomes in the idempotency table.
type dbIdempotency struct {
	db  *gorm.DB
	ttl time.Duration
}

// Lookup implements middleware.IdempotencyLookup.
func (s dbIdempotency) Lookup(ctx context.Context, userID, key string, now time.Time) (string, bool, error) {
	rec, err := repo.GetIdempotency(ctx, s.db, userID, key, now)
	if errors.Is(err, repo.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return rec.ChatID, true, nil
}

// Remember implements handlers.IdempotencyRecorder. A concurrent request
// that recorded the same key first wins.
func (s dbIdempotency) Remember(ctx context.Context, userID, key, chatID string, status int) error {
	_, err := repo.CreateIdempotency(ctx, s.db, userID, key, chatID, status, s.ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine and mounts the public API under cfg.APIBasePath. tokens signs and
// verifies bearer tokens; gw may be nil, in which case every reply is the
// apology message.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. RedactingLogger: structured logs with PII scrubbing
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. CORS, gzip and security headers
//
// Per group: /auth adds no-store and a strict per-IP limiter; protected
// routes run RequireAuth, then the idempotency validator (so replays can
// bypass), then the per-user limiter.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, tokens *auth.TokenService, gw completion.Gateway, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{"X-API-Key"},
	}))

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit
	r.Use(middleware.BodyLimit(middleware.DefaultMaxBodyBytes))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) CORS posture (allow all when no origins are configured)
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID", middleware.HeaderIdempotencyKey},
		ExposeHeaders:    []string{"X-Request-ID", "ETag", middleware.HeaderIdempotencyReplayed},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← repo/db/gateway
	authSvc := services.NewAuthService(db, tokens)
	chatSvc := services.NewChatService(db, chatRepoShim{})
	msgSvc := services.NewMessageService(db, gw)

	var catalog handlers.ModelCatalog
	if gw != nil {
		catalog = gw
	}
	idem := dbIdempotency{db: db, ttl: cfg.IdempotencyTTL}

	h := handlers.New(authSvc, chatSvc, msgSvc, catalog)
	h.Stats = dbStats{db: db}
	h.Idempotency = idem

	authLimiter := middleware.NewRateLimiter("auth", cfg.AuthRateRPS, cfg.AuthRateBurst, middleware.KeyByIP())
	userLimiter := middleware.NewRateLimiter("api", cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())

	// Public API
	api := groupWithPrefix(r, cfg.APIBasePath)
	{
		api.GET("/models", h.ListModels)

		// Accounts
		acct := api.Group("/auth", middleware.NoStore(), authLimiter.Handler())
		acct.POST("/signup", h.Signup)
		acct.POST("/login", h.Login)

		// Chats and messages (bearer token required)
		chats := api.Group("/chats",
			middleware.RequireAuth(tokens),
			middleware.IdempotencyValidator(middleware.IdempotencyOptions{MaxLen: 200}, idem.Lookup),
			userLimiter.Handler(),
		)
		chats.GET("", h.ListChats)
		chats.POST("", h.CreateChat)
		chats.DELETE("", h.DeleteChat)
		chats.GET("/history", h.ChatHistory)
		chats.POST("/messages", h.SendMessage)
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
