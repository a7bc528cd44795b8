// Chat HTTP handlers.
//
// This file wires the handler set and exposes the chat resource endpoints:
//   - GET    /chats                  (list with threads, weak ETag)
//   - POST   /chats                  (create)
//   - DELETE /chats?id=              (delete)
//   - GET    /chats/history?chatId=  (ordered messages)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/http/middleware"
	"github.com/tbourn/go-ai-chat/internal/services"
)

//
// Service contracts (context-aware)
//

// AuthService registers and authenticates users.
type AuthService interface {
	Signup(ctx context.Context, email, password string) (*domain.User, error)
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
}

// ChatService defines chat lifecycle operations consumed by HTTP handlers.
// Every method is scoped to userID; foreign chats are ErrChatNotFound.
type ChatService interface {
	Create(ctx context.Context, userID, title string) (*domain.Chat, error)
	List(ctx context.Context, userID string) ([]domain.Chat, error)
	Get(ctx context.Context, userID, chatID string) (*domain.Chat, error)
	History(ctx context.Context, userID, chatID string) ([]domain.Message, error)
	Delete(ctx context.Context, userID, chatID string) error
}

// MessageService appends a user message and its assistant reply.
type MessageService interface {
	Send(ctx context.Context, userID, chatID, content, modelID string) (*services.SendResult, error)
}

// ModelCatalog describes the configured completion provider.
type ModelCatalog interface {
	Provider() string
	Models() []completion.Model
}

// ChatStats feeds the chat list ETag.
type ChatStats interface {
	ChatsStats(ctx context.Context, userID string) (int64, *time.Time, error)
}

// IdempotencyRecorder remembers which chat a keyed message request produced.
type IdempotencyRecorder interface {
	Remember(ctx context.Context, userID, key, chatID string, status int) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints. Stats and Idempotency are optional;
// without them the chat list carries no ETag and keys are not recorded.
type Handlers struct {
	authSvc AuthService
	chatSvc ChatService
	msgSvc  MessageService
	catalog ModelCatalog

	Stats       ChatStats
	Idempotency IdempotencyRecorder
}

// New constructs a Handlers instance bound to the given services.
func New(authSvc AuthService, chatSvc ChatService, msgSvc MessageService, catalog ModelCatalog) *Handlers {
	return &Handlers{authSvc: authSvc, chatSvc: chatSvc, msgSvc: msgSvc, catalog: catalog}
}

// userID returns the authenticated user set by middleware.RequireAuth.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}

// parseChatID validates a chat id taken from the query string.
func parseChatID(c *gin.Context, param string) (string, bool) {
	raw := strings.TrimSpace(c.Query(param))
	if raw == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, param+" is required")
		return "", false
	}
	if _, err := uuid.Parse(raw); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, param+" must be a UUID")
		return "", false
	}
	return raw, true
}

//
// DTOs
//

// CreateChatRequest is the JSON payload for creating a chat.
type CreateChatRequest struct {
	// Title optionally sets the chat title; "New chat" is used when empty.
	Title string `json:"title" binding:"max=255" example:"Trip to Lisbon"`
}

// ChatResponse wraps a single chat with its messages.
type ChatResponse struct {
	Chat *domain.Chat `json:"chat"`
}

// ListChatsResponse wraps the user's chats, most recently updated first.
type ListChatsResponse struct {
	Chats []domain.Chat `json:"chats"`
}

// DeleteChatResponse acknowledges a deletion.
type DeleteChatResponse struct {
	Success bool `json:"success" example:"true"`
}

// HistoryResponse wraps a chat's messages, oldest first.
type HistoryResponse struct {
	History []domain.Message `json:"history"`
}

//
// Handlers
//

// ListChats godoc
// @ID          listChats
// @Summary     List chats
// @Description Returns the user's chats, most recently updated first, each with its messages oldest first.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"chats:u1:3:1700000000000000\")
//
// @Success     200  {object} handlers.ListChatsResponse
// @Header      200  {string} ETag "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats [get]
func (h *Handlers) ListChats(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if h.Stats != nil {
		count, latest, err := h.Stats.ChatsStats(ctx, uid)
		if err == nil {
			var ts int64
			if latest != nil {
				ts = latest.UnixMicro()
			}
			etag := fmt.Sprintf(`W/"chats:%s:%d:%d"`, uid, count, ts)
			c.Header("ETag", etag)
			if etagMatches(c.GetHeader("If-None-Match"), etag) {
				c.Status(http.StatusNotModified)
				return
			}
		} else {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("chat stats unavailable; skipping ETag")
		}
	}

	items, err := h.chatSvc.List(ctx, uid)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "list chats", err)
		return
	}
	ok(c, http.StatusOK, ListChatsResponse{Chats: items})
}

// CreateChat godoc
// @ID          createChat
// @Summary     Create a new chat
// @Description Creates an empty chat for the current user. The body is optional.
// @Tags        Chats
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       body  body  handlers.CreateChatRequest  false  "Create chat payload"
//
// @Success     201  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     401  {object}  handlers.ErrorResponse  "Unauthorized"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chats [post]
func (h *Handlers) CreateChat(c *gin.Context) {
	var req CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ch, err := h.chatSvc.Create(c.Request.Context(), userID(c), req.Title)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "create chat", err)
		return
	}
	ok(c, http.StatusCreated, ChatResponse{Chat: ch})
}

// DeleteChat godoc
// @ID          deleteChat
// @Summary     Delete a chat
// @Description Deletes a chat owned by the current user together with its messages.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       id  query  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.DeleteChatResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or malformed id"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats [delete]
func (h *Handlers) DeleteChat(c *gin.Context) {
	chatID, valid := parseChatID(c, "id")
	if !valid {
		return
	}

	err := h.chatSvc.Delete(c.Request.Context(), userID(c), chatID)
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeDeleteFailed, "delete chat", err)
	default:
		ok(c, http.StatusOK, DeleteChatResponse{Success: true})
	}
}

// ChatHistory godoc
// @ID          chatHistory
// @Summary     Get chat history
// @Description Returns the messages of a chat owned by the current user, oldest first.
// @Tags        Chats
// @Produce     json
// @Security    BearerAuth
//
// @Param       chatId  query  string  true  "Chat ID (UUID)"  format(uuid)
//
// @Success     200  {object} handlers.HistoryResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or malformed chatId"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/history [get]
func (h *Handlers) ChatHistory(c *gin.Context) {
	chatID, valid := parseChatID(c, "chatId")
	if !valid {
		return
	}

	msgs, err := h.chatSvc.History(c.Request.Context(), userID(c), chatID)
	switch {
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "chat history", err)
		return
	}

	// The thread is append-only, so count plus newest id identifies it.
	var last string
	if n := len(msgs); n > 0 {
		last = msgs[n-1].ID
	}
	etag := fmt.Sprintf(`W/"history:%s:%d:%s"`, chatID, len(msgs), last)
	c.Header("ETag", etag)
	if etagMatches(c.GetHeader("If-None-Match"), etag) {
		c.Status(http.StatusNotModified)
		return
	}
	ok(c, http.StatusOK, HistoryResponse{History: msgs})
}

// etagMatches reports whether an If-None-Match value lists etag (or "*").
func etagMatches(header, etag string) bool {
	if header == "" {
		return false
	}
	for _, v := range strings.Split(header, ",") {
		v = strings.TrimSpace(v)
		if v == "*" || v == etag {
			return true
		}
	}
	return false
}
