// Message HTTP handler.
//
// POST /chats/messages appends a user message, asks the completion provider
// for a reply, and returns the chat with its full thread. Without chatId a
// new chat is created and titled from the message.
//
// Idempotency: when the request carries an Idempotency-Key that was already
// used by this user, middleware.IdempotencyValidator marks the request as a
// replay and the stored chat is returned without calling the provider again.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/http/middleware"
	"github.com/tbourn/go-ai-chat/internal/services"
)

// SendMessageRequest is the JSON payload for posting a message.
type SendMessageRequest struct {
	// ChatID targets an existing chat; omitted or empty starts a new one.
	ChatID string `json:"chatId" example:"0198c1d2-7a10-7b55-9e0b-3a1f2e4d5c6b"`
	// Message is the user's text.
	Message string `json:"message" binding:"required" example:"What is the capital of France?"`
	// ModelID selects a model from GET /models; the provider default when empty.
	ModelID string `json:"modelId" example:"deepseek-chat"`
}

// SendMessageResponse carries the updated chat. CompletionError is set when
// the assistant reply is an apology because the provider failed.
type SendMessageResponse struct {
	Chat            *domain.Chat `json:"chat"`
	CompletionError string       `json:"completion_error,omitempty" example:"completion provider error"`
}

// nlCollapseRE collapses runs of 3+ newlines to two, preserving paragraphs.
var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings, collapses blank-line runs, and
// trims surrounding whitespace.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// completionErrorText is the client-facing description of a provider failure.
func completionErrorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, completion.ErrNotConfigured):
		return "completion provider not configured"
	case errors.Is(err, context.DeadlineExceeded):
		return "completion timed out"
	default:
		return "completion provider error"
	}
}

// SendMessage godoc
// @ID          sendMessage
// @Summary     Send a message
// @Description Appends the user's message, obtains the assistant reply, and returns the chat with all messages.
// @Description When the provider fails, an apology is stored as the reply and completion_error is set.
// @Description An Idempotency-Key header makes retries return the chat created by the first attempt.
// @Tags        Messages
// @Accept      json
// @Produce     json
// @Security    BearerAuth
//
// @Param       Idempotency-Key  header  string                       false  "Client-supplied key for safe retries"
// @Param       body             body    handlers.SendMessageRequest  true   "Message payload"
//
// @Success     200  {object} handlers.SendMessageResponse
// @Header      200  {string} Idempotency-Replayed "true when the response is a replay"
// @Failure     400  {object} handlers.ErrorResponse "Empty, too long, or malformed"
// @Failure     401  {object} handlers.ErrorResponse "Unauthorized"
// @Failure     404  {object} handlers.ErrorResponse "Chat not found"
// @Failure     413  {object} handlers.ErrorResponse "Payload too large"
// @Failure     429  {object} handlers.ErrorResponse "Too many requests"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /chats/messages [post]
func (h *Handlers) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if middleware.IsReplay(c) {
		if ch, err := h.chatSvc.Get(ctx, uid, middleware.ReplayChatID(c)); err == nil {
			c.Header(middleware.HeaderIdempotencyReplayed, "true")
			ok(c, http.StatusOK, SendMessageResponse{Chat: ch})
			return
		}
		// Stored chat is gone; process as a fresh request.
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required")
		return
	}
	chatID := strings.TrimSpace(req.ChatID)
	if chatID != "" {
		if _, err := uuid.Parse(chatID); err != nil {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "chatId must be a UUID")
			return
		}
	}
	content := sanitizeContent(req.Message)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message must not be empty")
		return
	}

	res, err := h.msgSvc.Send(ctx, uid, chatID, content, strings.TrimSpace(req.ModelID))
	switch {
	case errors.Is(err, services.ErrEmptyPrompt), errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return
	case errors.Is(err, services.ErrChatNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "chat not found")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "send message", err)
		return
	}

	if key, has := middleware.GetIdempotencyKey(c); has && h.Idempotency != nil {
		if err := h.Idempotency.Remember(ctx, uid, key, res.Chat.ID, http.StatusOK); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency record not saved")
		}
	}

	ok(c, http.StatusOK, SendMessageResponse{
		Chat:            res.Chat,
		CompletionError: completionErrorText(res.CompletionErr),
	})
}
