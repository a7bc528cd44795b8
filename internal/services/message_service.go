// Package services – MessageService
//
// This file implements MessageService, which owns the send-a-message flow:
// validate the text, resolve (or create) the chat, persist the user message,
// ask the completion gateway for a reply using the prior turns, and persist
// the assistant message. Appends bump the chat's updated_at.
//
// A gateway failure does not fail the request: an apology is stored as the
// assistant reply and the error is handed back next to the chat so the
// handler can flag it.
//
// Observability: public methods are OpenTelemetry-instrumented.
package services

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/repo"
)

// DefaultApology is stored as the assistant reply when the provider fails.
const DefaultApology = "Sorry, I couldn't get a response from the AI service right now. Please try again."

// SendResult is the outcome of Send: the chat with its full thread, and the
// completion error if the reply is an apology.
type SendResult struct {
	Chat          *domain.Chat
	CompletionErr error
}

// MessageService coordinates message persistence and completion calls.
type MessageService struct {
	DB      *gorm.DB
	Gateway completion.Gateway

	// MaxPromptRunes rejects longer messages with ErrTooLong (0 = unlimited).
	MaxPromptRunes int
	// HistoryLimit caps the prior turns sent to the provider (0 = all).
	HistoryLimit int
	// Apology replaces a failed completion; DefaultApology when empty.
	Apology string

	// Title generation config
	TitleLocale language.Tag
	TitleMaxLen int

	// now is the clock; tests override it.
	now func() time.Time
}

// NewMessageService returns a MessageService with sane limits.
func NewMessageService(db *gorm.DB, gw completion.Gateway) *MessageService {
	return &MessageService{
		DB:             db,
		Gateway:        gw,
		MaxPromptRunes: 8000,
		HistoryLimit:   50,
		TitleLocale:    language.English,
		TitleMaxLen:    DefaultTitleMaxLen,
	}
}

func (s *MessageService) clock() time.Time {
	if s.now != nil {
		return s.now().UTC()
	}
	return time.Now().UTC()
}

// Send appends content as a user message to chatID (or to a new chat when
// chatID is empty), obtains an assistant reply, and returns the updated chat.
//
// Errors: ErrEmptyPrompt, ErrTooLong, ErrChatNotFound, or a storage error.
// Provider failures are reported through SendResult.CompletionErr instead.
func (s *MessageService) Send(ctx context.Context, userID, chatID, content, modelID string) (*SendResult, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("chat.id", chatID),
			attribute.String("user.id", userID),
			attribute.String("completion.model", modelID),
		),
	)
	defer span.End()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyPrompt
	}
	if s.MaxPromptRunes > 0 && utf8.RuneCountInString(content) > s.MaxPromptRunes {
		return nil, ErrTooLong
	}

	// Persist the user message (creating the chat if needed) and auto-title.
	// Prior turns are read before the new message is stored: the provider
	// receives the new message once, as the final turn.
	var history []domain.Message
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var chat *domain.Chat
		if chatID == "" {
			c, err := repo.CreateChat(ctx, tx, userID, domain.DefaultChatTitle)
			if err != nil {
				return err
			}
			chat, chatID = c, c.ID
		} else {
			c, err := repo.GetChat(ctx, tx, chatID, userID)
			if err != nil {
				if errors.Is(err, repo.ErrNotFound) {
					return ErrChatNotFound
				}
				return err
			}
			chat = c
			h, err := repo.ListMessages(ctx, tx, chatID, s.HistoryLimit)
			if err != nil {
				return err
			}
			history = h
		}

		if _, err := repo.CreateMessage(ctx, tx, chatID, domain.RoleUser, content); err != nil {
			return err
		}
		if isPlaceholderTitle(chat.Title) {
			if gen := clipRunes(titleFromMessage(content, s.TitleLocale), s.TitleMaxLen); gen != "" {
				if err := repo.UpdateChatTitle(ctx, tx, chatID, userID, gen); err != nil {
					return err
				}
			}
		}
		return repo.TouchChat(ctx, tx, chatID, s.clock())
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("chat.id", chatID))

	reply, cerr := s.complete(ctx, content, history, modelID)
	if cerr != nil {
		span.RecordError(cerr)
		span.SetStatus(codes.Error, "completion failed")
		log.Ctx(ctx).Warn().Err(cerr).Str("chat_id", chatID).Msg("completion failed; storing apology")
	}

	// The reply is stored even when the caller went away during completion,
	// so the chat never ends on an unanswered user turn.
	wctx := context.WithoutCancel(ctx)
	err = s.DB.WithContext(wctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateMessage(wctx, tx, chatID, domain.RoleAssistant, reply); err != nil {
			return err
		}
		return repo.TouchChat(wctx, tx, chatID, s.clock())
	})
	if err != nil {
		return nil, err
	}

	chat, err := repo.GetChatWithMessages(wctx, s.DB, chatID, userID)
	if err != nil {
		return nil, err
	}
	return &SendResult{Chat: chat, CompletionErr: cerr}, nil
}

// complete calls the gateway and falls back to the apology text on error.
func (s *MessageService) complete(ctx context.Context, content string, history []domain.Message, modelID string) (string, error) {
	apology := s.Apology
	if apology == "" {
		apology = DefaultApology
	}
	if s.Gateway == nil {
		return apology, completion.ErrNotConfigured
	}

	turns := make([]completion.Turn, 0, len(history))
	for _, m := range history {
		turns = append(turns, completion.Turn{Role: m.Role, Content: m.Content})
	}
	text, err := s.Gateway.Complete(ctx, content, turns, modelID)
	if err != nil {
		return apology, err
	}
	return text, nil
}
