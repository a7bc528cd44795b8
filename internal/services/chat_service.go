// Package services – ChatService
//
// This file implements the ChatService, which manages the lifecycle of chats:
// creation with normalized titles, listing with threads, retrieval, history,
// and deletion. Every read or write is scoped by the owner; a chat owned by
// someone else is reported exactly like a missing one (ErrChatNotFound).
package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

// ChatRepo defines the repository contract required by ChatService.
type ChatRepo interface {
	// CreateChat inserts a new chat row for the given user.
	CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error)

	// ListChatsWithMessages returns the user's chats, most recently updated
	// first, each with its messages oldest first.
	ListChatsWithMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error)

	// GetChatWithMessages fetches a chat and its thread, scoped to the owner.
	GetChatWithMessages(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error)

	// DeleteChat removes a chat and its messages, scoped to the owner.
	DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error
}

// ChatService provides chat-level operations.
type ChatService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the chat repository used by this service.
	Repo ChatRepo

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
}

// NewChatService constructs a ChatService with the default title cap.
func NewChatService(db *gorm.DB, r ChatRepo) *ChatService {
	return &ChatService{
		DB:          db,
		Repo:        r,
		TitleMaxLen: DefaultTitleMaxLen,
	}
}

func (s *ChatService) span(ctx context.Context, name, userID string) (context.Context, trace.Span) {
	return otel.Tracer("services/ChatService").Start(ctx, name,
		trace.WithAttributes(attribute.String("user.id", userID)))
}

// Create inserts a new chat owned by userID. Titles are normalized and
// clipped; an empty title becomes domain.DefaultChatTitle. The returned chat
// has an empty, non-nil message list.
func (s *ChatService) Create(ctx context.Context, userID, title string) (*domain.Chat, error) {
	ctx, span := s.span(ctx, "Create", userID)
	defer span.End()

	title = clipRunes(normalizeTitle(title), s.TitleMaxLen)
	if title == "" {
		title = domain.DefaultChatTitle
	}
	c, err := s.Repo.CreateChat(ctx, s.DB, userID, title)
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return c, nil
}

// List returns all chats for a user, most recently updated first, with
// their messages.
func (s *ChatService) List(ctx context.Context, userID string) ([]domain.Chat, error) {
	ctx, span := s.span(ctx, "List", userID)
	defer span.End()

	items, err := s.Repo.ListChatsWithMessages(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Chat{}
	}
	for i := range items {
		if items[i].Messages == nil {
			items[i].Messages = []domain.Message{}
		}
	}
	return items, nil
}

// Get returns one chat with its thread.
func (s *ChatService) Get(ctx context.Context, userID, chatID string) (*domain.Chat, error) {
	ctx, span := s.span(ctx, "Get", userID)
	defer span.End()

	c, err := s.Repo.GetChatWithMessages(ctx, s.DB, chatID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return c, nil
}

// History returns the ordered messages of a chat owned by userID.
func (s *ChatService) History(ctx context.Context, userID, chatID string) ([]domain.Message, error) {
	c, err := s.Get(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}

// Delete removes a chat owned by userID together with its messages.
func (s *ChatService) Delete(ctx context.Context, userID, chatID string) error {
	ctx, span := s.span(ctx, "Delete", userID)
	defer span.End()

	err := s.Repo.DeleteChat(ctx, s.DB, chatID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrChatNotFound
	}
	return err
}
