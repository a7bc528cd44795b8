// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Chat model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business logic, only persistence and query composition.
//
// Error semantics:
//   - When a chat is not found (or is owned by someone else), functions
//     return gorm.ErrRecordNotFound (exported here as ErrNotFound).
//   - On DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - CreateChat(ctx, db, userID, title) -> *domain.Chat, error
//   - ListChatsWithMessages(ctx, db, userID) -> []domain.Chat, error
//     Most recently updated first; each chat's messages oldest first.
//   - GetChat(ctx, db, id, userID) -> *domain.Chat, error
//   - GetChatWithMessages(ctx, db, id, userID) -> *domain.Chat, error
//   - UpdateChatTitle(ctx, db, id, userID, title) -> error
//   - TouchChat(ctx, db, id, at) -> error
//   - DeleteChat(ctx, db, id, userID) -> error
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateChat inserts a new Chat owned by userID. The returned chat carries an
// empty (non-nil) message list.
func CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	now := time.Now().UTC()
	c := &domain.Chat{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	c.Messages = []domain.Message{}
	return c, nil
}

func orderedMessages(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC, id ASC")
}

// ListChatsWithMessages returns every chat owned by userID, most recently
// updated first, each with its messages preloaded in conversation order.
func ListChatsWithMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	out := []domain.Chat{}
	err := db.WithContext(ctx).
		Preload("Messages", orderedMessages).
		Where("user_id = ?", userID).
		Order("updated_at DESC, id DESC").
		Find(&out).Error
	return out, err
}

// GetChat fetches a single chat by its ID and owner. Chats owned by another
// user are reported as ErrNotFound.
func GetChat(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatWithMessages is GetChat with the thread preloaded.
func GetChatWithMessages(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	var c domain.Chat
	err := db.WithContext(ctx).
		Preload("Messages", orderedMessages).
		Where("id = ? AND user_id = ?", id, userID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	if c.Messages == nil {
		c.Messages = []domain.Message{}
	}
	return &c, nil
}

// UpdateChatTitle updates the title of a chat owned by userID.
// It returns ErrNotFound when no row matched.
func UpdateChatTitle(ctx context.Context, db *gorm.DB, id, userID, title string) error {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("title", title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchChat sets the chat's updated_at so it sorts first in listings.
func TouchChat(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Chat{}).
		Where("id = ?", id).
		UpdateColumn("updated_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteChat hard-deletes a chat owned by userID together with its messages.
// The delete is a single statement scoped by id AND user_id, so a missing
// chat and a foreign chat both yield ErrNotFound.
func DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND user_id = ?", id, userID).Delete(&domain.Chat{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		// FK cascade covers this on postgres and on SQLite with foreign_keys=ON;
		// the explicit delete keeps connections without the PRAGMA consistent.
		return tx.Where("chat_id = ?", id).Delete(&domain.Message{}).Error
	})
}
