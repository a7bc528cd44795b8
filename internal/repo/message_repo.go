// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Message model.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

// CreateMessage appends a message to a chat. IDs are UUIDv7, so for equal
// timestamps the id tie-break still follows insertion order.
func CreateMessage(ctx context.Context, db *gorm.DB, chatID, role, content string) (*domain.Message, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	m := &domain.Message{
		ID:        id.String(),
		ChatID:    chatID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	return m, db.WithContext(ctx).Create(m).Error
}

// ListMessages returns messages ordered deterministically (CreatedAt ASC, ID ASC).
// A positive limit keeps only the most recent limit messages, still oldest first.
func ListMessages(ctx context.Context, db *gorm.DB, chatID string, limit int) ([]domain.Message, error) {
	out := []domain.Message{}
	if limit <= 0 {
		err := db.WithContext(ctx).
			Where("chat_id = ?", chatID).
			Order("created_at ASC, id ASC").
			Find(&out).Error
		return out, err
	}
	err := db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return out, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// CountMessages returns the number of messages in a chat.
func CountMessages(ctx context.Context, db *gorm.DB, chatID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Message{}).Where("chat_id = ?", chatID).Count(&total).Error
	return total, err
}
