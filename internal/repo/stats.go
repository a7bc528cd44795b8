// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file holds the aggregate query behind the chat list
// ETag.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

// ChatsStats returns how many chats userID owns and the newest UpdatedAt
// among them (nil when there are none). Appending a message bumps the chat's
// UpdatedAt, so the pair changes whenever the listing does.
func ChatsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	owned := func() *gorm.DB {
		return db.WithContext(ctx).Model(&domain.Chat{}).Where("user_id = ?", userID)
	}

	var count int64
	if err := owned().Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// ORDER BY + LIMIT rather than MAX(): SQLite returns MAX(datetime) as TEXT.
	var latest struct{ UpdatedAt time.Time }
	if err := owned().Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&latest).Error; err != nil {
		return 0, nil, err
	}
	return count, &latest.UpdatedAt, nil
}
