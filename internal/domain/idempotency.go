package domain

import "time"

// Idempotency remembers the chat produced by a message request carrying an
// Idempotency-Key, keyed by (user_id, key). A retry with the same key within
// the TTL replays that chat instead of calling the completion provider again.
type Idempotency struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:ux_idem_user_key,priority:1"`
	Key       string    `gorm:"type:varchar(200);not null;uniqueIndex:ux_idem_user_key,priority:2"`
	ChatID    string    `gorm:"type:varchar(36);not null"`
	Status    int       `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
