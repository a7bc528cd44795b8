// Package domain defines the persistence models for users, chats, and
// messages. These types are mapped with GORM and shared across the
// repository, service, and HTTP layers.
package domain

import "time"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultChatTitle is the placeholder title of a chat that has not been
// named yet. The first user message replaces it with a derived title.
const DefaultChatTitle = "New chat"

// User is a registered account. Email is stored trimmed and lower-cased and
// is unique. The password hash never leaves the server.
type User struct {
	ID           string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	Email        string    `json:"email"      gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email"`
	PasswordHash string    `json:"-"          gorm:"type:varchar(100);not null"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Chats are removed with their owner.
	Chats []Chat `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Chat is a conversation thread owned by exactly one user.
//
// Fields:
//   - ID: UUID primary key.
//   - UserID: owner; indexed together with UpdatedAt for "recent first" listings.
//   - Title: display title, DefaultChatTitle until derived from the first message.
//   - UpdatedAt: bumped whenever a message is appended.
//   - Messages: preloaded oldest-first when a chat is read with its thread.
type Chat struct {
	ID        string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(36);not null;index:idx_user_chats,priority:1"`
	Title     string    `json:"title"      gorm:"type:varchar(255);not null"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index:idx_user_chats,priority:2"`

	Messages []Message `json:"messages" gorm:"foreignKey:ChatID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Chat.
func (Chat) TableName() string { return "chats" }

// Message is a single append-only turn within a chat, authored by either the
// user or the assistant. Ordering is (CreatedAt ASC, ID ASC); IDs are UUIDv7
// so the tie-break follows insertion order.
type Message struct {
	ID        string    `json:"id"         gorm:"type:varchar(36);primaryKey"`
	ChatID    string    `json:"chat_id"    gorm:"type:varchar(36);not null;index:idx_chat_msgs,priority:1"`
	Role      string    `json:"role"       gorm:"type:varchar(16);not null;check:chk_messages_role,role IN ('user','assistant')"`
	Content   string    `json:"content"    gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_msgs,priority:2"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
