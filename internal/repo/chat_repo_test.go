package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

func TestCreateChat_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	chat, err := CreateChat(context.Background(), db, "u1", "t")
	if err == nil || chat != nil {
		t.Fatalf("expected error creating without table, got chat=%v err=%v", chat, err)
	}
}

func TestCreateChat_Success_EmptyMessages(t *testing.T) {
	db := newMigratedDB(t)
	u := mustUser(t, db, "a@example.com")

	chat, err := CreateChat(context.Background(), db, u.ID, "My Chat")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if chat.ID == "" || chat.UserID != u.ID || chat.Title != "My Chat" {
		t.Fatalf("unexpected Chat fields: %+v", chat)
	}
	if chat.Messages == nil || len(chat.Messages) != 0 {
		t.Fatalf("expected empty non-nil messages, got %#v", chat.Messages)
	}
	if chat.CreatedAt.IsZero() || !chat.CreatedAt.Equal(chat.UpdatedAt) {
		t.Fatalf("timestamps unexpected: %v / %v", chat.CreatedAt, chat.UpdatedAt)
	}
}

func TestListChatsWithMessages_OrderAndScope(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")

	c1, _ := CreateChat(ctx, db, a.ID, "first")
	c2, _ := CreateChat(ctx, db, a.ID, "second")
	if _, err := CreateChat(ctx, db, b.ID, "other"); err != nil {
		t.Fatalf("CreateChat other: %v", err)
	}

	// Activity on c1 moves it to the top.
	if _, err := CreateMessage(ctx, db, c1.ID, domain.RoleUser, "hi"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if _, err := CreateMessage(ctx, db, c1.ID, domain.RoleAssistant, "hello"); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}
	if err := TouchChat(ctx, db, c1.ID, time.Now().UTC().Add(time.Minute)); err != nil {
		t.Fatalf("TouchChat: %v", err)
	}

	got, err := ListChatsWithMessages(ctx, db, a.ID)
	if err != nil {
		t.Fatalf("ListChatsWithMessages: %v", err)
	}
	if len(got) != 2 || got[0].ID != c1.ID || got[1].ID != c2.ID {
		t.Fatalf("unexpected order/scope: %+v", got)
	}
	if len(got[0].Messages) != 2 || got[0].Messages[0].Role != domain.RoleUser || got[0].Messages[1].Role != domain.RoleAssistant {
		t.Fatalf("messages not preloaded in order: %+v", got[0].Messages)
	}
	if len(got[1].Messages) != 0 {
		t.Fatalf("expected no messages on c2, got %d", len(got[1].Messages))
	}

	none, err := ListChatsWithMessages(ctx, db, "nobody")
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v err=%v", none, err)
	}
}

func TestGetChat_OwnershipScoped(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	c, _ := CreateChat(ctx, db, a.ID, "t")

	if _, err := GetChat(ctx, db, c.ID, a.ID); err != nil {
		t.Fatalf("GetChat owner: %v", err)
	}
	if _, err := GetChat(ctx, db, c.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign chat, got %v", err)
	}
	full, err := GetChatWithMessages(ctx, db, c.ID, a.ID)
	if err != nil || full.Messages == nil {
		t.Fatalf("GetChatWithMessages: %+v err=%v", full, err)
	}
	if _, err := GetChatWithMessages(ctx, db, c.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign chat, got %v", err)
	}
}

func TestUpdateChatTitle_And_Touch(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	c, _ := CreateChat(ctx, db, a.ID, "old")

	if err := UpdateChatTitle(ctx, db, c.ID, a.ID, "new"); err != nil {
		t.Fatalf("UpdateChatTitle: %v", err)
	}
	if err := UpdateChatTitle(ctx, db, c.ID, "intruder", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := TouchChat(ctx, db, "missing", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound from TouchChat, got %v", err)
	}
	got, _ := GetChat(ctx, db, c.ID, a.ID)
	if got.Title != "new" {
		t.Fatalf("title not updated: %q", got.Title)
	}
}

func TestDeleteChat_RemovesMessages_AndScopes(t *testing.T) {
	db := newMigratedDB(t)
	ctx := context.Background()
	a := mustUser(t, db, "a@example.com")
	b := mustUser(t, db, "b@example.com")
	c, _ := CreateChat(ctx, db, a.ID, "t")
	_, _ = CreateMessage(ctx, db, c.ID, domain.RoleUser, "hi")

	if err := DeleteChat(ctx, db, c.ID, b.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if err := DeleteChat(ctx, db, c.ID, a.ID); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if err := DeleteChat(ctx, db, c.ID, a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
	if n, err := CountMessages(ctx, db, c.ID); err != nil || n != 0 {
		t.Fatalf("messages left behind: n=%d err=%v", n, err)
	}
}
