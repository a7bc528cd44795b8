package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-ai-chat/internal/domain"
)

func TestIdempotency_CreateGetDuplicate(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := GetIdempotency(ctx, db, "u1", "k1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before insert, got %v", err)
	}
	if _, err := GetIdempotency(ctx, db, "u1", "  ", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for blank key, got %v", err)
	}

	rec, err := CreateIdempotency(ctx, db, "u1", "k1", "c1", 200, time.Hour)
	if err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	if rec.ChatID != "c1" || rec.Status != 200 || !rec.ExpiresAt.After(rec.CreatedAt) {
		t.Fatalf("unexpected record: %+v", rec)
	}

	got, err := GetIdempotency(ctx, db, "u1", "k1", time.Now())
	if err != nil || got.ChatID != "c1" {
		t.Fatalf("GetIdempotency: %+v err=%v", got, err)
	}
	if _, err := GetIdempotency(ctx, db, "u2", "k1", time.Now()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("key must be scoped to user, got %v", err)
	}

	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "c2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestIdempotency_ExpiredIsIgnoredAndReplaced(t *testing.T) {
	db := newTestDB(t, &domain.Idempotency{})
	ctx := context.Background()

	if _, err := CreateIdempotency(ctx, db, "u1", "k1", "c1", 200, time.Millisecond); err != nil {
		t.Fatalf("CreateIdempotency: %v", err)
	}
	later := time.Now().UTC().Add(time.Second)
	if _, err := GetIdempotency(ctx, db, "u1", "k1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record should not be returned, got %v", err)
	}

	time.Sleep(5 * time.Millisecond)
	rec, err := CreateIdempotency(ctx, db, "u1", "k1", "c2", 200, time.Hour)
	if err != nil {
		t.Fatalf("re-create after expiry: %v", err)
	}
	if rec.ChatID != "c2" {
		t.Fatalf("unexpected chat id: %s", rec.ChatID)
	}
}
