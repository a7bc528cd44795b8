package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/repo"
)

// newSvcDB opens a private in-memory database with the full schema.
func newSvcDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { _ = sqlDB.Close() })
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *domain.User {
	t.Helper()
	u, err := repo.CreateUser(context.Background(), db, email, "hash")
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

type gatewayCall struct {
	Message string
	History []completion.Turn
	Model   string
}

// fakeGateway records calls and answers with a fixed reply or error.
type fakeGateway struct {
	mu    sync.Mutex
	reply string
	err   error
	calls []gatewayCall
}

func (g *fakeGateway) Complete(_ context.Context, msg string, history []completion.Turn, model string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{Message: msg, History: append([]completion.Turn(nil), history...), Model: model})
	if g.err != nil {
		return "", g.err
	}
	return g.reply, nil
}

func (g *fakeGateway) Provider() string { return "Fake" }

func (g *fakeGateway) Models() []completion.Model {
	return []completion.Model{{ID: "fake-1", Name: "Fake"}}
}

func (g *fakeGateway) lastCall(t *testing.T) gatewayCall {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.calls) == 0 {
		t.Fatalf("gateway was not called")
	}
	return g.calls[len(g.calls)-1]
}

// chatRepoShim adapts the repo package functions to ChatRepo.
type chatRepoShim struct{}

func (chatRepoShim) CreateChat(ctx context.Context, db *gorm.DB, userID, title string) (*domain.Chat, error) {
	return repo.CreateChat(ctx, db, userID, title)
}
func (chatRepoShim) ListChatsWithMessages(ctx context.Context, db *gorm.DB, userID string) ([]domain.Chat, error) {
	return repo.ListChatsWithMessages(ctx, db, userID)
}
func (chatRepoShim) GetChatWithMessages(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Chat, error) {
	return repo.GetChatWithMessages(ctx, db, id, userID)
}
func (chatRepoShim) DeleteChat(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeleteChat(ctx, db, id, userID)
}
