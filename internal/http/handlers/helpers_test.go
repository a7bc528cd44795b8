package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/completion"
	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/http/middleware"
	"github.com/tbourn/go-ai-chat/internal/services"
)

// ---------- fakes ----------

type fakeAuth struct {
	signupUser *domain.User
	signupErr  error
	token      string
	loginUser  *domain.User
	loginErr   error
}

func (f *fakeAuth) Signup(_ context.Context, email, _ string) (*domain.User, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	if f.signupUser != nil {
		return f.signupUser, nil
	}
	return &domain.User{ID: "u1", Email: email}, nil
}

func (f *fakeAuth) Login(context.Context, string, string) (string, *domain.User, error) {
	if f.loginErr != nil {
		return "", nil, f.loginErr
	}
	return f.token, f.loginUser, nil
}

type fakeChats struct {
	chats   map[string]*domain.Chat // by id; owner in UserID
	created []string                // titles passed to Create
	listErr error
	gets    int
}

func newFakeChats(chats ...*domain.Chat) *fakeChats {
	f := &fakeChats{chats: map[string]*domain.Chat{}}
	for _, c := range chats {
		f.chats[c.ID] = c
	}
	return f
}

func (f *fakeChats) owned(userID, chatID string) (*domain.Chat, error) {
	c, ok := f.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, services.ErrChatNotFound
	}
	return c, nil
}

func (f *fakeChats) Create(_ context.Context, userID, title string) (*domain.Chat, error) {
	f.created = append(f.created, title)
	if title == "" {
		title = domain.DefaultChatTitle
	}
	c := &domain.Chat{ID: "11111111-1111-4111-8111-111111111111", UserID: userID, Title: title, Messages: []domain.Message{}}
	f.chats[c.ID] = c
	return c, nil
}

func (f *fakeChats) List(_ context.Context, userID string) ([]domain.Chat, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := []domain.Chat{}
	for _, c := range f.chats {
		if c.UserID == userID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChats) Get(_ context.Context, userID, chatID string) (*domain.Chat, error) {
	f.gets++
	return f.owned(userID, chatID)
}

func (f *fakeChats) History(_ context.Context, userID, chatID string) ([]domain.Message, error) {
	c, err := f.owned(userID, chatID)
	if err != nil {
		return nil, err
	}
	return c.Messages, nil
}

func (f *fakeChats) Delete(_ context.Context, userID, chatID string) error {
	if _, err := f.owned(userID, chatID); err != nil {
		return err
	}
	delete(f.chats, chatID)
	return nil
}

type sendCall struct{ userID, chatID, content, modelID string }

type fakeMessages struct {
	res   *services.SendResult
	err   error
	calls []sendCall
}

func (f *fakeMessages) Send(_ context.Context, userID, chatID, content, modelID string) (*services.SendResult, error) {
	f.calls = append(f.calls, sendCall{userID, chatID, content, modelID})
	return f.res, f.err
}

type fakeCatalog struct{}

func (fakeCatalog) Provider() string { return "DeepSeek" }
func (fakeCatalog) Models() []completion.Model {
	return []completion.Model{{ID: "deepseek-chat", Name: "DeepSeek Chat"}}
}

type fakeStats struct {
	count  int64
	latest *time.Time
	err    error
}

func (f fakeStats) ChatsStats(context.Context, string) (int64, *time.Time, error) {
	return f.count, f.latest, f.err
}

type rememberCall struct {
	userID, key, chatID string
	status              int
}

type fakeRecorder struct {
	calls []rememberCall
	err   error
}

func (f *fakeRecorder) Remember(_ context.Context, userID, key, chatID string, status int) error {
	f.calls = append(f.calls, rememberCall{userID, key, chatID, status})
	return f.err
}

// ---------- helpers ----------

// asUser simulates middleware.RequireAuth.
func asUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, id)
		c.Next()
	}
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func doJSON(r http.Handler, method, target string, body any, hdr ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func serveRaw(r http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
