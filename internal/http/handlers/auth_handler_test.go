package handlers

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/domain"
	"github.com/tbourn/go-ai-chat/internal/services"
)

func authRouter(a AuthService) *gin.Engine {
	h := New(a, nil, nil, nil)
	r := newEngine()
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)
	return r
}

func TestSignup_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		wantCode int
		wantErr  string
	}{
		{"created", map[string]string{"email": "a@b.co", "password": "longenough"}, nil, http.StatusCreated, ""},
		{"missing password", map[string]string{"email": "a@b.co"}, nil, http.StatusBadRequest, ErrCodeBadRequest},
		{"invalid email", map[string]string{"email": "nope", "password": "longenough"}, services.ErrInvalidEmail, http.StatusBadRequest, ErrCodeBadRequest},
		{"weak password", map[string]string{"email": "a@b.co", "password": "short"}, services.ErrWeakPassword, http.StatusBadRequest, ErrCodeBadRequest},
		{"taken", map[string]string{"email": "a@b.co", "password": "longenough"}, services.ErrEmailTaken, http.StatusConflict, ErrCodeConflict},
		{"storage", map[string]string{"email": "a@b.co", "password": "longenough"}, errors.New("disk full"), http.StatusInternalServerError, ErrCodeSignupFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(authRouter(&fakeAuth{signupErr: tc.err}), http.MethodPost, "/auth/signup", tc.body)
			if w.Code != tc.wantCode {
				t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
			}
			if tc.wantErr != "" {
				if got := decode[ErrorResponse](t, w).Code; got != tc.wantErr {
					t.Fatalf("code=%q want %q", got, tc.wantErr)
				}
				return
			}
			resp := decode[SignupResponse](t, w)
			if resp.Message == "" || resp.User == nil || resp.User.Email != "a@b.co" {
				t.Fatalf("unexpected body: %+v", resp)
			}
		})
	}
}

func TestSignup_NeverEchoesPasswordHash(t *testing.T) {
	u := &domain.User{ID: "u1", Email: "a@b.co", PasswordHash: "$2a$10$secret"}
	w := doJSON(authRouter(&fakeAuth{signupUser: u}), http.MethodPost, "/auth/signup",
		map[string]string{"email": "a@b.co", "password": "longenough"})

	if w.Code != http.StatusCreated || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	creds := map[string]string{"email": "a@b.co", "password": "longenough"}

	w := doJSON(authRouter(&fakeAuth{token: "tok", loginUser: &domain.User{ID: "u1", Email: "a@b.co"}}),
		http.MethodPost, "/auth/login", creds)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if resp := decode[LoginResponse](t, w); resp.Token != "tok" || resp.User.ID != "u1" {
		t.Fatalf("unexpected body: %+v", resp)
	}

	w = doJSON(authRouter(&fakeAuth{loginErr: services.ErrInvalidCredentials}), http.MethodPost, "/auth/login", creds)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status=%d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Message != "Invalid email or password" {
		t.Fatalf("message=%q", resp.Message)
	}

	w = doJSON(authRouter(&fakeAuth{}), http.MethodPost, "/auth/login", map[string]string{"email": "a@b.co"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing password: status=%d", w.Code)
	}

	w = doJSON(authRouter(&fakeAuth{loginErr: errors.New("db down")}), http.MethodPost, "/auth/login", creds)
	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "db down") {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}
