package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-ai-chat/internal/auth"
)

func newAuthRouter(t *testing.T) (*gin.Engine, *auth.TokenService) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ts, err := auth.NewTokenService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", RequireAuth(ts), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": UserID(c), "email": c.GetString(EmailKey)})
	})
	return r, ts
}

func TestRequireAuth_ValidToken(t *testing.T) {
	r, ts := newAuthRouter(t)
	tok, err := ts.Issue("u-1", "ann@example.com")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	for _, h := range []string{"Bearer " + tok, "bearer " + tok, "  Bearer   " + tok + " "} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", h)
		w := serve(r, req)
		if w.Code != http.StatusOK {
			t.Fatalf("header %q -> %d", h, w.Code)
		}
		var body map[string]string
		_ = json.Unmarshal(w.Body.Bytes(), &body)
		if body["user"] != "u-1" || body["email"] != "ann@example.com" {
			t.Fatalf("body = %v", body)
		}
	}
}

func TestRequireAuth_Rejects(t *testing.T) {
	r, ts := newAuthRouter(t)
	tok, _ := ts.Issue("u-1", "ann@example.com")
	other, _ := auth.NewTokenService("other-secret", time.Hour)
	foreign, _ := other.Issue("u-1", "ann@example.com")

	baseMissing := testutil.ToFloat64(authFailures.WithLabelValues("missing"))
	baseInvalid := testutil.ToFloat64(authFailures.WithLabelValues("invalid"))

	cases := []struct {
		name, header string
		missing      bool
	}{
		{"no header", "", true},
		{"wrong scheme", "Basic " + tok, true},
		{"scheme only", "Bearer", true},
		{"empty token", "Bearer   ", true},
		{"garbage", "Bearer not.a.jwt", false},
		{"foreign key", "Bearer " + foreign, false},
		{"tampered", "Bearer " + tok[:len(tok)-2] + "xx", false},
	}
	var wantMissing, wantInvalid float64
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		w := serve(r, req)
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status %d", tc.name, w.Code)
		}
		var body map[string]any
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: invalid JSON: %v", tc.name, err)
		}
		if body["code"] != "unauthorized" || body["request_id"] == "" {
			t.Fatalf("%s: body = %v", tc.name, body)
		}
		if w.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("%s: missing WWW-Authenticate", tc.name)
		}
		if tc.missing {
			wantMissing++
		} else {
			wantInvalid++
		}
	}
	if got := testutil.ToFloat64(authFailures.WithLabelValues("missing")); got != baseMissing+wantMissing {
		t.Fatalf("missing counter = %v; want %v", got, baseMissing+wantMissing)
	}
	if got := testutil.ToFloat64(authFailures.WithLabelValues("invalid")); got != baseInvalid+wantInvalid {
		t.Fatalf("invalid counter = %v; want %v", got, baseInvalid+wantInvalid)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":   "abc",
		"BEARER  abc ": "abc",
	}
	for in, want := range cases {
		if got, ok := bearerToken(in); !ok || got != want {
			t.Fatalf("bearerToken(%q) = %q, %v", in, got, ok)
		}
	}
	for _, in := range []string{"", "abc", "Token abc", "Bearer "} {
		if _, ok := bearerToken(in); ok {
			t.Fatalf("bearerToken(%q) should fail", in)
		}
	}
}
