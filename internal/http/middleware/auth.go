// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication for protected routes.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/auth"
)

// Gin context keys set by RequireAuth.
const (
	UserIDKey = "userID"
	EmailKey  = "email"
)

// TokenVerifier checks an identity token. A false result means the request
// is unauthenticated, whatever the reason.
type TokenVerifier interface {
	Verify(token string) (auth.Identity, bool)
}

// RequireAuth rejects requests without a valid "Authorization: Bearer <token>"
// header with 401 and the standard error envelope. On success the user ID
// and email are stored under UserIDKey and EmailKey.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			authFailures.WithLabelValues("missing").Inc()
			unauthorized(c, "missing bearer token")
			return
		}
		id, ok := v.Verify(token)
		if !ok {
			authFailures.WithLabelValues("invalid").Inc()
			unauthorized(c, "invalid or expired token")
			return
		}
		c.Set(UserIDKey, id.UserID)
		c.Set(EmailKey, id.Email)
		c.Next()
	}
}

// UserID returns the authenticated user's ID, or "" outside RequireAuth.
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func bearerToken(h string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": GetRequestID(c),
		"code":       "unauthorized",
		"message":    msg,
	})
}
