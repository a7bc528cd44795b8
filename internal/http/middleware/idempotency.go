// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements Idempotency-Key support for POST requests. The
// middleware validates the header, looks up a prior successful result for
// (user, key), and annotates the Gin context so the handler can replay the
// stored chat instead of calling the completion provider again. Replays also
// skip rate limiting.
package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey is the request header carrying the client's key.
const HeaderIdempotencyKey = "Idempotency-Key"

// HeaderIdempotencyReplayed is set to "true" on replayed responses.
const HeaderIdempotencyReplayed = "Idempotency-Replayed"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay" // bool
	ctxKeyIdemChat   = "idem.chat"   // string: chat produced by the first request
	ctxKeyRateBypass = "rate.bypass" // bool
)

// IdempotencyOptions configures IdempotencyValidator.
type IdempotencyOptions struct {
	// MaxLen caps the accepted key length. Values <= 0 default to 200.
	MaxLen int
	// Pattern restricts allowed characters; ^[A-Za-z0-9._~\-:]+$ when nil.
	Pattern *regexp.Regexp
}

// IdempotencyLookup reports the chat recorded for (userID, key) if a record
// exists and has not expired at now.
type IdempotencyLookup func(ctx context.Context, userID, key string, now time.Time) (chatID string, found bool, err error)

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether a prior result exists for this request's key.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// ReplayChatID returns the chat recorded by the original request.
func ReplayChatID(c *gin.Context) string {
	return c.GetString(ctxKeyIdemChat)
}

// IdempotencyValidator must run after RequireAuth. Requests other than POST,
// and requests without the header, pass through untouched. A malformed key
// is rejected with 400. Lookup failures are logged and treated as a miss.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = 200
	}
	pat := opts.Pattern
	if pat == nil {
		pat = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" || c.Request.Method != http.MethodPost {
			c.Next()
			return
		}
		if len(key) > maxLen || !pat.MatchString(key) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": GetRequestID(c),
				"code":       "bad_idempotency_key",
				"message":    "invalid Idempotency-Key",
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		if lookup != nil {
			chatID, found, err := lookup(c.Request.Context(), UserID(c), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case found:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyIdemChat, chatID)
				c.Set(ctxKeyRateBypass, true)
			}
		}

		c.Next()
	}
}
