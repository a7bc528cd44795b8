// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides the request ID injector, the structured access logger,
// and a panic-safe recovery handler:
//
//   - RequestID() reuses a well-formed X-Request-ID or generates one, and
//     stores it in the Gin context.
//   - Logger() attaches a request-scoped zerolog.Logger to both the Gin
//     context and the request context (so services can use log.Ctx), then
//     emits one access log line with scrubbed query and headers.
//   - Recovery() converts panics into the JSON 500 envelope, logs the stack
//     and forwards the panic to Sentry when a client is configured.
//
// Suggested order: RequestID, Logger, Recovery.
package middleware

import (
	"fmt"
	"net/http"
	"regexp"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey is the Gin context key of the request-scoped logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// requestIDRE accepts client-supplied IDs that are safe to echo and log.
var requestIDRE = regexp.MustCompile(`^[A-Za-z0-9._\-]{1,128}$`)

// RequestID attaches (or propagates) a correlation identifier per request.
// Incoming values that are too long or contain unexpected characters are
// replaced with a fresh UUIDv4.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if !requestIDRE.MatchString(rid) {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// GetRequestID returns the correlation ID set by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger writes a structured access log for each request using the default
// Redactor. See RedactingLogger.
func Logger() gin.HandlerFunc {
	return RedactingLogger(RedactOptions{})
}

// RedactingLogger is Logger with extra masked headers. When opts.LogHeaders
// is set the scrubbed request headers are included in the access log.
//
// Level is chosen by outcome: error for 5xx or collected Gin errors, warn for
// 4xx, info otherwise. Request and response bodies are never logged.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := NewRedactor(opts.MaskHeaders...)

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		l := log.With().
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("remote_ip", c.ClientIP()).
			Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := l.Info()
		switch {
		case len(c.Errors) > 0 || status >= http.StatusInternalServerError:
			ev = l.Error()
			if len(c.Errors) > 0 {
				ev = ev.Str("errors", c.Errors.String())
			}
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		}

		ev = ev.
			Str("user_id", c.GetString("userID")).
			Str("query", truncate(red.String(c.Request.URL.RawQuery), maxQueryLogLength)).
			Str("user_agent", c.Request.UserAgent()).
			Int64("bytes_in", c.Request.ContentLength).
			Int("status", status).
			Int("bytes_out", c.Writer.Size()).
			Dur("latency", time.Since(start))
		if opts.LogHeaders {
			ev = ev.Interface("headers", red.Headers(c.Request.Header))
		}
		ev.Msg("http_request")
	}
}

// Recovery intercepts panics, logs a stack trace, reports to Sentry and
// returns a JSON 500 error:
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// Sentry reporting is a no-op unless sentry.Init was called with a DSN.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := GetRequestID(c)

			hub := sentry.CurrentHub().Clone()
			hub.Scope().SetRequest(c.Request)
			hub.Scope().SetTag("request_id", rid)
			hub.RecoverWithContext(c.Request.Context(), rec)

			LoggerFrom(c).Error().
				Str("panic", fmt.Sprint(rec)).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when Logger() did not run.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
