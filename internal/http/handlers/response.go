// Package handlers provides HTTP handler implementations for the public API.
//
// This file defines the error envelope and the small helpers every handler
// uses to write responses:
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "chat not found"
//	}
//
// Messages are safe to show to users. Internal error text never reaches the
// client; fail logs it for 5xx responses instead.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-ai-chat/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"chat not found"`
}

// fail aborts with an ErrorResponse. For 5xx statuses the message sent is
// generic and cause, when non-nil, is logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string, cause ...error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if len(cause) > 0 && cause[0] != nil {
			ev = ev.Err(cause[0])
			_ = c.Error(cause[0])
		}
		ev.Msg(msg)
		msg = "internal server error"
	}

	rid := middleware.GetRequestID(c)
	if rid == "" {
		rid = c.Writer.Header().Get("X-Request-ID")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{RequestID: rid, Code: code, Message: msg})
}

// Fail is the exported variant of fail() for router-level handlers
// (NoRoute, NoMethod).
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}
