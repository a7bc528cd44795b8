package middleware

import (
	"net/http"
	"regexp"
	"strings"
)

// RedactOptions configures RedactingLogger.
type RedactOptions struct {
	// MaskHeaders lists extra header names whose values are fully replaced.
	// Authorization, Cookie and Set-Cookie are always masked.
	MaskHeaders []string
	// LogHeaders includes the scrubbed request headers in the access log.
	LogHeaders bool
}

// Redactor scrubs e-mails, UUIDs, bearer tokens and credential query
// parameters from strings destined for logs.
type Redactor struct {
	mask map[string]struct{}
}

var (
	// UUIDs are replaced before anything looser can match their segments.
	redactUUIDRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[1-8][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}\b`)
	redactEmailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	redactBearerRE = regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-_.~+/]+=*`)
	redactJWTRE    = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
	redactParamRE  = regexp.MustCompile(`(?i)\b(password|token|secret|api_key|apikey)=[^&\s]*`)
)

// NewRedactor returns a Redactor masking the built-in sensitive headers plus
// extra (case-insensitive).
func NewRedactor(extra ...string) *Redactor {
	r := &Redactor{mask: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.mask[h] = struct{}{}
		}
	}
	return r
}

// String returns s with sensitive values replaced by placeholders.
func (r *Redactor) String(s string) string {
	if s == "" {
		return s
	}
	s = redactParamRE.ReplaceAllString(s, "$1=[REDACTED]")
	s = redactBearerRE.ReplaceAllString(s, "Bearer [REDACTED]")
	s = redactJWTRE.ReplaceAllString(s, "[REDACTED:token]")
	s = redactUUIDRE.ReplaceAllString(s, "[REDACTED:id]")
	s = redactEmailRE.ReplaceAllString(s, "[REDACTED:email]")
	return s
}

// Headers flattens h into a map with masked and scrubbed values.
func (r *Redactor) Headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.mask[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.String(strings.Join(vv, ", "))
	}
	return out
}
