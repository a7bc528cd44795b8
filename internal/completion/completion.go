// Package completion is the gateway to the external LLM provider. A single
// provider is selected at startup from a closed set of presets; every call
// sends a system preamble, the prior turns of the chat, and the new user
// message, and returns the assistant's text.
//
// The gateway makes exactly one attempt per call. Failures are returned as
// errors (ErrNotConfigured, ErrEmptyResponse, or a wrapped transport/status
// error) and never panic.
package completion

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotConfigured is returned when the provider lacks an API key or endpoint.
	ErrNotConfigured = errors.New("completion provider is not configured")

	// ErrEmptyResponse is returned when the provider answered without any text.
	ErrEmptyResponse = errors.New("completion provider returned no content")
)

// Turn is one prior message of a conversation, in chat order.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Model describes an entry of the provider's catalogue.
type Model struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Reasoning bool   `json:"is_reasoning"`
}

// Gateway produces assistant replies.
type Gateway interface {
	// Complete returns the reply to userMessage given the earlier turns.
	// An empty modelID selects the provider's default model.
	Complete(ctx context.Context, userMessage string, history []Turn, modelID string) (string, error)
	// Provider is the display name of the configured provider.
	Provider() string
	// Models lists the models a client may pick from.
	Models() []Model
}

// systemPreamble instructs the model; it names the model so the assistant can
// answer questions about itself.
func systemPreamble(model string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI assistant running on the %s model.\n", model)
	b.WriteString("- Answer briefly and to the point.\n")
	b.WriteString("- Use bullet points when they help.\n")
	b.WriteString("- Focus on practical solutions; skip theory unless asked.\n")
	b.WriteString("- Include code examples when relevant.\n")
	fmt.Fprintf(&b, "- If asked which model you are, say you use %s.", model)
	return b.String()
}

// normalizeRole maps stored roles onto the two roles providers accept for
// history turns.
func normalizeRole(role string) string {
	if strings.EqualFold(strings.TrimSpace(role), "assistant") {
		return "assistant"
	}
	return "user"
}
