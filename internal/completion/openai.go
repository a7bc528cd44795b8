package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAICompatible talks to any endpoint implementing the OpenAI chat
// completions API (DeepSeek, Requesty, OpenAI, local gateways).
type OpenAICompatible struct {
	preset Preset
	client *openai.Client // nil when the key or endpoint is missing
}

// NewOpenAICompatible builds a client for preset. It never fails: a missing
// key or base URL yields a gateway whose Complete returns ErrNotConfigured.
func NewOpenAICompatible(p Preset, apiKey, referer, appTitle string, hc *http.Client) *OpenAICompatible {
	g := &OpenAICompatible{preset: p}
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(p.BaseURL) == "" {
		return g
	}
	if hc == nil {
		hc = &http.Client{}
	}
	if p.Attribution {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		cp := *hc
		cp.Transport = &headerTransport{
			base: base,
			headers: map[string]string{
				"HTTP-Referer": referer,
				"X-Title":      appTitle,
			},
		}
		hc = &cp
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = p.BaseURL
	cfg.HTTPClient = hc
	g.client = openai.NewClientWithConfig(cfg)
	return g
}

// Provider implements Gateway.
func (g *OpenAICompatible) Provider() string { return g.preset.Display }

// Models implements Gateway.
func (g *OpenAICompatible) Models() []Model { return g.preset.Models }

// Complete implements Gateway.
func (g *OpenAICompatible) Complete(ctx context.Context, userMessage string, history []Turn, modelID string) (string, error) {
	if g.client == nil {
		return "", ErrNotConfigured
	}
	model := strings.TrimSpace(modelID)
	if model == "" {
		model = g.preset.DefaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPreamble(model),
	})
	for _, t := range history {
		role := openai.ChatMessageRoleUser
		if normalizeRole(t.Role) == "assistant" {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: t.Content})
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("%s: status %d: %w", g.preset.Name, apiErr.HTTPStatusCode, err)
		}
		return "", fmt.Errorf("%s: %w", g.preset.Name, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// headerTransport sets fixed headers on every outbound request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if v != "" {
			r.Header.Set(k, v)
		}
	}
	return t.base.RoundTrip(r)
}
