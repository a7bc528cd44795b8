package completion

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini talks to Google's Gemini API. The SDK client is created on first use
// so startup does not depend on Google's endpoints.
type Gemini struct {
	preset Preset
	apiKey string
	opts   []option.ClientOption

	mu     sync.Mutex
	client *genai.Client
}

// NewGemini returns a Gemini gateway. Extra client options (endpoint, HTTP
// client) are appended after the API key.
func NewGemini(p Preset, apiKey string, opts ...option.ClientOption) *Gemini {
	return &Gemini{preset: p, apiKey: strings.TrimSpace(apiKey), opts: opts}
}

// Provider implements Gateway.
func (g *Gemini) Provider() string { return g.preset.Display }

// Models implements Gateway.
func (g *Gemini) Models() []Model { return g.preset.Models }

func (g *Gemini) sdk(ctx context.Context) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil {
		return g.client, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(g.apiKey)}, g.opts...)
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	g.client = c
	return c, nil
}

// Complete implements Gateway.
func (g *Gemini) Complete(ctx context.Context, userMessage string, history []Turn, modelID string) (string, error) {
	if g.apiKey == "" {
		return "", ErrNotConfigured
	}
	client, err := g.sdk(ctx)
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(modelID)
	if name == "" {
		name = g.preset.DefaultModel
	}

	model := client.GenerativeModel(name)
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemPreamble(name)))
	cs := model.StartChat()
	cs.History = geminiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(userMessage))
	if err != nil {
		return "", fmt.Errorf("%s: %w", g.preset.Name, err)
	}
	text := strings.TrimSpace(geminiText(resp))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Close releases the SDK client, if one was created.
func (g *Gemini) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	return err
}

// geminiHistory maps turns onto Gemini contents; Gemini calls the assistant "model".
func geminiHistory(history []Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		if normalizeRole(t.Role) == "assistant" {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Content)}})
	}
	return out
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		// First candidate only.
		break
	}
	return b.String()
}
