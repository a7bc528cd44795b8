package completion

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
)

func TestGemini_NotConfiguredWithoutKey(t *testing.T) {
	p, _ := LookupPreset(ProviderGemini)
	g := NewGemini(p, "  ")
	if _, err := g.Complete(context.Background(), "q", nil, ""); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if g.Provider() != "Gemini" || len(g.Models()) == 0 {
		t.Fatalf("metadata unexpected")
	}
	if err := g.Close(); err != nil {
		t.Fatalf("Close without client: %v", err)
	}
}

func TestGeminiHistory_MapsAssistantToModel(t *testing.T) {
	h := geminiHistory([]Turn{{Role: "user", Content: "a"}, {Role: "assistant", Content: "b"}})
	if len(h) != 2 || h[0].Role != "user" || h[1].Role != "model" {
		t.Fatalf("unexpected roles: %+v", h)
	}
	if txt, ok := h[1].Parts[0].(genai.Text); !ok || string(txt) != "b" {
		t.Fatalf("unexpected part: %#v", h[1].Parts[0])
	}
}

func TestGeminiText_FirstCandidateOnly(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("Hello "), genai.Text("world")}}},
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	if got := geminiText(resp); got != "Hello world" {
		t.Fatalf("geminiText = %q", got)
	}
	if geminiText(nil) != "" {
		t.Fatalf("nil response should yield empty text")
	}
}
