package completion

import (
	"strings"

	"github.com/tbourn/go-ai-chat/internal/config"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderDeepSeek = "deepseek"
	ProviderRequesty = "requesty"
	ProviderOpenAI   = "openai"
	ProviderGemini   = "gemini"
)

// Preset is the static description of a provider.
type Preset struct {
	Name         string
	Display      string
	BaseURL      string
	DefaultModel string
	Models       []Model
	// Attribution adds HTTP-Referer / X-Title headers (OpenRouter-style routers).
	Attribution bool
}

var presets = map[string]Preset{
	ProviderDeepSeek: {
		Name:         ProviderDeepSeek,
		Display:      "Deepseek",
		BaseURL:      "https://api.deepseek.com/v1",
		DefaultModel: "deepseek-chat",
		Models: []Model{
			{ID: "deepseek-chat", Name: "Deepseek V3"},
			{ID: "deepseek-reasoner", Name: "Deepseek R1", Reasoning: true},
		},
	},
	ProviderRequesty: {
		Name:         ProviderRequesty,
		Display:      "Requesty",
		BaseURL:      "https://router.requesty.ai/v1",
		DefaultModel: "openai/gpt-4o",
		Models: []Model{
			{ID: "openai/gpt-4o", Name: "GPT-4o"},
			{ID: "deepseek/deepseek-reasoner", Name: "Deepseek R1", Reasoning: true},
			{ID: "deepseek/deepseek-chat", Name: "Deepseek V3"},
		},
		Attribution: true,
	},
	ProviderOpenAI: {
		Name:         ProviderOpenAI,
		Display:      "OpenAI",
		DefaultModel: "gpt-4o-mini",
		Models: []Model{
			{ID: "gpt-4o-mini", Name: "GPT-4o mini"},
			{ID: "gpt-4o", Name: "GPT-4o"},
		},
	},
	ProviderGemini: {
		Name:         ProviderGemini,
		Display:      "Gemini",
		DefaultModel: "gemini-1.5-flash",
		Models: []Model{
			{ID: "gemini-1.5-flash", Name: "Gemini 1.5 Flash"},
			{ID: "gemini-1.5-pro", Name: "Gemini 1.5 Pro"},
		},
	},
}

// LookupPreset returns the preset registered under name (case-insensitive).
func LookupPreset(name string) (Preset, bool) {
	p, ok := presets[strings.ToLower(strings.TrimSpace(name))]
	return p, ok
}

// resolve merges the preset with the AI_* overrides. A configured model that
// is not in the catalogue is prepended so it can still be selected.
func resolve(p Preset, cfg config.AIConfig) Preset {
	out := p
	out.Models = append([]Model(nil), p.Models...)
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		out.BaseURL = strings.TrimRight(u, "/")
	}
	if m := strings.TrimSpace(cfg.Model); m != "" {
		out.DefaultModel = m
		known := false
		for _, x := range out.Models {
			if x.ID == m {
				known = true
				break
			}
		}
		if !known {
			out.Models = append([]Model{{ID: m, Name: m}}, out.Models...)
		}
	}
	return out
}
