// Package ai wraps the generative-AI providers SnapNotes can call.
//
// Every provider is reduced to one capability, Generator, which maps a system
// and user prompt to a single block of text.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Supported providers.
const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Generator produces raw note text from a system and user prompt.
// Failures are reported as *apperr.APIError.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Config holds provider connection settings.
type Config struct {
	Provider        string
	APIKey          string
	Model           string
	BaseURL         string
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
}

// New builds the Generator for cfg.Provider.
func New(cfg Config, logger *slog.Logger) (Generator, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	switch cfg.Provider {
	case ProviderGemini:
		return NewGemini(cfg, logger), nil
	case ProviderOpenAI:
		return NewOpenAI(cfg, logger), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg, logger), nil
	}
	return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
}
