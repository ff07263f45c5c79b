package ai

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/starford/snapnotes/internal/apperr"
)

const defaultGeminiURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Gemini calls the Google generateContent endpoint with a single text prompt.
type Gemini struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewGemini creates a Gemini generator. cfg.BaseURL overrides the public endpoint.
func NewGemini(cfg Config, logger *slog.Logger) *Gemini {
	base := cfg.BaseURL
	if base == "" {
		base = defaultGeminiURL
	}
	return &Gemini{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", ProviderGemini),
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends system and user prompts joined by a blank line.
func (g *Gemini) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if g.cfg.APIKey == "" {
		return "", &apperr.APIError{Provider: ProviderGemini, Message: "API key is missing"}
	}

	prompt := userPrompt
	if systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + userPrompt
	}

	reqURL := g.baseURL + "/" + url.PathEscape(g.cfg.Model) + ":generateContent"
	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     g.cfg.Temperature,
			MaxOutputTokens: g.cfg.MaxOutputTokens,
		},
	}
	header := http.Header{}
	header.Set("x-goog-api-key", g.cfg.APIKey)

	g.log.DebugContext(ctx, "gemini request", slog.String("model", g.cfg.Model), slog.Int("prompt_len", len(prompt)))

	var resp geminiResponse
	if err := postJSON(ctx, g.httpClient, ProviderGemini, reqURL, header, payload, &resp); err != nil {
		g.log.ErrorContext(ctx, "gemini request failed", slog.String("error", err.Error()))
		return "", err
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return "", noContent(ProviderGemini, http.StatusOK)
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}
