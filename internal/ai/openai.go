package ai

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/snapnotes/internal/apperr"
)

const defaultOpenAIURL = "https://api.openai.com/v1"

// OpenAI calls an OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewOpenAI creates an OpenAI-compatible generator.
func NewOpenAI(cfg Config, logger *slog.Logger) *OpenAI {
	base := cfg.BaseURL
	if base == "" {
		base = defaultOpenAIURL
	}
	return &OpenAI{
		cfg:        cfg,
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", ProviderOpenAI),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate sends the prompts as separate system and user messages.
func (o *OpenAI) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if o.cfg.APIKey == "" {
		return "", &apperr.APIError{Provider: ProviderOpenAI, Message: "API key is missing"}
	}

	var msgs []chatMessage
	if systemPrompt != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: systemPrompt})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: userPrompt})

	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	o.log.DebugContext(ctx, "chat completion request", slog.String("model", o.cfg.Model))

	var resp chatResponse
	err := postJSON(ctx, o.httpClient, ProviderOpenAI, o.baseURL+"/chat/completions", header, chatRequest{
		Model:       o.cfg.Model,
		Messages:    msgs,
		Temperature: o.cfg.Temperature,
		MaxTokens:   o.cfg.MaxOutputTokens,
	}, &resp)
	if err != nil {
		o.log.ErrorContext(ctx, "chat completion failed", slog.String("error", err.Error()))
		return "", err
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", noContent(ProviderOpenAI, http.StatusOK)
	}
	return resp.Choices[0].Message.Content, nil
}
