package ai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/starford/snapnotes/internal/apperr"
)

// Anthropic calls the Claude Messages API through the official SDK.
type Anthropic struct {
	cfg    Config
	client anthropic.Client
	log    *slog.Logger
}

// NewAnthropic creates an Anthropic generator. SDK retries are disabled:
// failures surface to the user instead of being retried.
func NewAnthropic(cfg Config, logger *slog.Logger) *Anthropic {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &Anthropic{
		cfg:    cfg,
		client: anthropic.NewClient(opts...),
		log:    logger.With("adapter", ProviderAnthropic),
	}
}

// Generate sends one user message with the system prompt attached.
func (a *Anthropic) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if a.cfg.APIKey == "" {
		return "", &apperr.APIError{Provider: ProviderAnthropic, Message: "API key is missing"}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.cfg.Model),
		MaxTokens:   int64(a.cfg.MaxOutputTokens),
		Temperature: anthropic.Float(a.cfg.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	a.log.DebugContext(ctx, "messages request", slog.String("model", a.cfg.Model))

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		a.log.ErrorContext(ctx, "messages request failed", slog.String("error", err.Error()))
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &apperr.APIError{Provider: ProviderAnthropic, Status: apiErr.StatusCode, Message: apiErr.Error(), Err: err}
		}
		return "", &apperr.APIError{Provider: ProviderAnthropic, Message: "request failed: " + err.Error(), Err: err}
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", noContent(ProviderAnthropic, http.StatusOK)
	}
	return b.String(), nil
}
