package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/starford/snapnotes/internal/apperr"
)

// maxErrorBody caps how much of a failed response is kept as the error message.
const maxErrorBody = 4 << 10

// postJSON sends payload to url and decodes a 2xx response into out.
// Any failure is returned as *apperr.APIError.
func postJSON(ctx context.Context, client *http.Client, provider, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &apperr.APIError{Provider: provider, Message: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &apperr.APIError{Provider: provider, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return &apperr.APIError{Provider: provider, Message: "request failed: " + err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &apperr.APIError{
			Provider: provider,
			Status:   resp.StatusCode,
			Message:  providerMessage(raw, resp.Status),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &apperr.APIError{
			Provider: provider,
			Status:   resp.StatusCode,
			Message:  fmt.Sprintf("decode response: %v", err),
			Err:      err,
		}
	}
	return nil
}

// providerMessage extracts {"error":{"message":...}}, the shape Gemini and
// OpenAI-compatible endpoints share, falling back to the raw body.
func providerMessage(raw []byte, status string) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(raw, &env) == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return s
	}
	return status
}

func noContent(provider string, status int) error {
	return &apperr.APIError{Provider: provider, Status: status, Message: "no content generated"}
}
