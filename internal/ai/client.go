package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrNotConfigured is returned when no API credential is present. Callers
// treat it as "no recommendations", not a failure.
var ErrNotConfigured = errors.New("ai: api key not configured")

// Message is one role-tagged entry in a chat-style request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client talks to the AI text/scoring endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: 45 * time.Second,
		},
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Complete sends the message list and returns the raw response text. The
// call is bounded to 45s regardless of the caller's context.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	ctx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()

	body, err := json.Marshal(map[string]any{
		"model":    c.model,
		"messages": messages,
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(payload.Choices) == 0 {
		return "", errors.New("ai: empty response")
	}
	return payload.Choices[0].Message.Content, nil
}

// ExtractJSON pulls the JSON payload out of free text by boundary scanning:
// whichever of '[' or '{' appears first opens the payload, and the matching
// last ']' or '}' closes it. Stray prose around the JSON never breaks
// extraction. Returns "" when no JSON boundaries exist.
func ExtractJSON(s string) string {
	bracket := strings.Index(s, "[")
	brace := strings.Index(s, "{")

	if bracket >= 0 && (brace < 0 || bracket < brace) {
		if end := strings.LastIndex(s, "]"); end > bracket {
			return s[bracket : end+1]
		}
	}
	if brace >= 0 {
		if end := strings.LastIndex(s, "}"); end > brace {
			return s[brace : end+1]
		}
	}
	return ""
}
