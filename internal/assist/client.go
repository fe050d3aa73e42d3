package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client calls an external text-generation service to draft descriptions for
// roles, permissions, and projects.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient constructs a Client for the given service base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type completionRequest struct {
	Prompt    string `json:"prompt"`
	MaxTokens int    `json:"max_tokens"`
}

type completionResponse struct {
	Text string `json:"text"`
}

// GenerateDescription asks the service for a short description of the given
// subject. The returned text is trimmed; an empty result is an error so
// callers never persist blank suggestions.
func (c *Client) GenerateDescription(ctx context.Context, subject string) (string, error) {
	prompt := fmt.Sprintf("Write a one-sentence description for a %s in an internal admin tool.", subject)
	body, err := json.Marshal(completionRequest{Prompt: prompt, MaxTokens: 60})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("assist: completion service returned %d", res.StatusCode)
	}

	var parsed completionResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return "", err
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return "", fmt.Errorf("assist: completion service returned empty text")
	}
	return text, nil
}
