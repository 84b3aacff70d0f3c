// Package summarizer wraps the outbound call to a hosted
// chat-completions API that turns task descriptions into one-sentence
// summaries. The feature is best-effort enrichment: callers treat any
// failure here as non-fatal for the task itself.
package summarizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/taskhive/api/pkg/config"
)

const systemPrompt = "You are a helpful assistant that generates concise summaries of task descriptions. " +
	"Keep summaries short and to the point, focusing on the main action items and deadlines."

// Client calls a Groq-compatible chat-completions endpoint.
type Client struct {
	httpClient *http.Client
	apiURL     string
	apiKey     string
	model      string
	logger     *slog.Logger
}

// New constructs a Client from service configuration.
func New(cfg config.APIConfig, logger *slog.Logger) *Client {
	timeout := cfg.GroqTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     cfg.GroqAPIURL,
		apiKey:     cfg.GroqAPIKey,
		model:      cfg.GroqModel,
		logger:     logger,
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

// Summarize sends text upstream and returns the trimmed completion.
// Transport failures, non-2xx statuses and empty completions all error;
// there is no retry.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty text")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: "Summarize the following task description in one brief sentence:\n\n" + text},
		},
		Temperature: 0.3,
		MaxTokens:   100,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("completion api error", "status", resp.StatusCode, "body", string(snippet))
		return "", fmt.Errorf("completion api returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}
	summary := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if summary == "" {
		return "", errors.New("completion response was empty")
	}
	return summary, nil
}
