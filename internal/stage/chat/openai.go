package chat

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
	"unicode/utf8"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4o-mini"
)

// OpenAIClient talks to an OpenAI-compatible /chat/completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// OpenAIOption configures an OpenAIClient.
type OpenAIOption func(*OpenAIClient)

func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *OpenAIClient) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

func WithOpenAIModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		if model != "" {
			c.model = model
		}
	}
}

func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		c.httpClient = hc
	}
}

func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		apiKey:     apiKey,
		baseURL:    defaultOpenAIBaseURL,
		model:      defaultOpenAIModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAIClient) Name() string { return "openai" }

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponseFormat struct {
	Type string `json:"type"`
}

type openAIRequest struct {
	Model          string                `json:"model"`
	Messages       []openAIMessage       `json:"messages"`
	Temperature    float64               `json:"temperature"`
	MaxTokens      int                   `json:"max_tokens,omitempty"`
	ResponseFormat *openAIResponseFormat `json:"response_format,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

type openAIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete implements Completer.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	payload := openAIRequest{
		Model: c.model,
		Messages: []openAIMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.JSON {
		payload.ResponseFormat = &openAIResponseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp openAIError
		if json.Unmarshal(data, &errResp) == nil && errResp.Error.Message != "" {
			return "", fmt.Errorf("openai: %s", errResp.Error.Message)
		}
		return "", fmt.Errorf("openai: unexpected status %d: %s", resp.StatusCode, truncate(string(data), 512))
	}

	var out openAIResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("openai: decode response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// truncate caps s at n runes so Telugu text is never cut mid-character.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
