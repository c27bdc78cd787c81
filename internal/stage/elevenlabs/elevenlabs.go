// Package elevenlabs implements stage.Synthesizer with the ElevenLabs
// text-to-speech API.
package elevenlabs

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

	"github.com/HiranMayiNathi23/ai-reading-companion/internal/stage"
)

const (
	defaultBaseURL = "https://api.elevenlabs.io"
	defaultModel   = "eleven_multilingual_v2"
	defaultVoice   = "21m00Tcm4TlvDq8ikWAM"
	outputFormat   = "mp3_44100_128"

	// MaxChars caps the text sent per request.
	MaxChars = 5000
)

// Client synthesizes English speech.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
	voice      string
}

var _ stage.Synthesizer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithModel sets the model; empty keeps the default.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithVoice sets the voice id; empty keeps the default.
func WithVoice(voice string) Option {
	return func(c *Client) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		model:      defaultModel,
		voice:      defaultVoice,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// Synthesize returns MP3 audio for text after collapsing whitespace and
// capping it at MaxChars.
func (c *Client) Synthesize(ctx context.Context, text string) (stage.Audio, error) {
	cleaned := PrepareText(text)
	if cleaned == "" {
		return stage.Audio{}, errors.New("elevenlabs: no text to synthesize")
	}

	reqBody, err := json.Marshal(synthesizeRequest{Text: cleaned, ModelID: c.model})
	if err != nil {
		return stage.Audio{}, fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", c.baseURL, c.voice, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(reqBody))
	if err != nil {
		return stage.Audio{}, fmt.Errorf("elevenlabs: create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return stage.Audio{}, fmt.Errorf("elevenlabs: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stage.Audio{}, fmt.Errorf("elevenlabs: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Detail.Message != "" {
			return stage.Audio{}, fmt.Errorf("elevenlabs: %s", errResp.Detail.Message)
		}
		return stage.Audio{}, fmt.Errorf("elevenlabs: unexpected status %d", resp.StatusCode)
	}
	if len(data) == 0 {
		return stage.Audio{}, errors.New("elevenlabs: empty audio")
	}

	return stage.Audio{Data: data, ContentType: "audio/mpeg"}, nil
}

// PrepareText collapses runs of whitespace and truncates to MaxChars
// runes, marking truncation with an ellipsis.
func PrepareText(text string) string {
	cleaned := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(cleaned) <= MaxChars {
		return cleaned
	}
	runes := []rune(cleaned)
	return string(runes[:MaxChars]) + "..."
}
