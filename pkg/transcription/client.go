// Package transcription talks to an OpenAI-compatible speech-to-text endpoint.
package transcription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/audio/transcriptions"
	defaultModel   = "whisper-1"
)

// ErrEmptyTranscript is returned when the service answers successfully with no text.
var ErrEmptyTranscript = errors.New("transcription returned no text")

type Transcriber interface {
	Transcribe(ctx context.Context, media Media, language, format string) (string, error)
}

type Media struct {
	Name        string
	ContentType string
	Data        []byte
}

// Config captures the runtime settings for the transcription service. A zero TimeoutSeconds means
// the caller's context is the only deadline.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

var _ Transcriber = (*Client)(nil)

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			Model:          strings.TrimSpace(cfg.Model),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{},
	}
	if cfg.TimeoutSeconds > 0 {
		client.httpClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	return client
}

// Transcribe uploads the media and returns the transcript rendered in format (e.g. "vtt").
func (c *Client) Transcribe(ctx context.Context, media Media, language, format string) (string, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", media.Name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(media.Data); err != nil {
		return "", err
	}
	fields := map[string]string{
		"model":           c.cfg.Model,
		"response_format": format,
		"language":        language,
	}
	for _, key := range []string{"model", "response_format", "language"} {
		if fields[key] == "" {
			continue
		}
		if err := w.WriteField(key, fields[key]); err != nil {
			return "", err
		}
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, &body)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read transcription response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("transcription status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(payload)), 512))
	}

	text := strings.TrimSpace(string(payload))
	if text == "" || text == "WEBVTT" {
		return "", ErrEmptyTranscript
	}
	return text, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
