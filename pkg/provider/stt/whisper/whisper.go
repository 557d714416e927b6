// Package whisper provides speech-to-text transcription backed by whisper.cpp,
// either through a running whisper-server instance (HTTP) or through the native
// CGO bindings (see native.go).
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/armanbance/TwinMind/pkg/provider/stt"
)

// Compile-time assertion that Provider implements stt.Transcriber.
var _ stt.Transcriber = (*Provider)(nil)

// Provider implements stt.Transcriber against a whisper.cpp server
// (https://github.com/ggerganov/whisper.cpp/tree/master/examples/server).
type Provider struct {
	serverURL string
	language  string
	client    *http.Client
}

// config holds optional configuration for the provider.
type config struct {
	language string
	timeout  time.Duration
	client   *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithLanguage sets the spoken language hint (ISO 639-1, e.g. "en").
// Default is "auto".
func WithLanguage(lang string) Option {
	return func(c *config) {
		c.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Default is 5 minutes;
// long recordings take a while to process.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.client = client
	}
}

// New constructs a Provider talking to the whisper-server at serverURL,
// e.g. "http://localhost:9000".
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("whisper: serverURL must not be empty")
	}

	cfg := &config{
		language: "auto",
		timeout:  5 * time.Minute,
	}
	for _, o := range opts {
		o(cfg)
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	return &Provider{
		serverURL: serverURL,
		language:  cfg.language,
		client:    client,
	}, nil
}

// inferenceResponse is the whisper-server /inference response body.
type inferenceResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

// Transcribe implements stt.Transcriber.
func (p *Provider) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if len(wav) == 0 {
		return "", fmt.Errorf("whisper: empty audio: %w", stt.ErrInvalidAudio)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("whisper: write form file: %w", err)
	}
	if err := mw.WriteField("language", p.language); err != nil {
		return "", fmt.Errorf("whisper: write language field: %w", err)
	}
	if err := mw.WriteField("response_format", "json"); err != nil {
		return "", fmt.Errorf("whisper: write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: inference request: %v: %w", err, stt.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("whisper: inference status %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(msg), classifyStatus(resp.StatusCode))
	}

	var out inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("whisper: decode response: %v: %w", err, stt.ErrUnavailable)
	}
	if out.Error != "" {
		return "", fmt.Errorf("whisper: server error: %s: %w", out.Error, stt.ErrInvalidAudio)
	}

	return out.Text, nil
}

// classifyStatus maps an HTTP status code to the matching stt sentinel.
func classifyStatus(code int) error {
	switch {
	case code == http.StatusTooManyRequests:
		return stt.ErrRateLimited
	case code >= 400 && code < 500:
		return stt.ErrInvalidAudio
	default:
		return stt.ErrUnavailable
	}
}
