package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const (
	defaultTimeout  = 60 * time.Second
	synthesizePath  = "/synthesize"
	healthPath      = "/health"
	minAudioBytes   = 64
	maxErrorSnippet = 512
)

var supportedLanguages = []string{"ko", "en", "ja", "zh", "es"}

// Config captures the speech endpoint settings.
type Config struct {
	BaseURL        string
	Voice          string
	Language       string
	TimeoutSeconds int
}

// Client posts narration text to an HTTP TTS service and returns audio bytes.
type Client struct {
	baseURL    string
	voice      string
	language   string
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a speech client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		voice:      strings.TrimSpace(cfg.Voice),
		language:   strings.TrimSpace(cfg.Language),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "speech")
	return c
}

// Available reports whether an endpoint is configured.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

// Language returns the configured default language.
func (c *Client) Language() string { return c.language }

// NormalizeLanguage maps a BCP 47 tag such as "ko-KR" onto a supported base
// language, or returns a validation error.
func NormalizeLanguage(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "voice", "language", fmt.Sprintf("invalid language %q", lang), err)
	}
	base, _ := tag.Base()
	for _, supported := range supportedLanguages {
		if base.String() == supported {
			return supported, nil
		}
	}
	return "", services.Wrap(services.ErrValidation, "voice", "language",
		fmt.Sprintf("unsupported language %q (supported: %s)", lang, strings.Join(supportedLanguages, ", ")), nil)
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Lang  string `json:"lang"`
	Voice string `json:"voice,omitempty"`
}

// Synthesize returns audio for text. An empty lang uses the configured default.
func (c *Client) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, services.Wrap(services.ErrValidation, "voice", "synthesize", "text required", nil)
	}
	if !c.Available() {
		return nil, services.Wrap(services.ErrConfiguration, "voice", "synthesize", "speech base_url not configured", nil)
	}
	if strings.TrimSpace(lang) == "" {
		lang = c.language
	}
	normalized, err := NormalizeLanguage(lang)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(synthesizeRequest{Text: text, Lang: normalized, Voice: c.voice})
	if err != nil {
		return nil, fmt.Errorf("speech: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("speech: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrTransient, "voice", "synthesize", "request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSnippet))
		return nil, services.Wrap(services.ErrExternalTool, "voice", "synthesize",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}
	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech: read body: %w", err)
	}
	if len(audio) < minAudioBytes {
		return nil, services.Wrap(services.ErrExternalTool, "voice", "synthesize",
			fmt.Sprintf("audio too small (%d bytes)", len(audio)), nil)
	}
	logging.WithContext(ctx, c.logger).Debug("speech synthesized",
		logging.String("lang", normalized),
		logging.Int("bytes", len(audio)),
	)
	return audio, nil
}

// HealthCheck verifies the service answers on /health.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Available() {
		return services.Wrap(services.ErrConfiguration, "voice", "health", "speech base_url not configured", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("speech health: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("speech health: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("speech health: http %d", resp.StatusCode)
	}
	return nil
}
