package imagegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/logging"
	"storyreel/internal/services"
)

const (
	defaultBaseURL     = "https://image.pollinations.ai"
	defaultModel       = "flux"
	defaultTimeout     = 90 * time.Second
	defaultMaxAttempts = 3
	defaultRetryDelay  = 3 * time.Second
	minImageBytes      = 100
	userAgent          = "storyreel/1.0"
)

// Config captures the image endpoint settings.
type Config struct {
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// Client fetches generated images from a Pollinations-style GET endpoint.
type Client struct {
	baseURL     string
	model       string
	maxAttempts int
	retryDelay  time.Duration
	httpClient  *http.Client
	sleeper     func(time.Duration)
	logger      *slog.Logger
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

// WithRetryDelay sets the base delay between attempts; attempt n waits n times it.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) { c.retryDelay = delay }
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs an image client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		baseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:       strings.TrimSpace(cfg.Model),
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  defaultRetryDelay,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logging.NewNop(),
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "imagegen")
	return c
}

// Available reports whether an endpoint is configured.
func (c *Client) Available() bool {
	return c != nil && c.baseURL != ""
}

// URL returns the request URL for prompt.
func (c *Client) URL(prompt string, width, height int, seed int64) string {
	q := url.Values{}
	q.Set("width", strconv.Itoa(width))
	q.Set("height", strconv.Itoa(height))
	q.Set("nologo", "true")
	q.Set("model", c.model)
	q.Set("seed", strconv.FormatInt(seed, 10))
	return fmt.Sprintf("%s/prompt/%s?%s", c.baseURL, url.PathEscape(prompt), q.Encode())
}

// Generate returns the image bytes for prompt, retrying transient failures.
func (c *Client) Generate(ctx context.Context, prompt string, width, height int, seed int64) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, "images", "generate", "prompt required", nil)
	}
	if width <= 0 || height <= 0 {
		return nil, services.Wrap(services.ErrValidation, "images", "generate", fmt.Sprintf("invalid size %dx%d", width, height), nil)
	}
	target := c.URL(prompt, width, height, seed)
	logger := logging.WithContext(ctx, c.logger)

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		data, err := c.fetch(ctx, target)
		if err == nil {
			return data, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		var status *statusError
		if errors.As(err, &status) && !status.retryable() {
			break
		}
		if attempt < c.maxAttempts {
			logger.Debug("image attempt failed", logging.Int("attempt", attempt), logging.Error(err))
			if err := c.sleep(ctx, time.Duration(attempt)*c.retryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, services.Wrap(services.ErrExternalTool, "images", "generate",
		fmt.Sprintf("image generation failed after %d attempts", c.maxAttempts), lastErr)
}

func (c *Client) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) < minImageBytes {
		return nil, fmt.Errorf("response too small (%d bytes)", len(data))
	}
	return data, nil
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("image endpoint: http %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusRequestTimeout || e.code == http.StatusTooManyRequests || e.code >= http.StatusInternalServerError
}
