package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxOutputTokens = 2000
	defaultMaxRetries      = 2
)

// Config captures the settings used to reach the Responses API. MaxAttempts
// counts the first request; zero keeps one try plus two SDK retries.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
	MaxAttempts    int
}

// Client issues structured-output requests through the openai-go Responses API.
type Client struct {
	sdk   oai.Client
	model string
	ready bool
}

// NewClient builds a client. Extra request options are appended after the
// defaults so tests can point the SDK at an httptest server.
func NewClient(cfg Config, opts ...option.RequestOption) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	retries := defaultMaxRetries
	if cfg.MaxAttempts > 0 {
		retries = cfg.MaxAttempts - 1
	}
	key := strings.TrimSpace(cfg.APIKey)
	base := []option.RequestOption{
		option.WithAPIKey(key),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(retries),
	}
	if url := strings.TrimSpace(cfg.BaseURL); url != "" {
		base = append(base, option.WithBaseURL(url))
	}
	model := strings.TrimSpace(cfg.Model)
	return &Client{
		sdk:   oai.NewClient(append(base, opts...)...),
		model: model,
		ready: key != "" && model != "",
	}
}

// Configured reports whether an API key and model are present.
func (c *Client) Configured() bool {
	return c != nil && c.ready
}

// CompleteSchema sends instructions and input and requires the model to answer
// with JSON matching schema. The raw output text is returned.
func (c *Client) CompleteSchema(ctx context.Context, name, instructions, input string, schema map[string]any) (string, error) {
	if !c.Configured() {
		return "", errors.New("openai: client not configured")
	}
	if strings.TrimSpace(input) == "" {
		return "", errors.New("openai: input required")
	}
	if len(schema) == 0 {
		return "", errors.New("openai: schema required")
	}
	params := responses.ResponseNewParams{
		Model:           c.model,
		MaxOutputTokens: oai.Int(defaultMaxOutputTokens),
		Instructions:    oai.String(strings.TrimSpace(instructions)),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: []responses.ResponseInputItemUnionParam{
				responses.ResponseInputItemParamOfMessage(strings.TrimSpace(input), responses.EasyInputMessageRoleUser),
			},
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:        name,
					Schema:      schema,
					Strict:      oai.Bool(true),
					Description: oai.String(name + " JSON"),
					Type:        "json_schema",
				},
			},
		},
	}
	resp, err := c.sdk.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai responses: %w", err)
	}
	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return "", fmt.Errorf("openai responses: empty output (status=%s)", resp.Status)
	}
	return text, nil
}

// Bind fixes the schema used for every CompleteJSON call on the returned value.
func (c *Client) Bind(name string, schema map[string]any) *Bound {
	return &Bound{client: c, name: name, schema: schema}
}

// Bound adapts a schema-bound Client to a plain system/user JSON completer.
type Bound struct {
	client *Client
	name   string
	schema map[string]any
}

// CompleteJSON satisfies the JSON completer contract used by the story LLM helpers.
func (b *Bound) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if b == nil {
		return "", errors.New("openai: nil binding")
	}
	return b.client.CompleteSchema(ctx, b.name, systemPrompt, userPrompt, b.schema)
}

// Configured mirrors the underlying client.
func (b *Bound) Configured() bool {
	return b != nil && b.client.Configured()
}

type healthPayload struct {
	OK bool `json:"ok"`
}

// HealthCheck issues a minimal structured request to verify the key and model.
func (c *Client) HealthCheck(ctx context.Context) error {
	raw, err := c.CompleteSchema(ctx, "HealthCheck", "You must respond with JSON only.", `Respond with {"ok":true}`, SchemaFor[healthPayload]())
	if err != nil {
		return fmt.Errorf("openai health: %w", err)
	}
	var parsed healthPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return fmt.Errorf("openai health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("openai health: unexpected response")
	}
	return nil
}
