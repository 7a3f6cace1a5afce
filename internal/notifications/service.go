package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/config"
)

const userAgent = "storyreel/0.1"

// Event names a job milestone worth pushing.
type Event string

const (
	EventJobQueued    Event = "job_queued"
	EventJobCompleted Event = "job_completed"
	EventJobFailed    Event = "job_failed"
	EventTest         Event = "test"
)

// Payload carries the values an event message is built from.
type Payload map[string]any

// Service publishes events. Implementations must be safe for concurrent use.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy-backed service, or a no-op one when no topic is set.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	msg, ok := format(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// format returns false for events that are not pushed.
func format(event Event, payload Payload) (message, bool) {
	switch event {
	case EventJobCompleted:
		title := firstValue(payload, "title", "topic")
		body := fmt.Sprintf("🎬 Video ready: %s", title)
		if path := stringValue(payload, "outputPath"); path != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, path)
		}
		return message{
			title:    "storyreel - Video Ready",
			body:     body,
			tags:     []string{"storyreel", "render", "completed"},
			priority: "high",
		}, true
	case EventJobFailed:
		var b strings.Builder
		b.WriteString("❌ Render failed")
		if topic := stringValue(payload, "topic"); topic != "" {
			b.WriteString(" for ")
			b.WriteString(topic)
		}
		b.WriteString(": ")
		if reason := stringValue(payload, "error"); reason != "" {
			b.WriteString(reason)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "storyreel - Render Failed",
			body:     b.String(),
			tags:     []string{"storyreel", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "storyreel - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"storyreel", "test"},
			priority: "low",
		}, true
	default:
		// Queue chatter stays local.
		return message{}, false
	}
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func stringValue(payload Payload, key string) string {
	if payload == nil {
		return ""
	}
	switch v := payload[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func firstValue(payload Payload, keys ...string) string {
	for _, key := range keys {
		if v := stringValue(payload, key); v != "" {
			return v
		}
	}
	return "untitled"
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
