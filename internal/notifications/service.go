package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"clipper/internal/config"
)

const userAgent = "Clipper-Go/0.1.0"

// Event identifies a notification kind.
type Event string

const (
	EventBatchStarted   Event = "batch_started"
	EventBatchCompleted Event = "batch_completed"
	EventClipPublished  Event = "clip_published"
	EventError          Event = "error"
	EventTest           Event = "test"
)

// Payload carries event fields. Values are rendered with fmt.
type Payload map[string]any

// Service publishes events.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds an ntfy notifier when a topic is configured and a no-op
// otherwise.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	timeout := cfg.NotifyTimeout()
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
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	return n.send(ctx, msg)
}

// render maps an event to its message. Unknown events are dropped.
func render(event Event, payload Payload) (message, bool) {
	switch event {
	case EventBatchStarted:
		return message{
			title: "Clipper - Batch Started",
			body:  fmt.Sprintf("Started %s with %d lines", payload.text("batch"), payload.number("lines")),
			tags:  []string{"clipper", "batch", "started"},
		}, true
	case EventBatchCompleted:
		total := payload.number("total")
		published := payload.number("published")
		failed := payload.number("failed")
		elapsed := payload.duration("elapsed")
		msg := message{
			title: "Clipper - Batch Complete",
			body:  fmt.Sprintf("%d/%d published in %s", published, total, elapsed),
			tags:  []string{"clipper", "batch", "completed"},
		}
		if failed > 0 {
			msg.title = "Clipper - Batch Complete (with errors)"
			msg.body = fmt.Sprintf("%d/%d published, %d failed in %s", published, total, failed, elapsed)
		}
		return msg, true
	case EventClipPublished:
		body := fmt.Sprintf("Published %s to %s", payload.text("clip"), payload.text("category"))
		if names := payload.text("names"); names != "" {
			body += "\n" + names
		}
		return message{
			title:    "Clipper - Published",
			body:     body,
			tags:     []string{"clipper", "publish"},
			priority: "low",
		}, true
	case EventError:
		var b strings.Builder
		b.WriteString("Error")
		if label := payload.text("context"); label != "" {
			b.WriteString(" with ")
			b.WriteString(label)
		}
		b.WriteString(": ")
		if detail := payload.text("error"); detail != "" {
			b.WriteString(detail)
		} else {
			b.WriteString("unknown")
		}
		return message{
			title:    "Clipper - Error",
			body:     b.String(),
			tags:     []string{"clipper", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Clipper - Test",
			body:     "Notification system test",
			tags:     []string{"clipper", "test"},
			priority: "low",
		}, true
	default:
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

func (p Payload) text(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func (p Payload) number(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}

func (p Payload) duration(key string) string {
	d, _ := p[key].(time.Duration)
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
