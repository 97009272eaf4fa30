package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen/quotedeck/internal/adapters/clients"
	"github.com/jsamuelsen/quotedeck/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotedeck/internal/ports"
)

// WebhookName names the chat webhook in errors and logs.
const WebhookName = "chat-webhook"

// webhookPayload is the JSON body of a chat webhook call.
// Titled messages go out as a single embed; plain ones as content.
type webhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []webhookEmbed `json:"embeds,omitempty"`
}

type webhookEmbed struct {
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	Footer      *webhookFooter `json:"footer,omitempty"`
}

type webhookFooter struct {
	Text string `json:"text"`
}

// WebhookPublisher posts messages to a chat webhook.
type WebhookPublisher struct {
	client *clients.Client
	logger *slog.Logger
}

// NewWebhookPublisher creates a publisher whose client points at the webhook URL.
func NewWebhookPublisher(client *clients.Client, logger *slog.Logger) *WebhookPublisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &WebhookPublisher{client: client, logger: logger}
}

// Publish implements ports.Publisher.
func (p *WebhookPublisher) Publish(ctx context.Context, msg ports.Message) error {
	body, err := json.Marshal(toPayload(msg))
	if err != nil {
		return fmt.Errorf("encoding webhook payload: %w", err)
	}

	resp, err := p.client.Post(ctx, "", body)
	if err != nil {
		return acl.MapHTTPError(nil, err, WebhookName, "publish", "")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := acl.MapHTTPError(resp, nil, WebhookName, "publish", ""); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "message published", slog.Int("status", resp.StatusCode))

	return nil
}

func toPayload(msg ports.Message) webhookPayload {
	if msg.Title == "" && msg.Footer == "" && msg.URL == "" {
		return webhookPayload{Content: msg.Body}
	}

	embed := webhookEmbed{
		Title:       msg.Title,
		Description: msg.Body,
		URL:         msg.URL,
	}

	if msg.Footer != "" {
		embed.Footer = &webhookFooter{Text: msg.Footer}
	}

	return webhookPayload{Embeds: []webhookEmbed{embed}}
}
