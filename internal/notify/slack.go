package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/go-ports/glucowatch/internal/config"
)

// SlackNotifier posts notifications to a Slack incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	Client     *http.Client
}

func (*SlackNotifier) Name() string { return config.SinkSlack }

func (s *SlackNotifier) Notify(ctx context.Context, msg Message) error {
	if s.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	payload := &slack.WebhookMessage{
		Text: msg.Title,
		Attachments: []slack.Attachment{{
			Title:    msg.Subtitle,
			Text:     msg.Body,
			Fallback: msg.Text(),
		}},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.WebhookURL, client, payload); err != nil {
		return fmt.Errorf("send slack notification: %w", err)
	}
	return nil
}
