package slack

import (
	"context"
	"net/http"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/smallbiznis/rentflow/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.slack",
	fx.Provide(NewFromConfig),
)

type Provider interface {
	PostMessage(ctx context.Context, channelID string, message string) error
}

type NoOpProvider struct{}

func (p *NoOpProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return nil
}

// WebhookProvider posts to a Slack incoming webhook.
type WebhookProvider struct {
	url    string
	client *http.Client
}

func NewWebhook(url string, client *http.Client) *WebhookProvider {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &WebhookProvider{url: url, client: client}
}

func NewFromConfig(cfg config.Config) Provider {
	if cfg.Slack.WebhookURL == "" {
		return &NoOpProvider{}
	}
	return NewWebhook(cfg.Slack.WebhookURL, nil)
}

func (p *WebhookProvider) PostMessage(ctx context.Context, channelID string, message string) error {
	return slackapi.PostWebhookCustomHTTPContext(ctx, p.url, p.client, &slackapi.WebhookMessage{
		Channel: channelID,
		Text:    message,
	})
}
