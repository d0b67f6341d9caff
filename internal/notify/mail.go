package notify

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// MailNotifier sends transactional email through an HTTP mail provider API.
type MailNotifier struct {
	client *resty.Client
	from   string
	log    *zap.Logger
}

// NewMailNotifier returns a notifier posting to the provider at baseURL with
// the given API key. The resty client carries the transport timeout; callers
// additionally bound each send via ctx.
func NewMailNotifier(baseURL, apiKey, from string, log *zap.Logger) *MailNotifier {
	client := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "Bearer "+apiKey)
	return &MailNotifier{client: client, from: from, log: log}
}

type mailMessage struct {
	From     string            `json:"from"`
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

// Notify implements Notifier. The provider resolves the template named after
// the notification kind.
func (m *MailNotifier) Notify(ctx context.Context, kind Kind, recipient string, data map[string]string) error {
	msg := mailMessage{
		From:     m.from,
		To:       recipient,
		Template: string(kind),
		Data:     data,
	}
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(msg).
		Post("/messages")
	if err != nil {
		return fmt.Errorf("notify: send %s: %w", kind, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notify: send %s: provider status %d", kind, resp.StatusCode())
	}
	return nil
}
