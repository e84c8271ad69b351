package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// Notifier posts digests to a Slack incoming webhook.
type Notifier struct {
	webhookURL string
	client     *http.Client
}

var _ ports.Destination = (*Notifier)(nil)

// NewNotifier registers the pre-configured webhook URL.
func NewNotifier(webhookURL string) *Notifier {
	return &Notifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies this destination in delivery outcomes.
func (n *Notifier) Name() string {
	return "slack"
}

// Deliver posts the digest text as a webhook payload. Only the status code
// is inspected; Slack returns no useful body.
func (n *Notifier) Deliver(ctx context.Context, msg domain.DigestMessage) error {
	if n.webhookURL == "" || n.client == nil {
		return fmt.Errorf("slack notifier misconfigured")
	}

	body, err := json.Marshal(map[string]string{"text": msg.Text})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("slack error: %s", resp.Status)
	}

	return nil
}
