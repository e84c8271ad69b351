package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aidigest/internal/config"
	"aidigest/internal/domain"
	"aidigest/internal/ports"
)

// Notifier sends digests as plain-text email via the SendGrid v3 mail API.
type Notifier struct {
	endpoint string
	apiKey   string
	from     string
	fromName string
	to       string
	client   *http.Client
}

var _ ports.Destination = (*Notifier)(nil)

// NewNotifier builds the destination from configuration.
func NewNotifier(cfg config.EmailConfig) *Notifier {
	return &Notifier{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		from:     cfg.From,
		fromName: cfg.FromName,
		to:       cfg.To,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Name identifies this destination in delivery outcomes.
func (n *Notifier) Name() string {
	return "email"
}

// Deliver posts a SendGrid mail-send request carrying the digest.
func (n *Notifier) Deliver(ctx context.Context, msg domain.DigestMessage) error {
	if n.apiKey == "" || n.from == "" || n.to == "" || n.endpoint == "" {
		return fmt.Errorf("email notifier misconfigured")
	}

	payload := sgMailPayload{
		Personalizations: []sgPersonalization{{
			To: []sgAddress{{Email: n.to}},
		}},
		From:    sgAddress{Email: n.from, Name: n.fromName},
		Subject: msg.Subject,
		Content: []sgContent{{Type: "text/plain", Value: msg.Text}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sendgrid returned %s: %s", resp.Status, string(respBody))
	}

	return nil
}

// SendGrid v3 mail-send payload types.
type sgMailPayload struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}
