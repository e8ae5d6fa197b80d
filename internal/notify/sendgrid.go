package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const sendGridEndpoint = "https://api.sendgrid.com/v3/mail/send"

// SendGrid sends plain-text mail through the SendGrid v3 API.
type SendGrid struct {
	apiKey   string
	from     sgEmail
	endpoint string
	client   *http.Client
}

type SendGridOption func(*SendGrid)

// WithEndpoint points the client at another URL (tests, proxies).
func WithEndpoint(u string) SendGridOption { return func(s *SendGrid) { s.endpoint = u } }

func WithHTTPClient(c *http.Client) SendGridOption { return func(s *SendGrid) { s.client = c } }

func NewSendGrid(apiKey, fromEmail, fromName string, opts ...SendGridOption) *SendGrid {
	s := &SendGrid{
		apiKey:   apiKey,
		from:     sgEmail{Email: fromEmail, Name: fromName},
		endpoint: sendGridEndpoint,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type sgEmail struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgEmail `json:"to"`
}

type sgRequest struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgEmail             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// Notify sends one mail addressed to all recipients. No recipients is a no-op.
func (s *SendGrid) Notify(ctx context.Context, msg Message) error {
	to := clean(msg.To)
	if len(to) == 0 {
		return nil
	}
	p := sgPersonalization{}
	for _, addr := range to {
		p.To = append(p.To, sgEmail{Email: addr})
	}
	body, err := json.Marshal(sgRequest{
		Personalizations: []sgPersonalization{p},
		From:             s.from,
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Body}},
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	defer resp.Body.Close()

	// 202 Accepted on success
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid error: status=%d body=%s", resp.StatusCode, b)
	}
	return nil
}
