// Package notify delivers best-effort notifications to configured
// webhook endpoints.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	applogger "SignalDesk/pkg/logger"
)

type payload struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	SentAt time.Time `json:"sent_at"`
}

// WebhookSink POSTs notifications to each configured URL. Delivery is
// fire-and-forget; failures are logged and dropped.
type WebhookSink struct {
	urls   []string
	client *http.Client
	logger *applogger.Logger
}

func NewWebhookSink(urls []string, timeout time.Duration, l *applogger.Logger) *WebhookSink {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSink{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
		logger: l,
	}
}

func (s *WebhookSink) Notify(ctx context.Context, title, body string) {
	if len(s.urls) == 0 {
		return
	}
	b, err := json.Marshal(payload{Title: title, Body: body, SentAt: time.Now()})
	if err != nil {
		s.logger.Warn("marshal notification", applogger.Error(err))
		return
	}
	for _, url := range s.urls {
		go s.deliver(url, b)
	}
}

func (s *WebhookSink) deliver(url string, body []byte) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("build webhook request", applogger.String("url", url), applogger.Error(err))
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed", applogger.String("url", url), applogger.Error(err))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook rejected",
			applogger.String("url", url),
			applogger.Int("status", resp.StatusCode))
	}
}

// NopSink discards notifications; used when no webhooks are configured.
type NopSink struct{}

func (NopSink) Notify(context.Context, string, string) {}
