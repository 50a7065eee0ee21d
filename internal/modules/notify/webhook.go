// README: Outbound WhatsApp-style webhook (form-encoded POST). Delivery never blocks the caller's operation.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"centraltaxi/internal/logger"
)

type Webhook struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	log      logger.ILogger
}

func NewWebhook(endpoint string, timeout time.Duration, log logger.ILogger) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		timeout:  timeout,
		log:      log,
	}
}

// Send posts one message and reports the outcome.
func (w *Webhook) Send(ctx context.Context, phone, message string) error {
	if w.endpoint == "" {
		return fmt.Errorf("webhook endpoint not configured")
	}
	form := url.Values{}
	form.Set("numero", phone)
	form.Set("mensaje", message)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook post: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// Notify sends in the background, detached from the request context; failures are logged only.
func (w *Webhook) Notify(ctx context.Context, phone, message string) {
	if w.endpoint == "" || phone == "" {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, w.timeout)
		defer cancel()
		if err := w.Send(ctx, phone, message); err != nil {
			w.log.Warning("webhook delivery failed", logger.String("phone", phone), logger.Error(err))
		}
	}()
}
