package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/josh-kwaku/recipe-wallet/internal/domain"
	"github.com/josh-kwaku/recipe-wallet/internal/logging"
)

// HTTPSink posts each notification as JSON to a webhook.
type HTTPSink struct {
	url        string
	httpClient *http.Client
}

func NewHTTPSink(url string) *HTTPSink {
	return &HTTPSink{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func (s *HTTPSink) Send(ctx context.Context, n domain.Notification) error {
	log := logging.FromContext(ctx)

	body, err := json.Marshal(n)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("HTTPSink.Send: marshal: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("HTTPSink.Send: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", n.ID.String())

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTPSink.Send: send: %w", err)
	}
	defer resp.Body.Close()

	log.Debug("notification webhook response",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err = fmt.Errorf("HTTPSink.Send: unexpected status %d: %s", resp.StatusCode, string(respBody))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return backoff.Permanent(err)
	}
	return err
}
