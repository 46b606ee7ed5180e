package notification

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"time"

	"github.com/debatetab/debatetab/internal/conf"
	"github.com/debatetab/debatetab/internal/httpclient"
)

const (
	defaultWebhookTimeout = 10 * time.Second

	// maxErrorBodySize limits how much of an error response is read.
	maxErrorBodySize = 1024
)

// WebhookQueue posts each message as JSON to an HTTP endpoint that accepts
// send requests on behalf of a delivery service.
type WebhookQueue struct {
	url     string
	headers map[string]string
	client  *httpclient.Client
}

// NewWebhookQueue creates a queue posting to the configured URL.
func NewWebhookQueue(cfg *conf.WebhookQueueSettings) *WebhookQueue {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	return &WebhookQueue{
		url:     cfg.URL,
		headers: maps.Clone(cfg.Headers),
		client:  httpclient.New(&httpclient.Config{DefaultTimeout: timeout}),
	}
}

// Name returns "webhook".
func (q *WebhookQueue) Name() string { return "webhook" }

// Enqueue posts msg. Any non-2xx response is a dispatch failure.
func (q *WebhookQueue) Enqueue(ctx context.Context, msg *Message) error {
	if err := msg.Validate(); err != nil {
		return dispatchError(q.Name(), err)
	}

	resp, err := q.client.PostJSON(ctx, q.url, q.headers, msg)
	if err != nil {
		return dispatchError(q.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return dispatchError(q.Name(), fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Close releases idle connections.
func (q *WebhookQueue) Close() error {
	q.client.Close()
	return nil
}
