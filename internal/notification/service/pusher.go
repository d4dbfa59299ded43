package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/upkyp/upkyp/internal/config"
	notificationdomain "github.com/upkyp/upkyp/internal/notification/domain"
)

// HTTPPusher posts the payload to the subscription endpoint. Transport-level
// retries live here; delivery-level retries are the outbox dispatcher's job,
// so the retry budget stays small.
type HTTPPusher struct {
	client  *http.Client
	contact string
}

func NewHTTPPusher(cfg config.Config) *HTTPPusher {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.HTTPClient.Timeout = 10 * time.Second
	// 4xx responses are not retried by retryablehttp; the dispatcher decides
	// whether to prune or give up based on the status we surface.

	return &HTTPPusher{
		client:  retryClient.StandardClient(),
		contact: cfg.PushContact,
	}
}

func (p *HTTPPusher) Push(ctx context.Context, subscription notificationdomain.PushSubscription, payload notificationdomain.PushPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("TTL", "86400")
	if p.contact != "" {
		req.Header.Set("From", p.contact)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return notificationdomain.ErrSubscriptionGone
	default:
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
}
