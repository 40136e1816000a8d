package dispatch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"fieldmap/internal/model"
	"fieldmap/internal/template"
)

// JSONSender posts a rendered template verbatim to a generic webhook
// endpoint. The template itself is the payload; token output is escaped
// for embedding in JSON string positions.
type JSONSender struct {
	client   *retryablehttp.Client
	renderer *template.Renderer
}

// NewJSONSender creates a JSONSender with a quiet, lightly retrying
// HTTP client.
func NewJSONSender(timeout time.Duration) *JSONSender {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = timeout
	return &JSONSender{client: client, renderer: template.New()}
}

// NewJSONSenderWithClient creates a JSONSender around an existing client
// (useful for testing).
func NewJSONSenderWithClient(client *retryablehttp.Client) *JSONSender {
	return &JSONSender{client: client, renderer: template.New()}
}

// Deliver renders the hook body and POSTs it as the request payload.
func (s *JSONSender) Deliver(ctx context.Context, hook model.Webhook, rctx *template.Context) error {
	body := s.renderer.Render(hook.Body, rctx, template.EscapeJSON)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, hook.Target, []byte(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
