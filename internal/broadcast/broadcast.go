// Package broadcast delivers created records to the federation
// collaborator. Delivery is best-effort from the import pipeline's
// point of view; the collaborator owns queuing and retries.
package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openshelf/openshelf/internal/services"
)

// HTTPBroadcaster posts events as JSON to the collaborator endpoint.
type HTTPBroadcaster struct {
	httpClient *http.Client
	endpoint   string
}

// NewHTTPBroadcaster creates a broadcaster posting to the given
// endpoint.
func NewHTTPBroadcaster(endpoint string) *HTTPBroadcaster {
	return &HTTPBroadcaster{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		endpoint: endpoint,
	}
}

func (b *HTTPBroadcaster) Broadcast(ctx context.Context, event services.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// Noop discards every event. Used when no federation endpoint is
// configured, and by tests that only care that broadcasting happened.
type Noop struct{}

func (Noop) Broadcast(ctx context.Context, event services.Event) error {
	return nil
}

// Compile-time interface checks
var (
	_ services.Broadcaster = (*HTTPBroadcaster)(nil)
	_ services.Broadcaster = Noop{}
)
