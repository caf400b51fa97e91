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

// HTTPNotifier posts events to the notification service's ingest endpoint.
type HTTPNotifier struct {
	endpointURL string
	apiKey      string
	client      *http.Client
}

// NewHTTPNotifier creates a new HTTP notifier client
func NewHTTPNotifier(endpointURL, apiKey string) *HTTPNotifier {
	return &HTTPNotifier{
		endpointURL: endpointURL,
		apiKey:      apiKey,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Notify posts the event as JSON. Non-2xx responses are errors.
func (n *HTTPNotifier) Notify(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpointURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if n.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.apiKey)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notification request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// GetName returns the notifier name
func (n *HTTPNotifier) GetName() string {
	return "http"
}
