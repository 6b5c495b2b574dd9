package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Delivery is the rendered output handed to the downstream collaborator.
type Delivery struct {
	EventID         uuid.UUID      `json:"event_id"`
	EventType       string         `json:"event_type"`
	Subject         string         `json:"subject"`
	TemplateKey     string         `json:"template_key"`
	TemplateVersion int            `json:"template_version"`
	Output          string         `json:"output"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Deliverer hands a rendered interpretation to the downstream system.
// Implementations are expected to be slow and occasionally unavailable.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// DeliveryError classifies a delivery failure. Permanent failures route to
// the dead-letter queue; everything else is retried with backoff.
type DeliveryError struct {
	Permanent  bool
	StatusCode int
	Err        error
}

func (e *DeliveryError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s delivery failure (status %d): %v", kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s delivery failure: %v", kind, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// WebhookDeliverer posts rendered output to a configured HTTP endpoint.
type WebhookDeliverer struct {
	Endpoint   string
	HTTPClient *http.Client
}

// NewWebhookDeliverer creates a deliverer for the given endpoint.
func NewWebhookDeliverer(endpoint string, timeout time.Duration) *WebhookDeliverer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &WebhookDeliverer{
		Endpoint:   endpoint,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// Deliver posts the delivery as JSON. 2xx is success; 408, 429 and 5xx are
// transient; any other 4xx means the payload will never be accepted.
func (w *WebhookDeliverer) Deliver(ctx context.Context, d Delivery) error {
	body, err := json.Marshal(d)
	if err != nil {
		return &DeliveryError{Permanent: true, Err: fmt.Errorf("failed to marshal delivery: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{Permanent: true, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "aims-engine/1.0")
	req.Header.Set("X-AIMS-Template", d.TemplateKey)

	resp, err := w.HTTPClient.Do(req)
	if err != nil {
		// Timeouts and transport errors are worth retrying.
		return &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	devErr := &DeliveryError{
		StatusCode: resp.StatusCode,
		Err:        errors.New(http.StatusText(resp.StatusCode)),
	}
	switch {
	case resp.StatusCode == http.StatusRequestTimeout,
		resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode >= 500:
		// Transient.
	default:
		devErr.Permanent = true
	}
	return devErr
}
