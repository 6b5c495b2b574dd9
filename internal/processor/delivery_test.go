package processor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testDelivery() Delivery {
	return Delivery{
		EventID:         uuid.New(),
		EventType:       "daily-reading",
		Subject:         "user-42",
		TemplateKey:     "daily-reading",
		TemplateVersion: 2,
		Output:          "Good morning, user-42.",
	}
}

func TestWebhookDeliverer_Success(t *testing.T) {
	var got Delivery
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if tk := r.Header.Get("X-AIMS-Template"); tk != "daily-reading" {
			t.Errorf("unexpected template header %q", tk)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	d := NewWebhookDeliverer(server.URL, time.Second)
	delivery := testDelivery()
	if err := d.Deliver(context.Background(), delivery); err != nil {
		t.Fatalf("Deliver failed: %v", err)
	}
	if got.Output != delivery.Output {
		t.Errorf("delivered output %q, want %q", got.Output, delivery.Output)
	}
}

func TestWebhookDeliverer_StatusClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantErr       bool
		wantPermanent bool
	}{
		{"200 ok", http.StatusOK, false, false},
		{"201 created", http.StatusCreated, false, false},
		{"400 bad request is permanent", http.StatusBadRequest, true, true},
		{"404 not found is permanent", http.StatusNotFound, true, true},
		{"408 timeout is transient", http.StatusRequestTimeout, true, false},
		{"429 throttled is transient", http.StatusTooManyRequests, true, false},
		{"500 is transient", http.StatusInternalServerError, true, false},
		{"503 is transient", http.StatusServiceUnavailable, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			d := NewWebhookDeliverer(server.URL, time.Second)
			err := d.Deliver(context.Background(), testDelivery())

			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var devErr *DeliveryError
			if !errors.As(err, &devErr) {
				t.Fatalf("expected DeliveryError, got %T", err)
			}
			if devErr.Permanent != tt.wantPermanent {
				t.Errorf("permanent = %v, want %v", devErr.Permanent, tt.wantPermanent)
			}
			if devErr.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", devErr.StatusCode, tt.status)
			}
		})
	}
}

func TestWebhookDeliverer_TransportErrorIsTransient(t *testing.T) {
	// Closed server: the connection is refused.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	d := NewWebhookDeliverer(server.URL, time.Second)
	err := d.Deliver(context.Background(), testDelivery())

	var devErr *DeliveryError
	if !errors.As(err, &devErr) {
		t.Fatalf("expected DeliveryError, got %T", err)
	}
	if devErr.Permanent {
		t.Error("transport errors must be retryable")
	}
}
