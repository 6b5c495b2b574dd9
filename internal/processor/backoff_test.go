package processor

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	base := 10 * time.Second
	cap := 10 * time.Minute

	tests := []struct {
		name    string
		attempt int
		want    time.Duration
	}{
		{"first attempt", 0, 10 * time.Second},
		{"second attempt", 1, 20 * time.Second},
		{"third attempt", 2, 40 * time.Second},
		{"fourth attempt", 3, 80 * time.Second},
		{"capped", 10, cap},
		{"huge attempt does not overflow", 500, cap},
		{"negative attempt clamps to first", -3, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Backoff(base, cap, tt.attempt)
			if got != tt.want {
				t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
			}
		})
	}
}

func TestBackoff_Monotonic(t *testing.T) {
	prev := time.Duration(0)
	for attempt := 0; attempt < 40; attempt++ {
		d := Backoff(time.Second, time.Hour, attempt)
		if d < prev {
			t.Fatalf("delay decreased at attempt %d: %v < %v", attempt, d, prev)
		}
		prev = d
	}
}

func TestBackoff_Defaults(t *testing.T) {
	if got := Backoff(0, 0, 0); got != DefaultBackoffBase {
		t.Errorf("zero base should fall back to default, got %v", got)
	}
	if got := Backoff(0, 0, 50); got != DefaultBackoffCap {
		t.Errorf("zero cap should fall back to default, got %v", got)
	}
}
