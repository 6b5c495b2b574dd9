package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"aims/pkg/api"

	"github.com/spf13/viper"
)

func TestProcessCommand_Success(t *testing.T) {
	resetViper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST method, got %s", r.Method)
		}
		if r.URL.Path != "/process/now" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(api.ProcessResponse{Processed: 4, Failed: 1, DeadLettered: 2})
	}))
	defer server.Close()

	viper.Set("url", server.URL)
	viper.Set("key", "test-key")

	var stdout bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stdout)
	rootCmd.SetArgs([]string{"process"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := stdout.String()
	if !strings.Contains(output, "Processed: 4") {
		t.Errorf("expected processed count in output, got: %s", output)
	}
	if !strings.Contains(output, "Dead-lettered: 2") {
		t.Errorf("expected dead-letter count in output, got: %s", output)
	}
}
