package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"aims/pkg/api"
)

// Client handles API calls to the aims controller.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewClient creates a new client with the given base URL and API key.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// APIError represents an error response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (c *Client) do(method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.APIKey != "" {
		req.Header.Set("X-API-Key", c.APIKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp api.ErrorResponse
		raw, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// SubmitEvent sends POST /admin/trigger-event.
func (c *Client) SubmitEvent(req api.TriggerEventRequest) (*api.TriggerEventResponse, error) {
	var resp api.TriggerEventResponse
	if err := c.do(http.MethodPost, "/admin/trigger-event", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ProcessNow sends POST /process/now.
func (c *Client) ProcessNow() (*api.ProcessResponse, error) {
	var resp api.ProcessResponse
	if err := c.do(http.MethodPost, "/process/now", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SchedulerStatus sends GET /scheduler/status.
func (c *Client) SchedulerStatus() (*api.SchedulerStatusResponse, error) {
	var resp api.SchedulerStatusResponse
	if err := c.do(http.MethodGet, "/scheduler/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Summary sends GET /admin/summary.
func (c *Client) Summary() (*api.SummaryResponse, error) {
	var resp api.SummaryResponse
	if err := c.do(http.MethodGet, "/admin/summary", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListDeadLetters sends GET /admin/dead-letters.
func (c *Client) ListDeadLetters(limit, offset int) ([]api.DeadLetterResponse, error) {
	var resp []api.DeadLetterResponse
	path := fmt.Sprintf("/admin/dead-letters?limit=%d&offset=%d", limit, offset)
	if err := c.do(http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// RetryDeadLetter sends POST /admin/dead-letters/{id}/retry.
func (c *Client) RetryDeadLetter(entryID string) (*api.RedriveResponse, error) {
	var resp api.RedriveResponse
	if err := c.do(http.MethodPost, "/admin/dead-letters/"+entryID+"/retry", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListTemplates sends GET /admin/templates.
func (c *Client) ListTemplates() ([]api.TemplateResponse, error) {
	var resp []api.TemplateResponse
	if err := c.do(http.MethodGet, "/admin/templates", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}
