// Package api contains shared JSON request/response structs.
// This package is shared between the CLI and the controller.
package api

import "time"

// TriggerEventRequest is the request body for admitting a new event.
// Subject is ignored on the subject-scoped /trigger route, where it comes
// from the X-Subject-ID header instead.
type TriggerEventRequest struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	Subject string         `json:"subject,omitempty"`
}

// TriggerEventResponse is the response body after admitting an event.
type TriggerEventResponse struct {
	EventID string `json:"event_id"`
}

// BatchTriggerResult is the per-item outcome of a batch admission.
type BatchTriggerResult struct {
	Subject string `json:"subject"`
	Type    string `json:"type"`
	EventID string `json:"event_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BatchTriggerResponse summarizes a batch admission.
type BatchTriggerResponse struct {
	Queued  int                  `json:"queued"`
	Failed  int                  `json:"failed"`
	Results []BatchTriggerResult `json:"results"`
}

// ProcessResponse reports the outcome of one processing pass.
type ProcessResponse struct {
	Processed    int `json:"processed"`
	Failed       int `json:"failed"`
	DeadLettered int `json:"dead_lettered"`
}

// EventResponse represents an event in API responses.
type EventResponse struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Subject   string         `json:"subject"`
	Payload   map[string]any `json:"payload,omitempty"`
	State     string         `json:"state"`
	Detail    *string        `json:"detail,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TemplateResponse represents a template in catalog listings.
type TemplateResponse struct {
	ID                string   `json:"id"`
	Key               string   `json:"key"`
	Name              string   `json:"name"`
	Version           int      `json:"version"`
	RequiredVariables []string `json:"required_variables"`
}

// SchedulerStatusResponse is a snapshot of the scheduler state.
type SchedulerStatusResponse struct {
	Interval      string           `json:"interval"`
	Running       bool             `json:"running"`
	Paused        bool             `json:"paused"`
	LastTickStart *time.Time       `json:"last_tick_start,omitempty"`
	LastTickEnd   *time.Time       `json:"last_tick_end,omitempty"`
	ManualRuns    int64            `json:"manual_runs"`
	LastResult    *ProcessResponse `json:"last_result,omitempty"`
}

// DeadLetterResponse represents a dead-lettered queue entry.
type DeadLetterResponse struct {
	EntryID   string     `json:"entry_id"`
	EventID   string     `json:"event_id"`
	EventType string     `json:"event_type"`
	Subject   string     `json:"subject"`
	Priority  int        `json:"priority"`
	Attempts  int        `json:"attempts"`
	LastError *string    `json:"last_error,omitempty"`
	FailedAt  *time.Time `json:"failed_at,omitempty"`
}

// RedriveResponse is returned after re-queuing a dead-lettered entry.
type RedriveResponse struct {
	NewEntryID string `json:"new_entry_id"`
}

// PurgeRequest asks for all of a subject's events to be purged.
type PurgeRequest struct {
	Subject string `json:"subject"`
}

// PurgeResponse reports how many events were purged.
type PurgeResponse struct {
	Purged int64 `json:"purged"`
}

// SummaryResponse is the status reporter's aggregate view.
type SummaryResponse struct {
	QueueDepthByState map[string]int64 `json:"queue_depth_by_state"`
	OldestPendingAge  *string          `json:"oldest_pending_age,omitempty"`
	DeadLetterCount   int64            `json:"dead_letter_count"`
	PurgedSubjects    int64            `json:"purged_subjects"`
	LastTickStart     *time.Time       `json:"last_tick_start,omitempty"`
	LastTickEnd       *time.Time       `json:"last_tick_end,omitempty"`
	Degraded          []string         `json:"degraded,omitempty"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// Priority bands for queue entries.
const (
	PriorityLow      = 0
	PriorityNormal   = 50
	PriorityHigh     = 75
	PriorityCritical = 100

	PriorityMin = 0
	PriorityMax = 100
)
