package store

import "aims/pkg/api"

// Event types recognized by the admission path. Priorities derive from the
// triggering situation: operator-initiated and plan-change events jump the
// queue, scheduled content stays in the normal band.
const (
	EventAccountCreated       = "account-created"
	EventChartGenerated       = "chart-generated"
	EventChartUpdated         = "chart-updated"
	EventTestCompleted        = "test-completed"
	EventSubscriptionUpgraded = "subscription-upgraded"
	EventDailyReading         = "daily-reading"
	EventManualTrigger        = "manual-trigger"
)

var eventPriorities = map[string]int{
	EventAccountCreated:       api.PriorityNormal,
	EventChartGenerated:       api.PriorityNormal,
	EventChartUpdated:         api.PriorityNormal,
	EventTestCompleted:        api.PriorityNormal,
	EventSubscriptionUpgraded: api.PriorityHigh,
	EventDailyReading:         api.PriorityNormal,
	EventManualTrigger:        api.PriorityHigh,
}

// PriorityForEventType returns the queue priority for a known event type.
// The second return is false for unknown types.
func PriorityForEventType(eventType string) (int, bool) {
	p, ok := eventPriorities[eventType]
	return p, ok
}

// RegisterEventType adds (or overrides) an event type and its priority.
// Intended for process start-up wiring, not concurrent use.
func RegisterEventType(eventType string, priority int) {
	eventPriorities[eventType] = priority
}
