// Package events provides in-process publish/subscribe for run lifecycle
// notifications.
package events

import "time"

// EventType represents different event types
type EventType string

const (
	GradingStarted   EventType = "GRADING_STARTED"
	ItemGraded       EventType = "ITEM_GRADED"
	GradingCompleted EventType = "GRADING_COMPLETED"
	GradingFailed    EventType = "GRADING_FAILED"
	ErrorOccurred    EventType = "ERROR_OCCURRED"
)

// AllTypes lists every event type a subscriber can ask for
func AllTypes() []EventType {
	return []EventType{GradingStarted, ItemGraded, GradingCompleted, GradingFailed, ErrorOccurred}
}

// Event represents a system event
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Module    string    `json:"module"`
	Data      EventData `json:"data"`
}
