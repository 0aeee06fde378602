package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventCleanupStarted   EventType = "cleanup.started"
	EventCleanupCompleted EventType = "cleanup.completed"
	EventMediaDeleted     EventType = "media.deleted"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// CleanupStartedEvent is broadcast when a cleanup run begins.
type CleanupStartedEvent struct {
	OperationID string        `json:"operation_id"`
	Type        OperationType `json:"operation_type"`
	DryRun      bool          `json:"dry_run"`
	MediaCount  int           `json:"media_count"`
	StartedAt   string        `json:"started_at"`
}

// CleanupCompletedEvent is broadcast when a cleanup run finishes.
type CleanupCompletedEvent struct {
	OperationID string `json:"operation_id"`
	Processed   int    `json:"processed"`
	Deleted     int    `json:"deleted"`
	Failed      int    `json:"failed"`
	FreedSpace  int64  `json:"freed_space"`
	DryRun      bool   `json:"dry_run"`
	CompletedAt string `json:"completed_at"`
}

// MediaDeletedEvent is broadcast for each file removed by a cleanup run.
type MediaDeletedEvent struct {
	OperationID string `json:"operation_id"`
	MediaID     string `json:"media_id"`
	Size        int64  `json:"size"`
	DeletedAt   string `json:"deleted_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
