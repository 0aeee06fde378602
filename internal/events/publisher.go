package events

import (
	"time"

	"github.com/superbearblog/media-service/internal/types"
)

// Publisher interface for publishing cleanup lifecycle events
type Publisher interface {
	PublishCleanupStarted(op types.CleanupOperation, mediaCount int)
	PublishCleanupCompleted(result types.CleanupResult)
	PublishMediaDeleted(operationID, mediaID string, size int64)
}

// Hub interface for the WebSocket hub
type Hub interface {
	Broadcast(event *types.Event)
}

// EventPublisher broadcasts cleanup events to all connected admin clients.
type EventPublisher struct {
	hub Hub
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub Hub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

func (p *EventPublisher) PublishCleanupStarted(op types.CleanupOperation, mediaCount int) {
	eventData := &types.CleanupStartedEvent{
		OperationID: op.ID,
		Type:        op.Type,
		DryRun:      op.DryRun,
		MediaCount:  mediaCount,
		StartedAt:   op.StartedAt.UTC().Format(time.RFC3339),
	}

	p.hub.Broadcast(types.NewEvent(types.EventCleanupStarted, eventData))
}

func (p *EventPublisher) PublishCleanupCompleted(result types.CleanupResult) {
	eventData := &types.CleanupCompletedEvent{
		OperationID: result.OperationID,
		Processed:   result.Processed,
		Deleted:     result.Deleted,
		Failed:      result.Failed,
		FreedSpace:  result.FreedSpace,
		DryRun:      result.DryRun,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}

	p.hub.Broadcast(types.NewEvent(types.EventCleanupCompleted, eventData))
}

func (p *EventPublisher) PublishMediaDeleted(operationID, mediaID string, size int64) {
	eventData := &types.MediaDeletedEvent{
		OperationID: operationID,
		MediaID:     mediaID,
		Size:        size,
		DeletedAt:   time.Now().UTC().Format(time.RFC3339),
	}

	p.hub.Broadcast(types.NewEvent(types.EventMediaDeleted, eventData))
}

// NoopPublisher drops all events. Used where no hub is wired, e.g. the
// scheduled worker.
type NoopPublisher struct{}

func (NoopPublisher) PublishCleanupStarted(types.CleanupOperation, int) {}
func (NoopPublisher) PublishCleanupCompleted(types.CleanupResult)       {}
func (NoopPublisher) PublishMediaDeleted(string, string, int64)         {}
