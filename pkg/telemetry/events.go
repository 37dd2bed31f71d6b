package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openfroyo/tfsync/pkg/engine"
)

// Event represents something that happened during a run.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// RunID is the associated run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Resource is the associated resource name, if applicable.
	Resource string `json:"resource,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants.
const (
	EventTypeRunStarted       = "run.started"
	EventTypeRunCompleted     = "run.completed"
	EventTypeRunFailed        = "run.failed"
	EventTypeResourceFailed   = "resource.failed"
	EventTypeObjectReconciled = "object.reconciled"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber handles events. A returned error is reported to the
// publisher.
type EventSubscriber func(ctx context.Context, event Event) error

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher delivers events to subscribers synchronously, in
// subscription order.
type EventPublisher struct {
	config      EventsConfig
	subscribers []subscriberEntry
	mu          sync.RWMutex
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) *EventPublisher {
	return &EventPublisher{config: cfg}
}

// Publish delivers event to every subscriber whose filter accepts it and
// returns the first subscriber error.
func (ep *EventPublisher) Publish(ctx context.Context, event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		if err := entry.subscriber(ctx, event); err != nil {
			return fmt.Errorf("event %s: %w", event.Type, err)
		}
	}
	return nil
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// PublishRunStarted publishes a run started event.
func (ep *EventPublisher) PublishRunStarted(ctx context.Context, runID, command string) error {
	return ep.Publish(ctx, Event{
		Type:    EventTypeRunStarted,
		RunID:   runID,
		Message: fmt.Sprintf("Run %s started: %s", runID, command),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"command": command,
		},
	})
}

// PublishRunCompleted publishes a run completed or failed event.
func (ep *EventPublisher) PublishRunCompleted(ctx context.Context, runID string, status engine.RunStatus, err error) error {
	event := Event{
		Type:    EventTypeRunCompleted,
		RunID:   runID,
		Message: fmt.Sprintf("Run %s completed with status: %s", runID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status": string(status),
		},
	}
	if err != nil {
		event.Type = EventTypeRunFailed
		event.Level = EventLevelError
		event.Message = fmt.Sprintf("Run %s failed: %v", runID, err)
		event.Data["reason"] = err.Error()
	}
	return ep.Publish(ctx, event)
}

// PublishResourceFailed publishes a resource failure.
func (ep *EventPublisher) PublishResourceFailed(ctx context.Context, runID, resource string, err error) error {
	return ep.Publish(ctx, Event{
		Type:     EventTypeResourceFailed,
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("Resource %s failed: %v", resource, err),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"reason": err.Error(),
		},
	})
}

// PublishObject publishes one object written to a storage document.
func (ep *EventPublisher) PublishObject(ctx context.Context, runID, resource, source, address string, action engine.Action) error {
	return ep.Publish(ctx, Event{
		Type:     EventTypeObjectReconciled,
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("%s %s %s", action, source, address),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"source":  source,
			"address": address,
			"action":  string(action),
		},
	})
}

// Recorder returns an engine.Recorder that publishes every object written
// during run runID.
func (ep *EventPublisher) Recorder(runID string) engine.Recorder {
	return engine.RecorderFunc(func(ctx context.Context, resource, source, address string, action engine.Action) error {
		return ep.PublishObject(ctx, runID, resource, source, address, action)
	})
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByResource creates a filter that only allows events for a specific resource.
func FilterByResource(resource string) EventFilter {
	return func(event Event) bool {
		return event.Resource == resource
	}
}
