// Package shared contains common domain types, errors, and events used across
// all domain packages.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

const (
	// Progress events
	EventMissionCompleted EventType = "progress.mission_completed"

	// Profiling events
	EventTiltUpdated EventType = "profiling.tilt_updated"

	// Catalog events
	EventCatalogReloaded EventType = "catalog.reloaded"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for logging and serialization.
	Payload() map[string]any
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Progress Events
// ═══════════════════════════════════════════════════════════════════════════

// MissionCompletedEvent is emitted after a completion has been stored.
type MissionCompletedEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	MissionID      string `json:"mission_id"`
	Concept        string `json:"concept"`
	ChosenOption   string `json:"chosen_option"`
	CompletedCount int    `json:"completed_count"`
}

// Payload implements Event interface.
func (e MissionCompletedEvent) Payload() map[string]any {
	return map[string]any{
		"student_id":      e.StudentID,
		"mission_id":      e.MissionID,
		"concept":         e.Concept,
		"chosen_option":   e.ChosenOption,
		"completed_count": e.CompletedCount,
	}
}

// NewMissionCompletedEvent creates a new MissionCompletedEvent.
func NewMissionCompletedEvent(studentID, missionID, concept, option string, completed int) MissionCompletedEvent {
	return MissionCompletedEvent{
		BaseEvent:      NewBaseEvent(EventMissionCompleted, studentID),
		StudentID:      studentID,
		MissionID:      missionID,
		Concept:        concept,
		ChosenOption:   option,
		CompletedCount: completed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Profiling Events
// ═══════════════════════════════════════════════════════════════════════════

// TiltUpdatedEvent is emitted when a student's tilt label is recomputed.
type TiltUpdatedEvent struct {
	BaseEvent
	StudentID      string `json:"student_id"`
	PreviousTilt   string `json:"previous_tilt,omitempty"`
	NewTilt        string `json:"new_tilt"`
	CompletedCount int    `json:"completed_count"`
}

// Payload implements Event interface.
func (e TiltUpdatedEvent) Payload() map[string]any {
	return map[string]any{
		"student_id":      e.StudentID,
		"previous_tilt":   e.PreviousTilt,
		"new_tilt":        e.NewTilt,
		"completed_count": e.CompletedCount,
	}
}

// Changed reports whether the label actually moved.
func (e TiltUpdatedEvent) Changed() bool {
	return e.PreviousTilt != e.NewTilt
}

// NewTiltUpdatedEvent creates a new TiltUpdatedEvent.
func NewTiltUpdatedEvent(studentID, previous, current string, completed int) TiltUpdatedEvent {
	return TiltUpdatedEvent{
		BaseEvent:      NewBaseEvent(EventTiltUpdated, studentID),
		StudentID:      studentID,
		PreviousTilt:   previous,
		NewTilt:        current,
		CompletedCount: completed,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Catalog Events
// ═══════════════════════════════════════════════════════════════════════════

// CatalogReloadedEvent is emitted after a successful catalog reload.
type CatalogReloadedEvent struct {
	BaseEvent
	Missions int `json:"missions"`
	Events   int `json:"events"`
}

// Payload implements Event interface.
func (e CatalogReloadedEvent) Payload() map[string]any {
	return map[string]any{
		"missions": e.Missions,
		"events":   e.Events,
	}
}

// NewCatalogReloadedEvent creates a new CatalogReloadedEvent.
func NewCatalogReloadedEvent(missions, events int) CatalogReloadedEvent {
	return CatalogReloadedEvent{
		BaseEvent: NewBaseEvent(EventCatalogReloaded, "catalog"),
		Missions:  missions,
		Events:    events,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Bus contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler handles one event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers. Synchronous buses return the
	// joined handler errors.
	Publish(ctx context.Context, event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
