// Package events defines the domain events the memory pipeline emits.
// Events describe something that already happened; consumers must not
// use them to veto the operation.
package events

import (
	"time"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// EventRecorded is raised after an event passed the full ingestion
// pipeline and was persisted.
type EventRecorded struct {
	BaseEvent
	EventID  valueobjects.EventID `json:"event_id"`
	Actor    entities.Actor       `json:"actor"`
	Kind     entities.EventType   `json:"kind"`
	Salience float64              `json:"salience"`
	Emotion  valueobjects.Emotion `json:"emotion"`
	Linked   int                  `json:"linked"`
}

// NewEventRecorded creates an EventRecorded event
func NewEventRecorded(event *entities.Event, linked int, at time.Time) EventRecorded {
	return EventRecorded{
		BaseEvent: BaseEvent{
			AggregateID: event.ID().String(),
			EventType:   "memory.event_recorded",
			Timestamp:   at,
		},
		EventID:  event.ID(),
		Actor:    event.Actor(),
		Kind:     event.Type(),
		Salience: event.Salience().Score,
		Emotion:  event.Emotion().PrimaryEmotion,
		Linked:   linked,
	}
}

// ReflectionGenerated is raised after a reflection was generated and stored
type ReflectionGenerated struct {
	BaseEvent
	ReflectionID string                  `json:"reflection_id"`
	Kind         entities.ReflectionType `json:"kind"`
	Date         time.Time               `json:"date"`
	Placeholder  bool                    `json:"placeholder"`
}

// NewReflectionGenerated creates a ReflectionGenerated event
func NewReflectionGenerated(reflection *entities.Reflection, at time.Time) ReflectionGenerated {
	return ReflectionGenerated{
		BaseEvent: BaseEvent{
			AggregateID: reflection.ID,
			EventType:   "memory.reflection_generated",
			Timestamp:   at,
		},
		ReflectionID: reflection.ID,
		Kind:         reflection.Type,
		Date:         reflection.Date,
		Placeholder:  reflection.Placeholder,
	}
}

// EventsPruned is raised after retention cleanup removed old events
type EventsPruned struct {
	BaseEvent
	Removed int       `json:"removed"`
	Cutoff  time.Time `json:"cutoff"`
}

// NewEventsPruned creates an EventsPruned event
func NewEventsPruned(removed int, cutoff, at time.Time) EventsPruned {
	return EventsPruned{
		BaseEvent: BaseEvent{
			AggregateID: "retention",
			EventType:   "memory.events_pruned",
			Timestamp:   at,
		},
		Removed: removed,
		Cutoff:  cutoff,
	}
}

// StoreRestored is raised after a snapshot restore replaced the store
type StoreRestored struct {
	BaseEvent
	Events int `json:"events"`
}

// NewStoreRestored creates a StoreRestored event
func NewStoreRestored(eventCount int, at time.Time) StoreRestored {
	return StoreRestored{
		BaseEvent: BaseEvent{
			AggregateID: "store",
			EventType:   "memory.store_restored",
			Timestamp:   at,
		},
		Events: eventCount,
	}
}

// WeightsRecalibrated is raised after the salience weight profile changed
type WeightsRecalibrated struct {
	BaseEvent
}

// NewWeightsRecalibrated creates a WeightsRecalibrated event
func NewWeightsRecalibrated(at time.Time) WeightsRecalibrated {
	return WeightsRecalibrated{
		BaseEvent: BaseEvent{
			AggregateID: "scorer",
			EventType:   "memory.weights_recalibrated",
			Timestamp:   at,
		},
	}
}
