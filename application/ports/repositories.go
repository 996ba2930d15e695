package ports

import (
	"context"
	"io"
	"time"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

// EventStore defines the interface for event and reflection persistence.
// This is a port in hexagonal architecture - the domain doesn't know about
// the implementation.
type EventStore interface {
	// StoreEvent persists an event (create or update)
	StoreEvent(ctx context.Context, event *entities.Event) error

	// GetEvent retrieves a single event by ID
	GetEvent(ctx context.Context, id valueobjects.EventID) (*entities.Event, error)

	// GetEvents retrieves events matching the given filters,
	// newest first when no explicit ordering applies
	GetEvents(ctx context.Context, filters EventFilters) ([]*entities.Event, error)

	// SearchByContent finds events whose content matches the query text
	SearchByContent(ctx context.Context, query string, limit int) ([]*entities.Event, error)

	// GetEventsForDate retrieves all events recorded on the given calendar day
	GetEventsForDate(ctx context.Context, date time.Time) ([]*entities.Event, error)

	// GetRecentEvents retrieves up to limit events from the last N days
	GetRecentEvents(ctx context.Context, days int, limit int) ([]*entities.Event, error)

	// StoreReflection persists a reflection, keyed by type and date
	StoreReflection(ctx context.Context, reflection *entities.Reflection) error

	// GetReflection retrieves a reflection for a type and date, if present
	GetReflection(ctx context.Context, kind entities.ReflectionType, date time.Time) (*entities.Reflection, error)

	// CleanupOlderThan removes events older than the cutoff and returns
	// the number removed
	CleanupOlderThan(ctx context.Context, cutoff time.Time) (int, error)

	// Backup writes a full snapshot of the store to w
	Backup(ctx context.Context, w io.Writer) error

	// Restore replaces the store contents from a snapshot read from r
	Restore(ctx context.Context, r io.Reader) error

	// Stats reports store-level counters
	Stats(ctx context.Context) (StoreStats, error)
}

// EventFilters defines query parameters for GetEvents.
// Zero values mean "no constraint".
type EventFilters struct {
	Actor       string
	EventType   string
	Emotion     string
	MinSalience float64
	Since       time.Time
	Until       time.Time
	Limit       int
}

// StoreStats reports store-level counters
type StoreStats struct {
	EventCount      int       `json:"event_count"`
	ReflectionCount int       `json:"reflection_count"`
	OldestEvent     time.Time `json:"oldest_event"`
	NewestEvent     time.Time `json:"newest_event"`
}

// Cache defines the interface for caching analysis results
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set stores a value in cache with TTL in seconds
	Set(ctx context.Context, key string, value interface{}, ttl int) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// Clear removes all values from cache
	Clear(ctx context.Context) error
}
