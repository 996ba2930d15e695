// Package memorystore provides an in-process EventStore backed by maps.
// It is the default driver and the reference implementation the DynamoDB
// adapter mirrors.
package memorystore

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mnemo/application/ports"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
	"mnemo/infrastructure/persistence/schema"
	"mnemo/pkg/errors"
	"mnemo/pkg/utils"
)

// Store is an in-memory EventStore. All methods are safe for
// concurrent use.
type Store struct {
	mu          sync.RWMutex
	events      map[string]*schema.EventRecord      // keyed by event ID
	reflections map[string]*schema.ReflectionRecord // keyed by type#date
	logger      *zap.Logger
}

var _ ports.EventStore = (*Store)(nil)

// New creates an empty in-memory store
func New(logger *zap.Logger) *Store {
	return &Store{
		events:      make(map[string]*schema.EventRecord),
		reflections: make(map[string]*schema.ReflectionRecord),
		logger:      logger,
	}
}

// StoreEvent persists an event, overwriting any previous version
func (s *Store) StoreEvent(_ context.Context, event *entities.Event) error {
	record := schema.FromEvent(event)
	s.mu.Lock()
	s.events[record.ID] = record
	s.mu.Unlock()
	return nil
}

// GetEvent retrieves a single event by ID
func (s *Store) GetEvent(_ context.Context, id valueobjects.EventID) (*entities.Event, error) {
	s.mu.RLock()
	record, ok := s.events[id.String()]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("event")
	}
	return record.ToEvent()
}

// GetEvents retrieves events matching the filters, newest first
func (s *Store) GetEvents(_ context.Context, filters ports.EventFilters) ([]*entities.Event, error) {
	s.mu.RLock()
	records := make([]*schema.EventRecord, 0, len(s.events))
	for _, record := range s.events {
		records = append(records, record)
	}
	s.mu.RUnlock()

	events := make([]*entities.Event, 0, len(records))
	for _, record := range records {
		event, err := record.ToEvent()
		if err != nil {
			s.logger.Warn("skipping corrupt record", zap.String("event_id", record.ID), zap.Error(err))
			continue
		}
		if matches(event, filters) {
			events = append(events, event)
		}
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Timestamp().After(events[j].Timestamp())
	})
	if filters.Limit > 0 && len(events) > filters.Limit {
		events = events[:filters.Limit]
	}
	return events, nil
}

// SearchByContent finds events containing the query text, case-insensitive
func (s *Store) SearchByContent(ctx context.Context, query string, limit int) ([]*entities.Event, error) {
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}

	all, err := s.GetEvents(ctx, ports.EventFilters{})
	if err != nil {
		return nil, err
	}

	matchesQuery := make([]*entities.Event, 0)
	for _, event := range all {
		if strings.Contains(strings.ToLower(event.Content()), needle) {
			matchesQuery = append(matchesQuery, event)
			if limit > 0 && len(matchesQuery) >= limit {
				break
			}
		}
	}
	return matchesQuery, nil
}

// GetEventsForDate retrieves all events on the given UTC calendar day
func (s *Store) GetEventsForDate(ctx context.Context, date time.Time) ([]*entities.Event, error) {
	return s.GetEvents(ctx, ports.EventFilters{
		Since: utils.StartOfDay(date),
		Until: utils.EndOfDay(date),
	})
}

// GetRecentEvents retrieves up to limit events from the last N days.
// A limit of zero means no cap.
func (s *Store) GetRecentEvents(ctx context.Context, days int, limit int) ([]*entities.Event, error) {
	return s.GetEvents(ctx, ports.EventFilters{
		Since: time.Now().UTC().AddDate(0, 0, -days),
		Limit: limit,
	})
}

// StoreReflection persists a reflection keyed by type and date
func (s *Store) StoreReflection(_ context.Context, reflection *entities.Reflection) error {
	record := schema.FromReflection(reflection)
	s.mu.Lock()
	s.reflections[reflectionKey(record.Type, record.Date)] = record
	s.mu.Unlock()
	return nil
}

// GetReflection retrieves the reflection for a type and date
func (s *Store) GetReflection(_ context.Context, kind entities.ReflectionType, date time.Time) (*entities.Reflection, error) {
	key := reflectionKey(string(kind), date.UTC().Format(schema.DateKeyFormat))
	s.mu.RLock()
	record, ok := s.reflections[key]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NewNotFoundError("reflection")
	}
	return record.ToReflection()
}

// CleanupOlderThan removes events strictly older than the cutoff.
// Timestamps are compared as parsed times, not record strings, so the
// stored format cannot skew the boundary.
func (s *Store) CleanupOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, record := range s.events {
		ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			continue
		}
		if ts.Before(cutoff) {
			delete(s.events, id)
			removed++
		}
	}
	return removed, nil
}

// Backup writes a JSON snapshot of the full store to w
func (s *Store) Backup(_ context.Context, w io.Writer) error {
	s.mu.RLock()
	snap := schema.Snapshot{
		Version:     schema.CurrentSnapshotVersion,
		ExportedAt:  time.Now().UTC().Format(time.RFC3339),
		Events:      make([]*schema.EventRecord, 0, len(s.events)),
		Reflections: make([]*schema.ReflectionRecord, 0, len(s.reflections)),
	}
	for _, record := range s.events {
		snap.Events = append(snap.Events, record)
	}
	for _, record := range s.reflections {
		snap.Reflections = append(snap.Reflections, record)
	}
	s.mu.RUnlock()

	// Deterministic output ordering for diffable backups.
	sort.Slice(snap.Events, func(i, j int) bool { return snap.Events[i].Timestamp < snap.Events[j].Timestamp })
	sort.Slice(snap.Reflections, func(i, j int) bool { return snap.Reflections[i].Date < snap.Reflections[j].Date })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return errors.NewPersistenceError("backup", err)
	}
	return nil
}

// Restore replaces the store contents from a JSON snapshot
func (s *Store) Restore(_ context.Context, r io.Reader) error {
	var snap schema.Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return errors.NewPersistenceError("restore", err)
	}
	if err := schema.UpgradeSnapshot(&snap); err != nil {
		return errors.NewValidationError(err.Error())
	}

	events := make(map[string]*schema.EventRecord, len(snap.Events))
	for _, record := range snap.Events {
		events[record.ID] = record
	}
	reflections := make(map[string]*schema.ReflectionRecord, len(snap.Reflections))
	for _, record := range snap.Reflections {
		reflections[reflectionKey(record.Type, record.Date)] = record
	}

	s.mu.Lock()
	s.events = events
	s.reflections = reflections
	s.mu.Unlock()

	s.logger.Info("store restored from snapshot",
		zap.Int("events", len(events)),
		zap.Int("reflections", len(reflections)),
	)
	return nil
}

// Stats reports store-level counters
func (s *Store) Stats(_ context.Context) (ports.StoreStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := ports.StoreStats{
		EventCount:      len(s.events),
		ReflectionCount: len(s.reflections),
	}
	for _, record := range s.events {
		ts, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			continue
		}
		if stats.OldestEvent.IsZero() || ts.Before(stats.OldestEvent) {
			stats.OldestEvent = ts
		}
		if ts.After(stats.NewestEvent) {
			stats.NewestEvent = ts
		}
	}
	return stats, nil
}

func reflectionKey(kind, date string) string {
	return kind + "#" + date
}

func matches(event *entities.Event, f ports.EventFilters) bool {
	if f.Actor != "" && string(event.Actor()) != f.Actor {
		return false
	}
	if f.EventType != "" && string(event.Type()) != f.EventType {
		return false
	}
	if f.Emotion != "" && string(event.Emotion().PrimaryEmotion) != f.Emotion {
		return false
	}
	if f.MinSalience > 0 && event.Salience().Score < f.MinSalience {
		return false
	}
	if !f.Since.IsZero() && event.Timestamp().Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && event.Timestamp().After(f.Until) {
		return false
	}
	return true
}
