package memorystore

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemo/application/ports"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
	"mnemo/pkg/errors"
)

var storeBase = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func storedEvent(t *testing.T, store *Store, content string, actor entities.Actor, at time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(content, actor, entities.EventTypeInteraction, at)
	require.NoError(t, err)
	require.NoError(t, store.StoreEvent(context.Background(), event))
	return event
}

func TestStoreAndGetEvent(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	original := storedEvent(t, store, "note to self about the garden", entities.ActorUser, storeBase)

	loaded, err := store.GetEvent(ctx, original.ID())
	require.NoError(t, err)
	assert.Equal(t, original.ID(), loaded.ID())
	assert.Equal(t, original.Content(), loaded.Content())
	assert.Equal(t, original.Actor(), loaded.Actor())
	assert.True(t, original.Timestamp().Equal(loaded.Timestamp()))
}

func TestGetEventNotFound(t *testing.T) {
	store := New(zap.NewNop())

	_, err := store.GetEvent(context.Background(), valueobjects.NewEventID())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
}

func TestGetEventsFiltersAndOrder(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	storedEvent(t, store, "first user entry", entities.ActorUser, storeBase)
	storedEvent(t, store, "agent response entry", entities.ActorAgent, storeBase.Add(time.Hour))
	newest := storedEvent(t, store, "second user entry", entities.ActorUser, storeBase.Add(2*time.Hour))

	all, err := store.GetEvents(ctx, ports.EventFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID(), all[0].ID())

	users, err := store.GetEvents(ctx, ports.EventFilters{Actor: string(entities.ActorUser)})
	require.NoError(t, err)
	assert.Len(t, users, 2)

	limited, err := store.GetEvents(ctx, ports.EventFilters{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, newest.ID(), limited[0].ID())

	windowed, err := store.GetEvents(ctx, ports.EventFilters{
		Since: storeBase.Add(30 * time.Minute),
		Until: storeBase.Add(90 * time.Minute),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, entities.ActorAgent, windowed[0].Actor())
}

func TestGetEventsSalienceAndEmotionFilters(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	plain, err := entities.NewEvent("plain event", entities.ActorUser, entities.EventTypeInteraction, storeBase)
	require.NoError(t, err)
	require.NoError(t, store.StoreEvent(ctx, plain))

	scored, err := entities.NewEvent("important event", entities.ActorUser, entities.EventTypeInteraction, storeBase.Add(time.Minute))
	require.NoError(t, err)
	scored.AttachEmotion(valueobjects.EmotionAnalysis{
		PrimaryEmotion:   valueobjects.EmotionJoy,
		DetectedEmotions: map[valueobjects.Emotion]float64{valueobjects.EmotionJoy: 0.6},
		Valence:          0.5,
		Fingerprint:      "joy:strong",
	})
	scored.AttachSalience(valueobjects.SalienceAnalysis{
		Score: 0.8,
		Level: valueobjects.LevelForScore(0.8),
	})
	require.NoError(t, store.StoreEvent(ctx, scored))

	salient, err := store.GetEvents(ctx, ports.EventFilters{MinSalience: 0.5})
	require.NoError(t, err)
	require.Len(t, salient, 1)
	assert.Equal(t, scored.ID(), salient[0].ID())

	joyful, err := store.GetEvents(ctx, ports.EventFilters{Emotion: string(valueobjects.EmotionJoy)})
	require.NoError(t, err)
	require.Len(t, joyful, 1)
	assert.Equal(t, scored.ID(), joyful[0].ID())
}

func TestSearchByContent(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	storedEvent(t, store, "planted tomatoes in the garden", entities.ActorUser, storeBase)
	storedEvent(t, store, "filed the quarterly report", entities.ActorUser, storeBase.Add(time.Hour))

	hits, err := store.SearchByContent(ctx, "GARDEN", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Contains(t, hits[0].Content(), "garden")

	empty, err := store.SearchByContent(ctx, "   ", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestGetEventsForDate(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	inside := storedEvent(t, store, "morning entry", entities.ActorUser, storeBase)
	storedEvent(t, store, "next day entry", entities.ActorUser, storeBase.AddDate(0, 0, 1))

	day, err := store.GetEventsForDate(ctx, storeBase)
	require.NoError(t, err)
	require.Len(t, day, 1)
	assert.Equal(t, inside.ID(), day[0].ID())
}

func TestReflectionRoundTrip(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()
	date := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	reflection := &entities.Reflection{
		ID:            "r-1",
		Type:          entities.ReflectionDaily,
		Date:          date,
		Summary:       "a full and busy day",
		KeyThemes:     []string{"work", "learning"},
		EmotionalTone: entities.TonePositive,
		EventCount:    6,
		GeneratedAt:   storeBase,
	}
	require.NoError(t, store.StoreReflection(ctx, reflection))

	loaded, err := store.GetReflection(ctx, entities.ReflectionDaily, date)
	require.NoError(t, err)
	assert.Equal(t, reflection.Summary, loaded.Summary)
	assert.Equal(t, reflection.KeyThemes, loaded.KeyThemes)
	assert.Equal(t, reflection.EmotionalTone, loaded.EmotionalTone)
	assert.Equal(t, reflection.EventCount, loaded.EventCount)

	_, err = store.GetReflection(ctx, entities.ReflectionWeekly, date)
	assert.True(t, errors.IsNotFound(err))
}

func TestCleanupOlderThan(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	old := storedEvent(t, store, "stale memory", entities.ActorUser, storeBase.AddDate(0, 0, -40))
	fresh := storedEvent(t, store, "fresh memory", entities.ActorUser, storeBase)

	removed, err := store.CleanupOlderThan(ctx, storeBase.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetEvent(ctx, old.ID())
	assert.True(t, errors.IsNotFound(err))

	kept, err := store.GetEvent(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, fresh.ID(), kept.ID())
}

func TestCleanupSubSecondBoundary(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	// A whole-second timestamp renders without fractional digits; it
	// must still count as older than a cutoff a quarter second later.
	wholeSecond := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	old := storedEvent(t, store, "whole second memory", entities.ActorUser, wholeSecond)
	fresh := storedEvent(t, store, "later that second", entities.ActorUser, wholeSecond.Add(500*time.Millisecond))

	removed, err := store.CleanupOlderThan(ctx, wholeSecond.Add(250*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = store.GetEvent(ctx, old.ID())
	assert.True(t, errors.IsNotFound(err))

	kept, err := store.GetEvent(ctx, fresh.ID())
	require.NoError(t, err)
	assert.Equal(t, fresh.ID(), kept.ID())
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	source := New(zap.NewNop())
	ctx := context.Background()

	event := storedEvent(t, source, "memory worth keeping", entities.ActorUser, storeBase)
	require.NoError(t, source.StoreReflection(ctx, &entities.Reflection{
		ID:            "r-2",
		Type:          entities.ReflectionDaily,
		Date:          time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC),
		Summary:       "a short day",
		EmotionalTone: entities.ToneNeutral,
		EventCount:    1,
		GeneratedAt:   storeBase,
	}))

	var buf bytes.Buffer
	require.NoError(t, source.Backup(ctx, &buf))
	assert.Contains(t, buf.String(), "memory worth keeping")

	target := New(zap.NewNop())
	require.NoError(t, target.Restore(ctx, bytes.NewReader(buf.Bytes())))

	loaded, err := target.GetEvent(ctx, event.ID())
	require.NoError(t, err)
	assert.Equal(t, event.Content(), loaded.Content())

	stats, err := target.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EventCount)
	assert.Equal(t, 1, stats.ReflectionCount)
}

func TestRestoreRejectsBadSnapshot(t *testing.T) {
	store := New(zap.NewNop())

	err := store.Restore(context.Background(), strings.NewReader(`{"version": 99}`))
	require.Error(t, err)

	err = store.Restore(context.Background(), strings.NewReader("not json"))
	require.Error(t, err)
}

func TestRestoreUpgradesLegacySnapshot(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	legacy := `{
		"version": 1,
		"exported_at": "2026-01-01T00:00:00Z",
		"events": [{
			"id": "0d1f6f44-322e-4f9c-9f66-0a2b1f3a7e01",
			"timestamp": "2026-01-01T10:00:00Z",
			"actor": "user",
			"event_type": "interaction",
			"content": "an entry from the first backup format",
			"emotion_analysis": {"primary_emotion": "", "valence": 0, "arousal": 0, "fingerprint": ""},
			"salience_analysis": {"score": 0.65}
		}]
	}`
	require.NoError(t, store.Restore(ctx, strings.NewReader(legacy)))

	id, err := valueobjects.NewEventIDFromString("0d1f6f44-322e-4f9c-9f66-0a2b1f3a7e01")
	require.NoError(t, err)
	event, err := store.GetEvent(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, valueobjects.SalienceHigh, event.Salience().Level)
}

func TestStatsTracksBounds(t *testing.T) {
	store := New(zap.NewNop())
	ctx := context.Background()

	oldest := storedEvent(t, store, "the earliest entry", entities.ActorUser, storeBase.Add(-48*time.Hour))
	newest := storedEvent(t, store, "the latest entry", entities.ActorUser, storeBase)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EventCount)
	assert.True(t, stats.OldestEvent.Equal(oldest.Timestamp()))
	assert.True(t, stats.NewestEvent.Equal(newest.Timestamp()))
}
