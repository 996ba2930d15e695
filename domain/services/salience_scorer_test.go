package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemo/domain/config"
	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

func newTestScorer(t *testing.T) *SalienceScorer {
	t.Helper()
	scorer, err := NewSalienceScorer(config.DefaultMemoryConfig(), zap.NewNop())
	require.NoError(t, err)
	return scorer
}

func mustEvent(t *testing.T, content string, actor entities.Actor, ts time.Time) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(content, actor, entities.EventTypeInteraction, ts)
	require.NoError(t, err)
	return event
}

func TestScoreWithinBounds(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	event := mustEvent(t, "urgent emergency, remember this critical deadline immediately!!!", entities.ActorUser, now)
	analysis := scorer.Score(event, nil, nil, now)

	assert.GreaterOrEqual(t, analysis.Score, 0.0)
	assert.LessOrEqual(t, analysis.Score, 1.0)
	for name, component := range analysis.ComponentScores {
		assert.GreaterOrEqual(t, component, 0.0, "component %s", name)
		assert.LessOrEqual(t, component, 1.0, "component %s", name)
	}
}

func TestScoreComponentsPresent(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Now().UTC()

	event := mustEvent(t, "we talked about the project deadline", entities.ActorUser, now)
	analysis := scorer.Score(event, nil, nil, now)

	for _, name := range []string{"recency", "frequency", "emotional", "engagement", "contextual"} {
		_, ok := analysis.ComponentScores[name]
		assert.True(t, ok, "missing component %s", name)
	}
	assert.Equal(t, valueobjects.LevelForScore(analysis.Score), analysis.Level)
}

func TestRecencyFullWithinADay(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	fresh := scorer.Score(mustEvent(t, "a quick chat about lunch", entities.ActorUser, now.Add(-2*time.Hour)), nil, nil, now)
	assert.Equal(t, 1.0, fresh.ComponentScores["recency"])

	old := scorer.Score(mustEvent(t, "a quick chat about lunch", entities.ActorUser, now.Add(-30*24*time.Hour)), nil, nil, now)
	assert.Less(t, old.ComponentScores["recency"], 0.01)
}

func TestRecencyDecaysMonotonically(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	prev := 1.0
	for _, age := range []time.Duration{26 * time.Hour, 72 * time.Hour, 7 * 24 * time.Hour, 30 * 24 * time.Hour} {
		analysis := scorer.Score(mustEvent(t, "a quick chat about lunch", entities.ActorUser, now.Add(-age)), nil, nil, now)
		assert.LessOrEqual(t, analysis.ComponentScores["recency"], prev, "age %s", age)
		prev = analysis.ComponentScores["recency"]
	}
}

func TestFrequencyRewardsRarity(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	history := make([]*entities.Event, 0, 5)
	for i := 0; i < 5; i++ {
		history = append(history,
			mustEvent(t, "discussing the weather forecast again today", entities.ActorUser, now.Add(-time.Duration(i+1)*time.Hour)))
	}

	repeated := scorer.Score(mustEvent(t, "discussing the weather forecast", entities.ActorUser, now), history, nil, now)
	novel := scorer.Score(mustEvent(t, "signed the apartment lease downtown", entities.ActorUser, now), history, nil, now)

	assert.Greater(t, novel.ComponentScores["frequency"], repeated.ComponentScores["frequency"])
}

func TestFrequencyNeutralWithoutTerms(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Now().UTC()

	// All tokens are stopwords or too short to count as keywords.
	event := mustEvent(t, "so it is and he was", entities.ActorUser, now)
	analysis := scorer.Score(event, nil, nil, now)

	assert.Equal(t, 0.5, analysis.ComponentScores["frequency"])
}

func TestEngagementFavorsUserEmphasis(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Now().UTC()

	flat := scorer.Score(mustEvent(t, "ok", entities.ActorSystem, now), nil, nil, now)
	engaged := scorer.Score(mustEvent(t,
		"This is really important! I must remember the deadline. Can you help me plan?",
		entities.ActorUser, now), nil, nil, now)

	assert.Greater(t, engaged.ComponentScores["engagement"], flat.ComponentScores["engagement"])
}

func TestContextualCategoriesAndPreferences(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Now().UTC()

	plain := scorer.Score(mustEvent(t, "the sky looked grey over the harbor", entities.ActorUser, now), nil, nil, now)
	health := scorer.Score(mustEvent(t, "the doctor changed my medication", entities.ActorUser, now), nil, nil, now)
	assert.Greater(t, health.ComponentScores["contextual"], plain.ComponentScores["contextual"])

	withPrefs := scorer.Score(
		mustEvent(t, "started a new chess opening study", entities.ActorUser, now),
		nil,
		&ScoreContext{Hour: 14, Preferences: []string{"chess"}},
		now)
	without := scorer.Score(
		mustEvent(t, "started a new chess opening study", entities.ActorUser, now),
		nil, nil, now)
	assert.Greater(t, withPrefs.ComponentScores["contextual"], without.ComponentScores["contextual"])
}

func TestUpdateWeightsValidThenInvalid(t *testing.T) {
	scorer := newTestScorer(t)

	updated := config.SalienceWeights{
		Recency: 0.4, Frequency: 0.1, Emotional: 0.2, Engagement: 0.2, Contextual: 0.1,
	}
	require.NoError(t, scorer.UpdateWeights(updated))
	assert.Equal(t, updated, scorer.Weights())

	bad := config.SalienceWeights{
		Recency: 0.9, Frequency: 0.9, Emotional: 0.9, Engagement: 0.9, Contextual: 0.9,
	}
	err := scorer.UpdateWeights(bad)
	require.Error(t, err)
	// Rejected update leaves the previous weights intact.
	assert.Equal(t, updated, scorer.Weights())
}

func TestScoreDeterministic(t *testing.T) {
	scorer := newTestScorer(t)
	now := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	event := mustEvent(t, "we finally fixed the flaky deployment pipeline!", entities.ActorUser, now.Add(-3*time.Hour))
	history := []*entities.Event{
		mustEvent(t, "the deployment pipeline is flaky again", entities.ActorUser, now.Add(-20*time.Hour)),
	}

	first := scorer.Score(event, history, nil, now)
	for i := 0; i < 5; i++ {
		again := scorer.Score(event, history, nil, now)
		assert.Equal(t, first.Score, again.Score)
		assert.Equal(t, first.ComponentScores, again.ComponentScores)
	}
}
