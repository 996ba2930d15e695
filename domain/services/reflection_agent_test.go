package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

var reflectionDay = time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

func newTestReflector(t *testing.T) *ReflectionAgent {
	t.Helper()
	return NewReflectionAgent(3, zap.NewNop())
}

func reflectionEvent(t *testing.T, content string, actor entities.Actor, hour int) *entities.Event {
	t.Helper()
	event, err := entities.NewEvent(content, actor, entities.EventTypeInteraction,
		reflectionDay.Add(time.Duration(hour)*time.Hour))
	require.NoError(t, err)
	return event
}

func emotionalEvent(t *testing.T, content string, actor entities.Actor, hour int, emotion valueobjects.Emotion, intensity, valence float64) *entities.Event {
	t.Helper()
	event := reflectionEvent(t, content, actor, hour)
	event.AttachEmotion(valueobjects.EmotionAnalysis{
		PrimaryEmotion:   emotion,
		DetectedEmotions: map[valueobjects.Emotion]float64{emotion: intensity},
		Valence:          valence,
		Arousal:          0.3,
		Fingerprint:      string(emotion) + ":strong",
	})
	return event
}

func TestGenerateDailyPlaceholderBelowThreshold(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(25 * time.Hour)

	events := []*entities.Event{
		reflectionEvent(t, "a single lonely note", entities.ActorUser, 9),
		reflectionEvent(t, "and one more brief note", entities.ActorUser, 10),
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	assert.True(t, reflection.Placeholder)
	assert.Equal(t, entities.ReflectionDaily, reflection.Type)
	assert.Equal(t, entities.ToneNeutral, reflection.EmotionalTone)
	assert.Equal(t, 2, reflection.EventCount)
	assert.NotEmpty(t, reflection.Summary)
}

func TestGenerateDailyPositiveTone(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := []*entities.Event{
		emotionalEvent(t, "celebrated finishing the big project with friends", entities.ActorUser, 18, valueobjects.EmotionJoy, 0.7, 0.6),
		emotionalEvent(t, "got wonderful feedback from the whole team today", entities.ActorUser, 14, valueobjects.EmotionJoy, 0.6, 0.5),
		emotionalEvent(t, "so thankful for everyone who helped along the way", entities.ActorUser, 20, valueobjects.EmotionGratitude, 0.5, 0.5),
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	require.False(t, reflection.Placeholder)
	assert.Equal(t, entities.ToneVeryPositive, reflection.EmotionalTone)
	assert.Contains(t, reflection.DominantEmotions, valueobjects.EmotionJoy)
	assert.Equal(t, 3, reflection.EventCount)
	assert.Equal(t, now, reflection.GeneratedAt)
}

func TestGenerateDailyNegativeTone(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := []*entities.Event{
		emotionalEvent(t, "the deal fell through after months of work", entities.ActorUser, 10, valueobjects.EmotionSadness, 0.7, -0.6),
		emotionalEvent(t, "spent the evening replaying what went wrong", entities.ActorUser, 21, valueobjects.EmotionSadness, 0.6, -0.5),
		emotionalEvent(t, "worried about what this means for the team", entities.ActorUser, 22, valueobjects.EmotionFear, 0.5, -0.4),
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	assert.Equal(t, entities.ToneVeryNegative, reflection.EmotionalTone)
	assert.Contains(t, reflection.DominantEmotions, valueobjects.EmotionSadness)
}

func TestGenerateDailyThemesAndLearning(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := []*entities.Event{
		reflectionEvent(t, "spent the morning on a study course to learn a new skill", entities.ActorUser, 9),
		reflectionEvent(t, "finally realized why the practice sessions were failing", entities.ActorUser, 11),
		reflectionEvent(t, "learned that spaced repetition beats cramming", entities.ActorUser, 15),
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	assert.Contains(t, reflection.KeyThemes, "learning")
	assert.NotEmpty(t, reflection.LearningMoments)
	assert.LessOrEqual(t, len(reflection.LearningMoments), 5)
}

func TestGenerateDailyKeyEventsCapped(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := make([]*entities.Event, 0, 10)
	for i := 0; i < 10; i++ {
		event := emotionalEvent(t,
			"an important milestone worth remembering in full detail with plenty of substance to it",
			entities.ActorUser, 8+i, valueobjects.EmotionJoy, 0.8, 0.5)
		event.AttachSalience(valueobjects.SalienceAnalysis{Score: 0.9, Level: valueobjects.SalienceCritical})
		events = append(events, event)
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	assert.NotEmpty(t, reflection.KeyEventIDs)
	assert.LessOrEqual(t, len(reflection.KeyEventIDs), 5)
}

func TestGenerateDailyMemorableQuotes(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := []*entities.Event{
		reflectionEvent(t, "I can't believe we actually pulled that off!", entities.ActorUser, 12),
		reflectionEvent(t, "What would happen if we doubled the batch size?", entities.ActorUser, 13),
		reflectionEvent(t, "routine sync about nothing in particular", entities.ActorAgent, 14),
	}

	reflection := agent.GenerateDaily(events, reflectionDay, now)

	require.NotEmpty(t, reflection.MemorableQuotes)
	assert.LessOrEqual(t, len(reflection.MemorableQuotes), 3)
	for _, quote := range reflection.MemorableQuotes {
		assert.NotEqual(t, "routine sync about nothing in particular", quote)
	}
}

func TestGenerateDailyDeterministic(t *testing.T) {
	agent := newTestReflector(t)
	now := reflectionDay.Add(26 * time.Hour)

	events := []*entities.Event{
		emotionalEvent(t, "long walk with an old friend through the park", entities.ActorUser, 10, valueobjects.EmotionJoy, 0.5, 0.4),
		reflectionEvent(t, "learned a new recipe and it worked", entities.ActorUser, 13),
		reflectionEvent(t, "quiet evening reading by the window", entities.ActorUser, 21),
	}

	first := agent.GenerateDaily(events, reflectionDay, now)
	second := agent.GenerateDaily(events, reflectionDay, now)

	assert.Equal(t, first.Summary, second.Summary)
	assert.Equal(t, first.KeyThemes, second.KeyThemes)
	assert.Equal(t, first.EmotionalTone, second.EmotionalTone)
	assert.Equal(t, first.KeyEventIDs, second.KeyEventIDs)
}

func TestGenerateWeeklyAggregates(t *testing.T) {
	agent := newTestReflector(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	now := weekStart.AddDate(0, 0, 8)

	dailies := make([]*entities.Reflection, 0, 7)
	for day := 0; day < 7; day++ {
		date := weekStart.AddDate(0, 0, day)
		if day >= 5 {
			dailies = append(dailies, &entities.Reflection{
				Type: entities.ReflectionDaily, Date: date,
				EmotionalTone: entities.ToneNeutral, Placeholder: true,
			})
			continue
		}
		themes := []string{"work"}
		if day%2 == 0 {
			themes = append(themes, "learning")
		}
		dailies = append(dailies, &entities.Reflection{
			Type:          entities.ReflectionDaily,
			Date:          date,
			KeyThemes:     themes,
			EmotionalTone: entities.TonePositive,
			DominantEmotions: []valueobjects.Emotion{
				valueobjects.EmotionJoy,
			},
			EventCount: 4 + day,
		})
	}

	weekly := agent.GenerateWeekly(dailies, weekStart, now)

	require.False(t, weekly.Placeholder)
	assert.Equal(t, entities.ReflectionWeekly, weekly.Type)
	// Themes on two or more days recur; both qualify here.
	assert.Contains(t, weekly.KeyThemes, "work")
	assert.Contains(t, weekly.KeyThemes, "learning")
	assert.Equal(t, entities.TonePositive, weekly.EmotionalTone)
	assert.Contains(t, weekly.DominantEmotions, valueobjects.EmotionJoy)
	assert.NotEmpty(t, weekly.Summary)
}

func TestGenerateWeeklyAllPlaceholders(t *testing.T) {
	agent := newTestReflector(t)
	weekStart := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	dailies := make([]*entities.Reflection, 0, 7)
	for day := 0; day < 7; day++ {
		dailies = append(dailies, &entities.Reflection{
			Type: entities.ReflectionDaily, Date: weekStart.AddDate(0, 0, day),
			EmotionalTone: entities.ToneNeutral, Placeholder: true, EventCount: 1,
		})
	}

	weekly := agent.GenerateWeekly(dailies, weekStart, weekStart.AddDate(0, 0, 8))

	assert.True(t, weekly.Placeholder)
	assert.Equal(t, 7, weekly.EventCount)
}
