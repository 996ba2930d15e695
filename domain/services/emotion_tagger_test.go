package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
)

func newTestTagger(t *testing.T) *EmotionTagger {
	t.Helper()
	return NewEmotionTagger(zap.NewNop())
}

func TestAnalyzeEmptyInput(t *testing.T) {
	tagger := newTestTagger(t)

	for _, input := range []string{"", "   ", "\t\n"} {
		analysis := tagger.Analyze(input, nil)
		assert.True(t, analysis.IsNeutral())
		assert.Equal(t, "neutral", analysis.Fingerprint)
		assert.Zero(t, analysis.Valence)
		assert.Zero(t, analysis.Arousal)
	}
}

func TestAnalyzeDetectsJoy(t *testing.T) {
	tagger := newTestTagger(t)

	analysis := tagger.Analyze("I am so happy and excited today!", nil)

	require.False(t, analysis.IsNeutral())
	assert.Equal(t, valueobjects.EmotionJoy, analysis.PrimaryEmotion)
	assert.Greater(t, analysis.Valence, 0.0)
	assert.Contains(t, analysis.Fingerprint, "joy:")
}

func TestAnalyzeDetectsSadnessWithNegativeValence(t *testing.T) {
	tagger := newTestTagger(t)

	analysis := tagger.Analyze("This is terrible, I am so sad and everything failed", nil)

	require.False(t, analysis.IsNeutral())
	assert.Equal(t, valueobjects.EmotionSadness, analysis.PrimaryEmotion)
	assert.Less(t, analysis.Valence, 0.0)
}

func TestAnalyzeNegationSuppresses(t *testing.T) {
	tagger := newTestTagger(t)

	plain := tagger.Analyze("I am happy", nil)
	negated := tagger.Analyze("I am not happy", nil)

	require.Greater(t, plain.DetectedEmotions[valueobjects.EmotionJoy], 0.0)
	assert.Less(t,
		negated.DetectedEmotions[valueobjects.EmotionJoy],
		plain.DetectedEmotions[valueobjects.EmotionJoy])
}

func TestAnalyzeAmplifierBoosts(t *testing.T) {
	tagger := newTestTagger(t)

	plain := tagger.Analyze("I am happy", nil)
	amplified := tagger.Analyze("I am extremely happy", nil)

	assert.Greater(t,
		amplified.DetectedEmotions[valueobjects.EmotionJoy],
		plain.DetectedEmotions[valueobjects.EmotionJoy])
}

func TestAnalyzeDampenerWeakens(t *testing.T) {
	tagger := newTestTagger(t)

	plain := tagger.Analyze("I am happy", nil)
	dampened := tagger.Analyze("I am slightly happy", nil)

	assert.Less(t,
		dampened.DetectedEmotions[valueobjects.EmotionJoy],
		plain.DetectedEmotions[valueobjects.EmotionJoy])
}

func TestAnalyzePhraseHit(t *testing.T) {
	tagger := newTestTagger(t)

	analysis := tagger.Analyze("Thank you so much for everything", nil)

	require.False(t, analysis.IsNeutral())
	assert.Equal(t, valueobjects.EmotionGratitude, analysis.PrimaryEmotion)
}

func TestAnalyzeSystemActorDampening(t *testing.T) {
	tagger := newTestTagger(t)
	text := "I am so happy about this wonderful result"

	user := tagger.Analyze(text, &AnalysisContext{Actor: entities.ActorUser, Hour: -1})
	system := tagger.Analyze(text, &AnalysisContext{Actor: entities.ActorSystem, Hour: -1})

	assert.Less(t,
		system.DetectedEmotions[valueobjects.EmotionJoy],
		user.DetectedEmotions[valueobjects.EmotionJoy])
}

func TestAnalyzeLateNightAmplification(t *testing.T) {
	tagger := newTestTagger(t)
	text := "I am worried about tomorrow"

	midday := tagger.Analyze(text, &AnalysisContext{Actor: entities.ActorUser, Hour: 13})
	lateNight := tagger.Analyze(text, &AnalysisContext{Actor: entities.ActorUser, Hour: 2})

	assert.Greater(t,
		lateNight.DetectedEmotions[valueobjects.EmotionFear],
		midday.DetectedEmotions[valueobjects.EmotionFear])
}

func TestAnalyzeIntensitiesBounded(t *testing.T) {
	tagger := newTestTagger(t)

	// Stacked hits must still clamp to [0, 1].
	analysis := tagger.Analyze(
		"happy happy happy joyful thrilled delighted excited wonderful fantastic amazing yay", nil)

	for e, v := range analysis.DetectedEmotions {
		assert.GreaterOrEqual(t, v, 0.0, "emotion %s", e)
		assert.LessOrEqual(t, v, 1.0, "emotion %s", e)
	}
	assert.GreaterOrEqual(t, analysis.Valence, -1.0)
	assert.LessOrEqual(t, analysis.Valence, 1.0)
	assert.GreaterOrEqual(t, analysis.Arousal, -1.0)
	assert.LessOrEqual(t, analysis.Arousal, 1.0)
}

func TestAnalyzeDeterministic(t *testing.T) {
	tagger := newTestTagger(t)
	text := "I love this fascinating mystery but I am a bit scared"

	first := tagger.Analyze(text, nil)
	for i := 0; i < 5; i++ {
		again := tagger.Analyze(text, nil)
		assert.Equal(t, first.PrimaryEmotion, again.PrimaryEmotion)
		assert.Equal(t, first.Fingerprint, again.Fingerprint)
		assert.Equal(t, first.DetectedEmotions, again.DetectedEmotions)
	}
}

func TestFingerprintOverlap(t *testing.T) {
	assert.Equal(t, 0.0, valueobjects.FingerprintOverlap("neutral", "joy:strong"))
	assert.Equal(t, 1.0, valueobjects.FingerprintOverlap("joy:strong", "joy:low"))
	assert.InDelta(t, 0.5, valueobjects.FingerprintOverlap("joy:strong+fear:low", "joy:mild"), 1e-9)
}
