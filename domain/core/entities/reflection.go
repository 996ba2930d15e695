package entities

import (
	"time"

	"mnemo/domain/core/valueobjects"
)

// ReflectionType distinguishes daily from weekly reflections
type ReflectionType string

const (
	ReflectionDaily  ReflectionType = "daily"
	ReflectionWeekly ReflectionType = "weekly"
)

// EmotionalTone classifies the overall mood of a reflection period
type EmotionalTone string

const (
	ToneVeryPositive EmotionalTone = "very_positive"
	TonePositive     EmotionalTone = "positive"
	ToneNegative     EmotionalTone = "negative"
	ToneVeryNegative EmotionalTone = "very_negative"
	ToneMixedIntense EmotionalTone = "mixed_intense"
	ToneNeutral      EmotionalTone = "neutral"
)

// Reflection is a synthesized narrative summary over a day or week of
// events. Reflections are cached by (date, type) and regeneration is
// idempotent for a fixed event set.
type Reflection struct {
	ID               string
	Type             ReflectionType
	Date             time.Time // day, or week start for weekly
	Summary          string
	KeyThemes        []string
	EmotionalTone    EmotionalTone
	DominantEmotions []valueobjects.Emotion
	KeyEventIDs      []valueobjects.EventID
	LearningMoments  []string
	MemorableQuotes  []string
	EventCount       int
	Placeholder      bool // true when generated from insufficient data
	GeneratedAt      time.Time
}
