package schema

import (
	"time"

	"mnemo/domain/core/entities"
	"mnemo/domain/core/valueobjects"
	"mnemo/pkg/errors"
)

// EventRecord is the stable serialized form of an event. Both the JSON
// backup format and the DynamoDB item layout use these field names, so
// snapshots stay portable across store drivers.
type EventRecord struct {
	ID              string                 `json:"id" dynamodbav:"id"`
	Timestamp       string                 `json:"timestamp" dynamodbav:"timestamp"` // TimeKeyFormat
	Actor           string                 `json:"actor" dynamodbav:"actor"`
	EventType       string                 `json:"event_type" dynamodbav:"event_type"`
	Content         string                 `json:"content" dynamodbav:"content"`
	EmotionAnalysis EmotionRecord          `json:"emotion_analysis" dynamodbav:"emotion_analysis"`
	SalienceRecord  SalienceRecord         `json:"salience_analysis" dynamodbav:"salience_analysis"`
	RelatedIDs      []string               `json:"related_ids,omitempty" dynamodbav:"related_ids,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
}

// EmotionRecord mirrors valueobjects.EmotionAnalysis for storage
type EmotionRecord struct {
	PrimaryEmotion    string             `json:"primary_emotion" dynamodbav:"primary_emotion"`
	SecondaryEmotions []string           `json:"secondary_emotions,omitempty" dynamodbav:"secondary_emotions,omitempty"`
	DetectedEmotions  map[string]float64 `json:"detected_emotions,omitempty" dynamodbav:"detected_emotions,omitempty"`
	Valence           float64            `json:"valence" dynamodbav:"valence"`
	Arousal           float64            `json:"arousal" dynamodbav:"arousal"`
	Fingerprint       string             `json:"fingerprint" dynamodbav:"fingerprint"`
}

// SalienceRecord mirrors valueobjects.SalienceAnalysis for storage
type SalienceRecord struct {
	Score           float64            `json:"score" dynamodbav:"score"`
	Level           string             `json:"level" dynamodbav:"level"`
	ComponentScores map[string]float64 `json:"component_scores,omitempty" dynamodbav:"component_scores,omitempty"`
}

// ReflectionRecord is the stable serialized form of a reflection
type ReflectionRecord struct {
	ID               string   `json:"id" dynamodbav:"id"`
	Type             string   `json:"type" dynamodbav:"type"`
	Date             string   `json:"date" dynamodbav:"date"` // YYYY-MM-DD
	Summary          string   `json:"summary" dynamodbav:"summary"`
	KeyThemes        []string `json:"key_themes,omitempty" dynamodbav:"key_themes,omitempty"`
	EmotionalTone    string   `json:"emotional_tone" dynamodbav:"emotional_tone"`
	DominantEmotions []string `json:"dominant_emotions,omitempty" dynamodbav:"dominant_emotions,omitempty"`
	KeyEventIDs      []string `json:"key_event_ids,omitempty" dynamodbav:"key_event_ids,omitempty"`
	LearningMoments  []string `json:"learning_moments,omitempty" dynamodbav:"learning_moments,omitempty"`
	MemorableQuotes  []string `json:"memorable_quotes,omitempty" dynamodbav:"memorable_quotes,omitempty"`
	EventCount       int      `json:"event_count" dynamodbav:"event_count"`
	Placeholder      bool     `json:"placeholder,omitempty" dynamodbav:"placeholder,omitempty"`
	GeneratedAt      string   `json:"generated_at" dynamodbav:"generated_at"` // RFC3339
}

// DateKeyFormat is the storage key format for reflection dates
const DateKeyFormat = "2006-01-02"

// TimeKeyFormat is the storage format for event timestamps. Unlike
// RFC3339Nano it never trims trailing zeros, so the rendered strings
// sort lexically in chronological order and can serve as range keys.
// RFC3339Nano still parses it, which keeps older snapshots readable.
const TimeKeyFormat = "2006-01-02T15:04:05.000000000Z07:00"

// FromEvent converts a domain event into its storage record
func FromEvent(event *entities.Event) *EventRecord {
	emotion := event.Emotion()
	salience := event.Salience()

	detected := make(map[string]float64, len(emotion.DetectedEmotions))
	for e, score := range emotion.DetectedEmotions {
		detected[string(e)] = score
	}
	secondary := make([]string, len(emotion.SecondaryEmotions))
	for i, e := range emotion.SecondaryEmotions {
		secondary[i] = string(e)
	}
	related := make([]string, 0)
	for _, id := range event.RelatedIDs() {
		related = append(related, id.String())
	}

	return &EventRecord{
		ID:        event.ID().String(),
		Timestamp: event.Timestamp().UTC().Format(TimeKeyFormat),
		Actor:     string(event.Actor()),
		EventType: string(event.Type()),
		Content:   event.Content(),
		EmotionAnalysis: EmotionRecord{
			PrimaryEmotion:    string(emotion.PrimaryEmotion),
			SecondaryEmotions: secondary,
			DetectedEmotions:  detected,
			Valence:           emotion.Valence,
			Arousal:           emotion.Arousal,
			Fingerprint:       emotion.Fingerprint,
		},
		SalienceRecord: SalienceRecord{
			Score:           salience.Score,
			Level:           string(salience.Level),
			ComponentScores: salience.ComponentScores,
		},
		RelatedIDs: related,
		Metadata:   event.Metadata(),
	}
}

// ToEvent reconstructs a domain event from its storage record
func (r *EventRecord) ToEvent() (*entities.Event, error) {
	id, err := valueobjects.NewEventIDFromString(r.ID)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event id in record")
	}
	timestamp, err := time.Parse(time.RFC3339Nano, r.Timestamp)
	if err != nil {
		return nil, errors.Wrap(err, "invalid timestamp in record")
	}
	actor, err := entities.ParseActor(r.Actor)
	if err != nil {
		return nil, err
	}
	eventType, err := entities.ParseEventType(r.EventType)
	if err != nil {
		return nil, err
	}

	detected := make(map[valueobjects.Emotion]float64, len(r.EmotionAnalysis.DetectedEmotions))
	for name, score := range r.EmotionAnalysis.DetectedEmotions {
		detected[valueobjects.Emotion(name)] = score
	}
	secondary := make([]valueobjects.Emotion, len(r.EmotionAnalysis.SecondaryEmotions))
	for i, name := range r.EmotionAnalysis.SecondaryEmotions {
		secondary[i] = valueobjects.Emotion(name)
	}
	emotion := valueobjects.EmotionAnalysis{
		PrimaryEmotion:    valueobjects.Emotion(r.EmotionAnalysis.PrimaryEmotion),
		SecondaryEmotions: secondary,
		DetectedEmotions:  detected,
		Valence:           r.EmotionAnalysis.Valence,
		Arousal:           r.EmotionAnalysis.Arousal,
		Fingerprint:       r.EmotionAnalysis.Fingerprint,
	}
	salience := valueobjects.SalienceAnalysis{
		Score:           r.SalienceRecord.Score,
		Level:           valueobjects.SalienceLevel(r.SalienceRecord.Level),
		ComponentScores: r.SalienceRecord.ComponentScores,
	}

	related := make([]valueobjects.EventID, 0, len(r.RelatedIDs))
	for _, raw := range r.RelatedIDs {
		relID, err := valueobjects.NewEventIDFromString(raw)
		if err != nil {
			continue // skip dangling references rather than fail the load
		}
		related = append(related, relID)
	}

	return entities.ReconstructEvent(id, timestamp, actor, eventType, r.Content, emotion, salience, related, r.Metadata)
}

// FromReflection converts a reflection into its storage record
func FromReflection(r *entities.Reflection) *ReflectionRecord {
	emotions := make([]string, len(r.DominantEmotions))
	for i, e := range r.DominantEmotions {
		emotions[i] = string(e)
	}
	eventIDs := make([]string, len(r.KeyEventIDs))
	for i, id := range r.KeyEventIDs {
		eventIDs[i] = id.String()
	}
	return &ReflectionRecord{
		ID:               r.ID,
		Type:             string(r.Type),
		Date:             r.Date.UTC().Format(DateKeyFormat),
		Summary:          r.Summary,
		KeyThemes:        r.KeyThemes,
		EmotionalTone:    string(r.EmotionalTone),
		DominantEmotions: emotions,
		KeyEventIDs:      eventIDs,
		LearningMoments:  r.LearningMoments,
		MemorableQuotes:  r.MemorableQuotes,
		EventCount:       r.EventCount,
		Placeholder:      r.Placeholder,
		GeneratedAt:      r.GeneratedAt.UTC().Format(time.RFC3339),
	}
}

// ToReflection reconstructs a reflection from its storage record
func (r *ReflectionRecord) ToReflection() (*entities.Reflection, error) {
	date, err := time.Parse(DateKeyFormat, r.Date)
	if err != nil {
		return nil, errors.Wrap(err, "invalid reflection date in record")
	}
	generatedAt, err := time.Parse(time.RFC3339, r.GeneratedAt)
	if err != nil {
		return nil, errors.Wrap(err, "invalid generation time in record")
	}

	emotions := make([]valueobjects.Emotion, len(r.DominantEmotions))
	for i, name := range r.DominantEmotions {
		emotions[i] = valueobjects.Emotion(name)
	}
	eventIDs := make([]valueobjects.EventID, 0, len(r.KeyEventIDs))
	for _, raw := range r.KeyEventIDs {
		id, err := valueobjects.NewEventIDFromString(raw)
		if err != nil {
			continue
		}
		eventIDs = append(eventIDs, id)
	}

	return &entities.Reflection{
		ID:               r.ID,
		Type:             entities.ReflectionType(r.Type),
		Date:             date,
		Summary:          r.Summary,
		KeyThemes:        r.KeyThemes,
		EmotionalTone:    entities.EmotionalTone(r.EmotionalTone),
		DominantEmotions: emotions,
		KeyEventIDs:      eventIDs,
		LearningMoments:  r.LearningMoments,
		MemorableQuotes:  r.MemorableQuotes,
		EventCount:       r.EventCount,
		Placeholder:      r.Placeholder,
		GeneratedAt:      generatedAt,
	}, nil
}
